// Package schedule derives health, timeline, workload, filtering and template views from an
// AppData snapshot. Every function is pure: the current time is always passed in.
package schedule

import (
	"math"
	"time"

	"github.com/hylla/metier/internal/domain"
)

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping wall-clock time across DST changes.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns round((DayStart(to) - DayStart(from)) / 24h).
// Rounding absorbs the 23h/25h days around DST transitions.
func DaysBetween(from, to time.Time) int {
	diff := DayStart(to).Sub(DayStart(from))
	return int(math.Round(diff.Hours() / 24))
}

// Overlaps reports whether the closed intervals [aStart,aEnd] and [bStart,bEnd] share an instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// StartOfWeek returns the Monday of t's week at midnight.
func StartOfWeek(t time.Time) time.Time {
	d := DayStart(t)
	offset := (int(d.Weekday()) + 6) % 7
	return AddDays(d, -offset)
}

// EndOfWeek returns the Sunday of t's week at midnight.
func EndOfWeek(t time.Time) time.Time {
	return AddDays(StartOfWeek(t), 6)
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location())
}

// FormatCalendarDate renders t as YYYY-MM-DD.
func FormatCalendarDate(t time.Time) string {
	return t.Format(domain.CalendarDateLayout)
}

// RangeKind names a quick date range preset.
type RangeKind string

const (
	RangeToday     RangeKind = "today"
	RangeThisWeek  RangeKind = "this_week"
	RangeNextWeek  RangeKind = "next_week"
	RangeThisMonth RangeKind = "this_month"
)

// QuickRange returns calendar-date bounds for a preset. Unknown kinds return empty bounds.
func QuickRange(kind RangeKind, now time.Time) (string, string) {
	today := DayStart(now)
	var start, end time.Time
	switch kind {
	case RangeToday:
		start, end = today, today
	case RangeThisWeek:
		start, end = StartOfWeek(today), EndOfWeek(today)
	case RangeNextWeek:
		start = AddDays(StartOfWeek(today), 7)
		end = AddDays(start, 6)
	case RangeThisMonth:
		start, end = StartOfMonth(today), EndOfMonth(today)
	default:
		return "", ""
	}
	return FormatCalendarDate(start), FormatCalendarDate(end)
}

// phaseWindow parses a phase's start and end; ok is false when either is malformed.
func phaseWindow(p domain.TaskPhase) (time.Time, time.Time, bool) {
	start, ok := domain.ParseTimestamp(p.StartDate)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := domain.ParseTimestamp(p.EndDate)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
