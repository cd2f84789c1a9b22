package domain

import (
	"strings"
	"time"
)

// Timestamp layouts accepted in phase start/end fields.
const (
	CalendarDateLayout = "2006-01-02"
	LocalTimeLayout    = "2006-01-02T15:04:05"
)

var localLayouts = []string{
	CalendarDateLayout,
	"2006-01-02T15:04",
	LocalTimeLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseCalendarDate parses YYYY-MM-DD as local midnight.
func ParseCalendarDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(CalendarDateLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseTimestamp accepts a bare date, a local date-time or an RFC3339 instant.
// Zoned instants are converted to local time. ok is false for empty or malformed input.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(time.Local), true
		}
	}
	return time.Time{}, false
}

// FormatLocalTime renders a timestamp in the zone-less layout used by phase fields.
func FormatLocalTime(t time.Time) string {
	return t.In(time.Local).Format(LocalTimeLayout)
}
