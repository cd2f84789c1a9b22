package schedule

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/metier/internal/domain"
)

// TaskFilter holds the admin table filters. Zero values do not filter.
type TaskFilter struct {
	Query     string             `json:"q,omitempty"`
	ProjectID string             `json:"project,omitempty"`
	TeamID    string             `json:"team,omitempty"`
	UserID    string             `json:"user,omitempty"`
	Status    domain.PhaseStatus `json:"status,omitempty"`
	Priority  domain.Priority    `json:"priority,omitempty"`
	Start     string             `json:"start,omitempty"`
	End       string             `json:"end,omitempty"`
}

// Empty reports whether no filter is set.
func (f TaskFilter) Empty() bool {
	return f == TaskFilter{}
}

// ErrInvalidSortKey reports an unknown sort key.
var ErrInvalidSortKey = errors.New("invalid sort key")

// SortKey selects the admin table ordering.
type SortKey string

const (
	SortNone  SortKey = ""
	SortStart SortKey = "start"
	SortEnd   SortKey = "end"
	SortDelay SortKey = "delay"
)

// SortKeys lists the keys in cycling order.
func SortKeys() []SortKey {
	return []SortKey{SortNone, SortStart, SortEnd, SortDelay}
}

// ParseSortKey validates a raw sort key. Empty input means no sorting.
func ParseSortKey(raw string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(SortKeys(), key) {
		return SortNone, fmt.Errorf("sort key %q: %w", raw, ErrInvalidSortKey)
	}
	return key, nil
}

// FilterTasks returns the tasks matching every set filter, preserving input order.
// Malformed date bounds fail with domain.ErrInvalidDate.
func FilterTasks(tasks []domain.Task, f TaskFilter) ([]domain.Task, error) {
	match, err := f.matcher()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f TaskFilter) matcher() (func(domain.Task) bool, error) {
	var checks []func(domain.Task) bool

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		checks = append(checks, func(t domain.Task) bool {
			return strings.Contains(strings.ToLower(t.Title), q)
		})
	}
	if f.ProjectID != "" {
		checks = append(checks, func(t domain.Task) bool { return t.ProjectID == f.ProjectID })
	}
	if f.Priority != "" {
		checks = append(checks, func(t domain.Task) bool { return t.Priority.OrDefault() == f.Priority })
	}
	if f.TeamID != "" {
		checks = append(checks, func(t domain.Task) bool {
			return anyPhase(t, func(p domain.TaskPhase) bool { return p.TeamID == f.TeamID })
		})
	}
	if f.UserID != "" {
		checks = append(checks, func(t domain.Task) bool {
			return anyPhase(t, func(p domain.TaskPhase) bool { return p.UserID == f.UserID })
		})
	}
	if f.Status != "" {
		checks = append(checks, func(t domain.Task) bool {
			return anyPhase(t, func(p domain.TaskPhase) bool { return p.Status == f.Status })
		})
	}
	if dates, err := f.dateCheck(); err != nil {
		return nil, err
	} else if dates != nil {
		checks = append(checks, dates)
	}

	return func(t domain.Task) bool {
		for _, check := range checks {
			if !check(t) {
				return false
			}
		}
		return true
	}, nil
}

func (f TaskFilter) dateCheck() (func(domain.Task) bool, error) {
	startRaw, endRaw := strings.TrimSpace(f.Start), strings.TrimSpace(f.End)
	if startRaw == "" && endRaw == "" {
		return nil, nil
	}
	lo := time.Time{}
	hi := time.Date(9999, 12, 31, 0, 0, 0, 0, time.Local)
	if startRaw != "" {
		d, err := domain.ParseCalendarDate(startRaw)
		if err != nil {
			return nil, fmt.Errorf("filter start %q: %w", startRaw, err)
		}
		lo = d
	}
	if endRaw != "" {
		d, err := domain.ParseCalendarDate(endRaw)
		if err != nil {
			return nil, fmt.Errorf("filter end %q: %w", endRaw, err)
		}
		hi = d
	}
	if lo.After(hi) {
		lo, hi = hi, lo
	}
	return func(t domain.Task) bool {
		return anyPhase(t, func(p domain.TaskPhase) bool {
			start, end, ok := phaseWindow(p)
			return ok && Overlaps(DayStart(start), DayStart(end), lo, hi)
		})
	}, nil
}

// SortTasks returns a stably sorted copy. SortNone returns the input order.
func SortTasks(tasks []domain.Task, key SortKey, now time.Time) []domain.Task {
	out := slices.Clone(tasks)
	switch key {
	case SortStart:
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return cmp.Compare(earliestStart(a), earliestStart(b))
		})
	case SortEnd:
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return cmp.Compare(latestEnd(a), latestEnd(b))
		})
	case SortDelay:
		slices.SortStableFunc(out, func(a, b domain.Task) int {
			return cmp.Compare(DelayDays(b, now), DelayDays(a, now))
		})
	}
	return out
}

// earliestStart is the minimum parseable phase start in unix milliseconds, 0 when none.
func earliestStart(t domain.Task) int64 {
	var best int64
	found := false
	for _, p := range t.Phases {
		s, ok := domain.ParseTimestamp(p.StartDate)
		if !ok {
			continue
		}
		if ms := s.UnixMilli(); !found || ms < best {
			best, found = ms, true
		}
	}
	return best
}

// latestEnd is the maximum parseable phase end in unix milliseconds, 0 when none.
func latestEnd(t domain.Task) int64 {
	var best int64
	found := false
	for _, p := range t.Phases {
		e, ok := domain.ParseTimestamp(p.EndDate)
		if !ok {
			continue
		}
		if ms := e.UnixMilli(); !found || ms > best {
			best, found = ms, true
		}
	}
	return best
}
