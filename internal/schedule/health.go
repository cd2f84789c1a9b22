package schedule

import (
	"time"

	"github.com/hylla/metier/internal/domain"
)

// AtRiskWindowDays is how close a due date may be before a task is at risk.
const AtRiskWindowDays = 2

// EvaluateHealth classifies a task by the worst of its non-done phases.
// Phases with unparseable end dates are ignored.
func EvaluateHealth(task domain.Task, now time.Time) domain.Health {
	worst := domain.HealthOnTrack
	for _, p := range task.Phases {
		if p.Status.Done() {
			continue
		}
		due, ok := domain.ParseTimestamp(p.EndDate)
		if !ok {
			continue
		}
		h := phaseHealth(DaysBetween(now, due))
		if h.Severity() > worst.Severity() {
			worst = h
		}
	}
	return worst
}

func phaseHealth(daysUntilDue int) domain.Health {
	switch {
	case daysUntilDue < 0:
		return domain.HealthDelayed
	case daysUntilDue <= AtRiskWindowDays:
		return domain.HealthAtRisk
	default:
		return domain.HealthOnTrack
	}
}

// DelayDays returns how many days the most overdue non-done phase is past its end, never negative.
func DelayDays(task domain.Task, now time.Time) int {
	delay := 0
	for _, p := range task.Phases {
		if p.Status.Done() {
			continue
		}
		due, ok := domain.ParseTimestamp(p.EndDate)
		if !ok {
			continue
		}
		delay = max(delay, DaysBetween(due, now))
	}
	return delay
}

// PhaseOverdue reports whether a non-done phase ended before today.
func PhaseOverdue(p domain.TaskPhase, now time.Time) bool {
	if p.Status.Done() {
		return false
	}
	due, ok := domain.ParseTimestamp(p.EndDate)
	if !ok {
		return false
	}
	return DayStart(now).After(DayStart(due))
}

// TaskHealth pairs a task with its derived schedule figures.
type TaskHealth struct {
	TaskID    string        `json:"taskId"`
	Title     string        `json:"title"`
	Health    domain.Health `json:"health"`
	DelayDays int           `json:"delayDays"`
}

// HealthReport evaluates every task in snapshot order.
func HealthReport(data domain.AppData, now time.Time) []TaskHealth {
	out := make([]TaskHealth, 0, len(data.Tasks))
	for _, t := range data.Tasks {
		out = append(out, TaskHealth{
			TaskID:    t.ID,
			Title:     t.Title,
			Health:    EvaluateHealth(t, now),
			DelayDays: DelayDays(t, now),
		})
	}
	return out
}
