package app

import (
	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// Health evaluates every task against the current time.
func (s *Service) Health() []schedule.TaskHealth {
	return schedule.HealthReport(s.Snapshot(), s.clock())
}

// Timeline lays out the snapshot for one query.
func (s *Service) Timeline(q schedule.TimelineQuery) (schedule.Timeline, error) {
	return schedule.BuildTimeline(s.Snapshot(), q, s.clock())
}

// Workload aggregates pending work per person, team and project.
func (s *Service) Workload() schedule.Workload {
	return schedule.BuildWorkload(s.Snapshot())
}

// TaskRow is one admin table row: the task with its derived schedule figures.
type TaskRow struct {
	Task      domain.Task   `json:"task"`
	Health    domain.Health `json:"health"`
	DelayDays int           `json:"delayDays"`
	Progress  int           `json:"progress"`
}

// FilterTasks filters and sorts the task list for the admin table.
func (s *Service) FilterTasks(f schedule.TaskFilter, key schedule.SortKey) ([]TaskRow, error) {
	data := s.Snapshot()
	now := s.clock()
	tasks, err := schedule.FilterTasks(data.Tasks, f)
	if err != nil {
		return nil, err
	}
	tasks = schedule.SortTasks(tasks, key, now)
	rows := make([]TaskRow, 0, len(tasks))
	for _, t := range tasks {
		done := 0
		for _, p := range t.Phases {
			if p.Status.Done() {
				done++
			}
		}
		rows = append(rows, TaskRow{
			Task:      t,
			Health:    schedule.EvaluateHealth(t, now),
			DelayDays: schedule.DelayDays(t, now),
			Progress:  schedule.Percent(done, len(t.Phases)),
		})
	}
	return rows, nil
}
