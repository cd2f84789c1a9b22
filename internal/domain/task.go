package domain

import (
	"fmt"
	"slices"
	"strings"
)

// TaskPhase is one team-assigned, time-boxed stage of a task.
type TaskPhase struct {
	ID            string      `json:"id" yaml:"id"`
	TeamID        string      `json:"teamId" yaml:"teamId"`
	UserID        string      `json:"userId" yaml:"userId"`
	StartDate     string      `json:"startDate" yaml:"startDate"`
	EndDate       string      `json:"endDate" yaml:"endDate"`
	ActualEndDate string      `json:"actualEndDate,omitempty" yaml:"actualEndDate,omitempty"`
	Status        PhaseStatus `json:"status" yaml:"status"`
	Order         int         `json:"order" yaml:"order"`
	DependsOn     string      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// Task is a unit of project work scheduled as ordered phases.
type Task struct {
	ID          string      `json:"id" yaml:"id"`
	ProjectID   string      `json:"projectId" yaml:"projectId"`
	TaskTypeID  string      `json:"taskTypeId" yaml:"taskTypeId"`
	Title       string      `json:"title" yaml:"title"`
	Phases      []TaskPhase `json:"phases" yaml:"phases"`
	Link        string      `json:"link,omitempty" yaml:"link,omitempty"`
	Priority    Priority    `json:"priority,omitempty" yaml:"priority,omitempty"`
	DelayReason string      `json:"delayReason,omitempty" yaml:"delayReason,omitempty"`
}

// TaskInput holds the editable fields of a task.
type TaskInput struct {
	ID          string
	ProjectID   string
	TaskTypeID  string
	Title       string
	Phases      []TaskPhase
	Link        string
	Priority    Priority
	DelayReason string
}

// NewTask normalizes and validates a task as submitted from an edit form.
func NewTask(in TaskInput) (Task, error) {
	t := Task{
		ID:          strings.TrimSpace(in.ID),
		ProjectID:   strings.TrimSpace(in.ProjectID),
		TaskTypeID:  strings.TrimSpace(in.TaskTypeID),
		Title:       strings.TrimSpace(in.Title),
		Phases:      normalizePhases(in.Phases),
		Link:        strings.TrimSpace(in.Link),
		Priority:    in.Priority.OrDefault(),
		DelayReason: strings.TrimSpace(in.DelayReason),
	}
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Validate applies the edit-time rules: required references, at least one phase and
// well-formed phase windows.
func (t Task) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return ErrInvalidID
	case strings.TrimSpace(t.Title) == "":
		return ErrInvalidTitle
	case strings.TrimSpace(t.ProjectID) == "":
		return ErrInvalidProjectID
	case strings.TrimSpace(t.TaskTypeID) == "":
		return ErrInvalidTaskTypeID
	case !t.Priority.OrDefault().Valid():
		return ErrInvalidPriority
	case len(t.Phases) == 0:
		return ErrNoPhases
	}
	ids := make([]string, 0, len(t.Phases))
	for _, p := range t.Phases {
		ids = append(ids, p.ID)
	}
	for i, p := range t.Phases {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("phase %d: %w", i+1, err)
		}
		if p.DependsOn != "" && (p.DependsOn == p.ID || !slices.Contains(ids, p.DependsOn)) {
			return fmt.Errorf("phase %d: %w", i+1, ErrInvalidDependency)
		}
	}
	return nil
}

// Validate checks one phase in isolation.
func (p TaskPhase) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(p.TeamID) == "" {
		return ErrInvalidTeamID
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Order < 1 {
		return ErrInvalidOrder
	}
	start, ok := ParseTimestamp(p.StartDate)
	if !ok {
		return fmt.Errorf("start: %w", ErrInvalidDate)
	}
	end, ok := ParseTimestamp(p.EndDate)
	if !ok {
		return fmt.Errorf("end: %w", ErrInvalidDate)
	}
	if start.After(end) {
		return ErrInvalidDateRange
	}
	return nil
}

// Phase returns the phase with the given id.
func (t Task) Phase(id string) (TaskPhase, bool) {
	for _, p := range t.Phases {
		if p.ID == id {
			return p, true
		}
	}
	return TaskPhase{}, false
}

// Clone returns a deep copy.
func (t Task) Clone() Task {
	t.Phases = slices.Clone(t.Phases)
	return t
}

func normalizePhases(in []TaskPhase) []TaskPhase {
	out := make([]TaskPhase, 0, len(in))
	for _, p := range in {
		p.ID = strings.TrimSpace(p.ID)
		p.TeamID = strings.TrimSpace(p.TeamID)
		p.UserID = strings.TrimSpace(p.UserID)
		p.StartDate = strings.TrimSpace(p.StartDate)
		p.EndDate = strings.TrimSpace(p.EndDate)
		p.ActualEndDate = strings.TrimSpace(p.ActualEndDate)
		p.DependsOn = strings.TrimSpace(p.DependsOn)
		if p.Status == "" {
			p.Status = StatusNotStarted
		}
		out = append(out, p)
	}
	return out
}
