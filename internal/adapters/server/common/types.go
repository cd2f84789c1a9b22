// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// ErrInvalidRequest reports malformed or semantically invalid transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports a missing entity, template, phase, or collection.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a write that collides with existing state.
var ErrConflict = errors.New("conflict")

// ErrUnavailable reports that the backing service is not configured or not ready.
var ErrUnavailable = errors.New("service unavailable")

// MutationOutcome reports whether a write reached the entity store.
type MutationOutcome struct {
	Persisted bool   `json:"persisted"`
	Warning   string `json:"warning,omitempty"`
}

// TimelineRequest carries raw timeline query parameters.
type TimelineRequest struct {
	Start  string
	End    string
	UserID string
	TeamID string
	Status string
	Mode   string
}

// TaskListRequest carries raw admin table filters and the sort key.
type TaskListRequest struct {
	Query     string
	ProjectID string
	TeamID    string
	UserID    string
	Status    string
	Priority  string
	Start     string
	End       string
	Sort      string
}

// TaskRow is one filtered task with derived health, delay, and progress.
type TaskRow struct {
	Task      domain.Task   `json:"task"`
	Health    domain.Health `json:"health"`
	DelayDays int           `json:"delayDays"`
	Progress  int           `json:"progress"`
}

// InstantiateTemplateRequest expands one template, optionally saving the result as a task.
type InstantiateTemplateRequest struct {
	TemplateID string `json:"-"`
	Create     bool   `json:"create"`
	ProjectID  string `json:"projectId"`
	Title      string `json:"title"`
	Priority   string `json:"priority"`
	Link       string `json:"link"`
}

// TemplateInstance holds expanded phases and, when created, the saved task.
type TemplateInstance struct {
	Phases  []domain.TaskPhase `json:"phases"`
	Task    *domain.Task       `json:"task,omitempty"`
	Outcome *MutationOutcome   `json:"outcome,omitempty"`
}

// BulkStatusRequest moves every non-DONE phase of the listed tasks to one status.
type BulkStatusRequest struct {
	TaskIDs []string `json:"taskIds"`
	Status  string   `json:"status"`
}

// BulkDeleteRequest removes the listed tasks.
type BulkDeleteRequest struct {
	TaskIDs []string `json:"taskIds"`
}

// BulkResult reports how many tasks one bulk operation touched.
type BulkResult struct {
	Affected int `json:"affected"`
	MutationOutcome
}

// PhaseStatusRequest quick-changes the status of one phase.
type PhaseStatusRequest struct {
	TaskID  string `json:"-"`
	PhaseID string `json:"-"`
	Status  string `json:"status"`
}

// AddPhaseRequest appends a default phase to one task.
type AddPhaseRequest struct {
	TaskID string `json:"taskId"`
}

// TaskMutation returns one written task and its persistence outcome.
type TaskMutation struct {
	Task domain.Task `json:"task"`
	MutationOutcome
}

// RecordService exposes generic collection CRUD to transport adapters.
type RecordService interface {
	ListRecords(context.Context, string) ([]domain.Record, error)
	CreateRecord(context.Context, string, domain.Record) (domain.Record, MutationOutcome, error)
	UpdateRecord(context.Context, string, string, domain.Record) (domain.Record, MutationOutcome, error)
	DeleteRecord(context.Context, string, string) (MutationOutcome, error)
}

// ViewService exposes read-only derived views.
type ViewService interface {
	TaskHealth(context.Context) ([]schedule.TaskHealth, error)
	Timeline(context.Context, TimelineRequest) (schedule.Timeline, error)
	Workload(context.Context) (schedule.Workload, error)
	ListTasks(context.Context, TaskListRequest) ([]TaskRow, error)
	ActivityLog(context.Context, int) ([]domain.ActivityLogEntry, error)
}

// ScheduleService exposes task-level schedule mutations.
type ScheduleService interface {
	InstantiateTemplate(context.Context, InstantiateTemplateRequest) (TemplateInstance, error)
	BulkUpdateStatus(context.Context, BulkStatusRequest) (BulkResult, error)
	BulkDelete(context.Context, BulkDeleteRequest) (BulkResult, error)
	SetPhaseStatus(context.Context, PhaseStatusRequest) (TaskMutation, error)
	AddPhase(context.Context, AddPhaseRequest) (TaskMutation, error)
}

// Service combines every transport-facing contract.
type Service interface {
	RecordService
	ViewService
	ScheduleService
}
