package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// defaultActivityLimit bounds activity listings when callers pass no limit.
const defaultActivityLimit = 50

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// WithActor attributes writes made with ctx to actorID. Blank ids leave ctx untouched.
func WithActor(ctx context.Context, actorID string) context.Context {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ctx
	}
	return app.WithActor(ctx, actorID)
}

// ListRecords returns every record of one collection.
func (a *AppServiceAdapter) ListRecords(ctx context.Context, collection string) ([]domain.Record, error) {
	c, err := a.collection(collection)
	if err != nil {
		return nil, err
	}
	rows, err := a.service.ListRecords(ctx, c)
	if err != nil {
		return nil, mapAppError("list "+string(c), err)
	}
	return rows, nil
}

// CreateRecord stores one new record.
func (a *AppServiceAdapter) CreateRecord(ctx context.Context, collection string, record domain.Record) (domain.Record, MutationOutcome, error) {
	c, err := a.collection(collection)
	if err != nil {
		return nil, MutationOutcome{}, err
	}
	if record == nil {
		return nil, MutationOutcome{}, fmt.Errorf("create %s: record body is required: %w", c, ErrInvalidRequest)
	}
	out, res, err := a.service.CreateRecord(ctx, c, record)
	if err != nil {
		return nil, MutationOutcome{}, mapAppError("create "+string(c), err)
	}
	return out, outcome(res), nil
}

// UpdateRecord replaces one record by id.
func (a *AppServiceAdapter) UpdateRecord(ctx context.Context, collection, id string, record domain.Record) (domain.Record, MutationOutcome, error) {
	c, err := a.collection(collection)
	if err != nil {
		return nil, MutationOutcome{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, MutationOutcome{}, fmt.Errorf("update %s: id is required: %w", c, ErrInvalidRequest)
	}
	if record == nil {
		return nil, MutationOutcome{}, fmt.Errorf("update %s: record body is required: %w", c, ErrInvalidRequest)
	}
	out, res, err := a.service.UpdateRecord(ctx, c, id, record)
	if err != nil {
		return nil, MutationOutcome{}, mapAppError("update "+string(c), err)
	}
	return out, outcome(res), nil
}

// DeleteRecord removes one record by id.
func (a *AppServiceAdapter) DeleteRecord(ctx context.Context, collection, id string) (MutationOutcome, error) {
	c, err := a.collection(collection)
	if err != nil {
		return MutationOutcome{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return MutationOutcome{}, fmt.Errorf("delete %s: id is required: %w", c, ErrInvalidRequest)
	}
	res, err := a.service.DeleteRecord(ctx, c, id)
	if err != nil {
		return MutationOutcome{}, mapAppError("delete "+string(c), err)
	}
	return outcome(res), nil
}

// TaskHealth evaluates every task against the service clock.
func (a *AppServiceAdapter) TaskHealth(context.Context) ([]schedule.TaskHealth, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	return a.service.Health(), nil
}

// Timeline lays out the snapshot for one raw query.
func (a *AppServiceAdapter) Timeline(_ context.Context, in TimelineRequest) (schedule.Timeline, error) {
	if err := a.ready(); err != nil {
		return schedule.Timeline{}, err
	}
	status, err := parseStatus(in.Status, true)
	if err != nil {
		return schedule.Timeline{}, err
	}
	mode := schedule.ViewMode(strings.ToLower(strings.TrimSpace(in.Mode)))
	switch mode {
	case "":
		mode = schedule.ViewByProject
	case schedule.ViewByProject, schedule.ViewByPerson:
	default:
		return schedule.Timeline{}, fmt.Errorf("timeline mode %q: %w", in.Mode, ErrInvalidRequest)
	}
	out, err := a.service.Timeline(schedule.TimelineQuery{
		Start:  strings.TrimSpace(in.Start),
		End:    strings.TrimSpace(in.End),
		UserID: strings.TrimSpace(in.UserID),
		TeamID: strings.TrimSpace(in.TeamID),
		Status: status,
		Mode:   mode,
	})
	if err != nil {
		return schedule.Timeline{}, mapAppError("timeline", err)
	}
	return out, nil
}

// Workload aggregates pending hours.
func (a *AppServiceAdapter) Workload(context.Context) (schedule.Workload, error) {
	if err := a.ready(); err != nil {
		return schedule.Workload{}, err
	}
	return a.service.Workload(), nil
}

// ListTasks filters and sorts the task table.
func (a *AppServiceAdapter) ListTasks(_ context.Context, in TaskListRequest) ([]TaskRow, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	status, err := parseStatus(in.Status, true)
	if err != nil {
		return nil, err
	}
	priority := domain.Priority(strings.ToLower(strings.TrimSpace(in.Priority)))
	if priority != "" && !priority.Valid() {
		return nil, fmt.Errorf("priority %q: %w", in.Priority, errors.Join(ErrInvalidRequest, domain.ErrInvalidPriority))
	}
	key, err := schedule.ParseSortKey(in.Sort)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", errors.Join(ErrInvalidRequest, err))
	}
	rows, err := a.service.FilterTasks(schedule.TaskFilter{
		Query:     strings.TrimSpace(in.Query),
		ProjectID: strings.TrimSpace(in.ProjectID),
		TeamID:    strings.TrimSpace(in.TeamID),
		UserID:    strings.TrimSpace(in.UserID),
		Status:    status,
		Priority:  priority,
		Start:     strings.TrimSpace(in.Start),
		End:       strings.TrimSpace(in.End),
	}, key)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	out := make([]TaskRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, TaskRow(row))
	}
	return out, nil
}

// ActivityLog returns the newest entries first.
func (a *AppServiceAdapter) ActivityLog(_ context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("activity limit %d: %w", limit, ErrInvalidRequest)
	}
	if limit == 0 {
		limit = defaultActivityLimit
	}
	return a.service.ActivityLog(limit), nil
}

// InstantiateTemplate expands a template and, when requested, saves it as a new task.
func (a *AppServiceAdapter) InstantiateTemplate(ctx context.Context, in InstantiateTemplateRequest) (TemplateInstance, error) {
	if err := a.ready(); err != nil {
		return TemplateInstance{}, err
	}
	templateID := strings.TrimSpace(in.TemplateID)
	if templateID == "" {
		return TemplateInstance{}, fmt.Errorf("instantiate template: template id is required: %w", ErrInvalidRequest)
	}
	if !in.Create {
		phases, err := a.service.InstantiateTemplate(templateID)
		if err != nil {
			return TemplateInstance{}, mapAppError("instantiate template", err)
		}
		return TemplateInstance{Phases: phases}, nil
	}
	priority := domain.Priority(strings.ToLower(strings.TrimSpace(in.Priority)))
	task, res, err := a.service.CreateTaskFromTemplate(ctx, templateID, app.TemplateTaskInput{
		ProjectID: strings.TrimSpace(in.ProjectID),
		Title:     in.Title,
		Priority:  priority,
		Link:      strings.TrimSpace(in.Link),
	})
	if err != nil {
		return TemplateInstance{}, mapAppError("create task from template", err)
	}
	out := outcome(res)
	return TemplateInstance{Phases: task.Phases, Task: &task, Outcome: &out}, nil
}

// BulkUpdateStatus moves the non-DONE phases of the listed tasks.
func (a *AppServiceAdapter) BulkUpdateStatus(ctx context.Context, in BulkStatusRequest) (BulkResult, error) {
	if err := a.ready(); err != nil {
		return BulkResult{}, err
	}
	if len(in.TaskIDs) == 0 {
		return BulkResult{}, fmt.Errorf("bulk status: taskIds is required: %w", ErrInvalidRequest)
	}
	status, err := parseStatus(in.Status, false)
	if err != nil {
		return BulkResult{}, err
	}
	n, res, err := a.service.BulkUpdateStatus(ctx, in.TaskIDs, status)
	if err != nil {
		return BulkResult{}, mapAppError("bulk status", err)
	}
	return BulkResult{Affected: n, MutationOutcome: outcome(res)}, nil
}

// BulkDelete removes the listed tasks.
func (a *AppServiceAdapter) BulkDelete(ctx context.Context, in BulkDeleteRequest) (BulkResult, error) {
	if err := a.ready(); err != nil {
		return BulkResult{}, err
	}
	if len(in.TaskIDs) == 0 {
		return BulkResult{}, fmt.Errorf("bulk delete: taskIds is required: %w", ErrInvalidRequest)
	}
	n, res, err := a.service.BulkDelete(ctx, in.TaskIDs)
	if err != nil {
		return BulkResult{}, mapAppError("bulk delete", err)
	}
	return BulkResult{Affected: n, MutationOutcome: outcome(res)}, nil
}

// SetPhaseStatus quick-changes one phase status.
func (a *AppServiceAdapter) SetPhaseStatus(ctx context.Context, in PhaseStatusRequest) (TaskMutation, error) {
	if err := a.ready(); err != nil {
		return TaskMutation{}, err
	}
	status, err := parseStatus(in.Status, false)
	if err != nil {
		return TaskMutation{}, err
	}
	task, res, err := a.service.SetPhaseStatus(ctx, in.TaskID, in.PhaseID, status)
	if err != nil {
		return TaskMutation{}, mapAppError("set phase status", err)
	}
	return TaskMutation{Task: task, MutationOutcome: outcome(res)}, nil
}

// AddPhase appends a default phase to one task.
func (a *AppServiceAdapter) AddPhase(ctx context.Context, in AddPhaseRequest) (TaskMutation, error) {
	if err := a.ready(); err != nil {
		return TaskMutation{}, err
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return TaskMutation{}, fmt.Errorf("add phase: taskId is required: %w", ErrInvalidRequest)
	}
	task, res, err := a.service.AddPhase(ctx, in.TaskID)
	if err != nil {
		return TaskMutation{}, mapAppError("add phase", err)
	}
	return TaskMutation{Task: task, MutationOutcome: outcome(res)}, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	return nil
}

func (a *AppServiceAdapter) collection(raw string) (domain.Collection, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	c, err := domain.ParseCollection(raw)
	if err != nil {
		return "", fmt.Errorf("collection %q: %w", raw, errors.Join(ErrNotFound, err))
	}
	return c, nil
}

// parseStatus upper-cases raw; blank input is accepted only when optional is set.
func parseStatus(raw string, optional bool) (domain.PhaseStatus, error) {
	status := domain.PhaseStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if status == "" && optional {
		return "", nil
	}
	if !status.Valid() {
		return "", fmt.Errorf("status %q: %w", raw, errors.Join(ErrInvalidRequest, domain.ErrInvalidStatus))
	}
	return status, nil
}

func outcome(res app.MutationResult) MutationOutcome {
	out := MutationOutcome{Persisted: res.Persisted}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	return out
}

// mapAppError maps app/domain errors into transport-facing error categories.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrUnknownCollection):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrAlreadyExists),
		errors.Is(err, app.ErrDepartmentInUse),
		errors.Is(err, app.ErrStoreNotEmpty):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidCodename),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrInvalidHours),
		errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrInvalidProjectID),
		errors.Is(err, domain.ErrInvalidTaskTypeID),
		errors.Is(err, domain.ErrInvalidTeamID),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrNoPhases),
		errors.Is(err, domain.ErrInvalidDependency),
		errors.Is(err, domain.ErrInvalidCollection),
		errors.Is(err, domain.ErrInvalidAction),
		errors.Is(err, schedule.ErrInvalidSortKey),
		errors.Is(err, app.ErrInvalidSnapshot):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
