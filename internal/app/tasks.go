package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// SaveTask creates a task when in.ID is empty or unknown, and replaces it otherwise.
func (s *Service) SaveTask(ctx context.Context, in domain.TaskInput) (domain.Task, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveTask(ctx, in)
}

func (s *Service) saveTask(ctx context.Context, in domain.TaskInput) (domain.Task, MutationResult, error) {
	if strings.TrimSpace(in.ID) == "" {
		in.ID = s.idGen("t")
	}
	task, err := domain.NewTask(in)
	if err != nil {
		return domain.Task{}, MutationResult{}, err
	}

	prev, exists := s.Snapshot().Task(task.ID)
	op, err := saveOp(exists, domain.CollectionTasks, task.ID, task)
	if err != nil {
		return domain.Task{}, MutationResult{}, err
	}
	entry := activityInput{entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionCreate, newValue: task.Title}
	if exists {
		entry = activityInput{entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionUpdate, field: "task", oldValue: prev.Title, newValue: task.Title}
	}

	res := s.commit(ctx, mutation{
		ops:      []storeOp{op},
		apply:    func(d *domain.AppData) { d.Tasks = upsertByID(d.Tasks, task, taskKey) },
		activity: []domain.ActivityLogEntry{s.newActivity(entry)},
	})
	return task, res, nil
}

// DeleteTask removes one task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) (MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteTask(ctx, taskID)
}

func (s *Service) deleteTask(ctx context.Context, taskID string) (MutationResult, error) {
	task, ok := s.Snapshot().Task(strings.TrimSpace(taskID))
	if !ok {
		return MutationResult{}, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	return s.commit(ctx, mutation{
		ops:   []storeOp{deleteOp(domain.CollectionTasks, task.ID)},
		apply: func(d *domain.AppData) { d.Tasks = removeByID(d.Tasks, task.ID, taskKey) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionDelete, oldValue: task.Title,
		})},
	}), nil
}

// BulkUpdateStatus moves every non-done phase of the selected tasks to status. Unknown ids are
// skipped; the returned count is the number of tasks changed.
func (s *Service) BulkUpdateStatus(ctx context.Context, taskIDs []string, status domain.PhaseStatus) (int, MutationResult, error) {
	if !status.Valid() {
		return 0, MutationResult{}, domain.ErrInvalidStatus
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data := s.Snapshot()
	var (
		ops     []storeOp
		updated []domain.Task
		entries []domain.ActivityLogEntry
	)
	for _, id := range uniqueIDs(taskIDs) {
		task, ok := data.Task(id)
		if !ok {
			continue
		}
		for i := range task.Phases {
			if !task.Phases[i].Status.Done() {
				task.Phases[i].Status = status
			}
		}
		op, err := saveOp(true, domain.CollectionTasks, task.ID, task)
		if err != nil {
			return 0, MutationResult{}, err
		}
		ops = append(ops, op)
		updated = append(updated, task)
		entries = append(entries, s.newActivity(activityInput{
			entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionUpdate, field: "status", newValue: string(status),
		}))
	}
	if len(updated) == 0 {
		return 0, MutationResult{Persisted: true}, nil
	}
	res := s.commit(ctx, mutation{
		ops: ops,
		apply: func(d *domain.AppData) {
			for _, t := range updated {
				d.Tasks = upsertByID(d.Tasks, t, taskKey)
			}
		},
		activity: entries,
	})
	return len(updated), res, nil
}

// BulkDelete removes the selected tasks. Unknown ids are skipped.
func (s *Service) BulkDelete(ctx context.Context, taskIDs []string) (int, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data := s.Snapshot()
	var (
		ops     []storeOp
		removed = map[string]struct{}{}
		entries []domain.ActivityLogEntry
	)
	for _, id := range uniqueIDs(taskIDs) {
		task, ok := data.Task(id)
		if !ok {
			continue
		}
		ops = append(ops, deleteOp(domain.CollectionTasks, task.ID))
		removed[task.ID] = struct{}{}
		entries = append(entries, s.newActivity(activityInput{
			entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionDelete, oldValue: task.Title,
		}))
	}
	if len(ops) == 0 {
		return 0, MutationResult{Persisted: true}, nil
	}
	res := s.commit(ctx, mutation{
		ops: ops,
		apply: func(d *domain.AppData) {
			kept := d.Tasks[:0]
			for _, t := range d.Tasks {
				if _, drop := removed[t.ID]; !drop {
					kept = append(kept, t)
				}
			}
			d.Tasks = kept
		},
		activity: entries,
	})
	return len(ops), res, nil
}

// SetPhaseStatus changes the status of one phase. Dependencies are not enforced.
func (s *Service) SetPhaseStatus(ctx context.Context, taskID, phaseID string, status domain.PhaseStatus) (domain.Task, MutationResult, error) {
	if !status.Valid() {
		return domain.Task{}, MutationResult{}, domain.ErrInvalidStatus
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	task, ok := s.Snapshot().Task(strings.TrimSpace(taskID))
	if !ok {
		return domain.Task{}, MutationResult{}, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	idx := -1
	for i, p := range task.Phases {
		if p.ID == strings.TrimSpace(phaseID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Task{}, MutationResult{}, fmt.Errorf("phase %q: %w", phaseID, ErrNotFound)
	}
	old := task.Phases[idx].Status
	task.Phases[idx].Status = status

	op, err := saveOp(true, domain.CollectionTasks, task.ID, task)
	if err != nil {
		return domain.Task{}, MutationResult{}, err
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.Tasks = upsertByID(d.Tasks, task, taskKey) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionUpdate,
			field: "phase." + task.Phases[idx].ID + ".status", oldValue: string(old), newValue: string(status),
		})},
	})
	return task, res, nil
}

// AddPhase appends a blank phase for today to a task, owned by the first department and chained to
// the current last phase.
func (s *Service) AddPhase(ctx context.Context, taskID string) (domain.Task, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data := s.Snapshot()
	task, ok := data.Task(strings.TrimSpace(taskID))
	if !ok {
		return domain.Task{}, MutationResult{}, fmt.Errorf("task %q: %w", taskID, ErrNotFound)
	}
	before := len(task.Phases)
	now := s.clock()
	task.Phases = schedule.AppendDefaultPhase(task.Phases, data, now, strconv.FormatInt(now.UnixMilli(), 10))
	if err := task.Validate(); err != nil {
		return domain.Task{}, MutationResult{}, err
	}

	op, err := saveOp(true, domain.CollectionTasks, task.ID, task)
	if err != nil {
		return domain.Task{}, MutationResult{}, err
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.Tasks = upsertByID(d.Tasks, task, taskKey) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTask, entityID: task.ID, action: domain.ActionUpdate,
			field: "phases", oldValue: strconv.Itoa(before), newValue: strconv.Itoa(len(task.Phases)),
		})},
	})
	return task, res, nil
}

// TemplateTaskInput holds the fields a user supplies when creating a task from a template.
type TemplateTaskInput struct {
	ProjectID string
	Title     string
	Priority  domain.Priority
	Link      string
}

// InstantiateTemplate expands a stored template into phases for today without persisting anything.
func (s *Service) InstantiateTemplate(templateID string) ([]domain.TaskPhase, error) {
	data := s.Snapshot()
	tpl, ok := data.Template(strings.TrimSpace(templateID))
	if !ok {
		return nil, fmt.Errorf("template %q: %w", templateID, ErrNotFound)
	}
	now := s.clock()
	return schedule.InstantiateTemplate(tpl, data, now, strconv.FormatInt(now.UnixMilli(), 10)), nil
}

// CreateTaskFromTemplate instantiates a template and saves the result as a new task.
func (s *Service) CreateTaskFromTemplate(ctx context.Context, templateID string, in TemplateTaskInput) (domain.Task, MutationResult, error) {
	tpl, ok := s.Snapshot().Template(strings.TrimSpace(templateID))
	if !ok {
		return domain.Task{}, MutationResult{}, fmt.Errorf("template %q: %w", templateID, ErrNotFound)
	}
	phases, err := s.InstantiateTemplate(tpl.ID)
	if err != nil {
		return domain.Task{}, MutationResult{}, err
	}
	return s.SaveTask(ctx, domain.TaskInput{
		ProjectID:  in.ProjectID,
		TaskTypeID: tpl.TaskTypeID,
		Title:      in.Title,
		Phases:     phases,
		Link:       in.Link,
		Priority:   in.Priority,
	})
}

func upsertByID[T any](items []T, item T, idOf func(T) string) []T {
	id := idOf(item)
	for i := range items {
		if idOf(items[i]) == id {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func removeByID[T any](items []T, id string, idOf func(T) string) []T {
	out := items[:0]
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	return out
}

func uniqueIDs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func taskKey(t domain.Task) string { return t.ID }
