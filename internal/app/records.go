package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylla/metier/internal/domain"
)

// recordKind binds one collection to its typed entity.
type recordKind struct {
	prefix string
	// normalize decodes and validates a record, returning the entity id and its canonical record.
	normalize func(domain.Record) (string, domain.Record, error)
	exists    func(domain.AppData, string) bool
	list      func(domain.AppData) ([]domain.Record, error)
	upsert    func(*domain.AppData, domain.Record) error
	remove    func(*domain.AppData, string)
	// save and drop run the collection's typed mutation with writeMu already held. Nil means a
	// plain record write.
	save func(*Service, context.Context, domain.Record) (domain.Record, MutationResult, error)
	drop func(*Service, context.Context, string) (MutationResult, error)
}

// withMutations attaches the typed save and delete of one collection to k.
func withMutations[T any](k recordKind, save func(*Service, context.Context, T) (T, MutationResult, error), drop func(*Service, context.Context, string) (MutationResult, error)) recordKind {
	k.save = func(s *Service, ctx context.Context, r domain.Record) (domain.Record, MutationResult, error) {
		v, err := domain.DecodeRecord[T](r)
		if err != nil {
			return nil, MutationResult{}, err
		}
		saved, res, err := save(s, ctx, v)
		if err != nil {
			return nil, MutationResult{}, err
		}
		out, err := domain.EncodeRecord(saved)
		if err != nil {
			return nil, MutationResult{}, err
		}
		return out, res, nil
	}
	k.drop = drop
	return k
}

func kindOf[T any](prefix string, validate func(T) error, idOf func(T) string, items func(*domain.AppData) *[]T) recordKind {
	return recordKind{
		prefix: prefix,
		normalize: func(r domain.Record) (string, domain.Record, error) {
			v, err := domain.DecodeRecord[T](r)
			if err != nil {
				return "", nil, err
			}
			if err := validate(v); err != nil {
				return "", nil, err
			}
			out, err := domain.EncodeRecord(v)
			return idOf(v), out, err
		},
		exists: func(d domain.AppData, id string) bool {
			for _, it := range *items(&d) {
				if idOf(it) == id {
					return true
				}
			}
			return false
		},
		list: func(d domain.AppData) ([]domain.Record, error) {
			return domain.EncodeRecords(*items(&d))
		},
		upsert: func(d *domain.AppData, r domain.Record) error {
			v, err := domain.DecodeRecord[T](r)
			if err != nil {
				return err
			}
			*items(d) = upsertByID(*items(d), v, idOf)
			return nil
		},
		remove: func(d *domain.AppData, id string) {
			*items(d) = removeByID(*items(d), id, idOf)
		},
	}
}

var recordKinds = map[domain.Collection]recordKind{
	domain.CollectionProjects: withMutations(
		kindOf("p", domain.Project.Validate, projectID,
			func(d *domain.AppData) *[]domain.Project { return &d.Projects }),
		func(s *Service, ctx context.Context, p domain.Project) (domain.Project, MutationResult, error) {
			return s.saveProject(ctx, domain.ProjectInput{ID: p.ID, Codename: p.Codename, Name: p.Name, Owner: p.Owner, Status: p.Status})
		},
		(*Service).deleteProject),
	domain.CollectionDepartments: withMutations(
		kindOf("d", domain.Department.Validate, departmentID,
			func(d *domain.AppData) *[]domain.Department { return &d.Departments }),
		func(s *Service, ctx context.Context, d domain.Department) (domain.Department, MutationResult, error) {
			return s.saveDepartment(ctx, d.ID, d.Name)
		},
		(*Service).deleteDepartment),
	domain.CollectionUsers: withMutations(
		kindOf("u", domain.User.Validate, userID,
			func(d *domain.AppData) *[]domain.User { return &d.Users }),
		func(s *Service, ctx context.Context, u domain.User) (domain.User, MutationResult, error) {
			return s.saveUser(ctx, domain.UserInput{
				ID: u.ID, Name: u.Name, DepartmentID: u.DepartmentID, Role: u.Role,
				Status: u.Status, Skills: u.Skills, Capacity: u.Capacity,
			})
		},
		(*Service).deleteUser),
	domain.CollectionTaskTypes: withMutations(
		kindOf("tt", domain.TaskTypeConfig.Validate, taskTypeID,
			func(d *domain.AppData) *[]domain.TaskTypeConfig { return &d.TaskTypes }),
		func(s *Service, ctx context.Context, tt domain.TaskTypeConfig) (domain.TaskTypeConfig, MutationResult, error) {
			return s.saveTaskType(ctx, tt.ID, tt.Name, tt.EstimatedHours)
		},
		(*Service).deleteTaskType),
	domain.CollectionTasks: withMutations(
		kindOf("t", domain.Task.Validate, taskKey,
			func(d *domain.AppData) *[]domain.Task { return &d.Tasks }),
		func(s *Service, ctx context.Context, t domain.Task) (domain.Task, MutationResult, error) {
			return s.saveTask(ctx, domain.TaskInput{
				ID: t.ID, ProjectID: t.ProjectID, TaskTypeID: t.TaskTypeID, Title: t.Title,
				Phases: t.Phases, Link: t.Link, Priority: t.Priority, DelayReason: t.DelayReason,
			})
		},
		(*Service).deleteTask),
	domain.CollectionActivityLog: kindOf("log", validateActivity, func(e domain.ActivityLogEntry) string { return e.ID },
		func(d *domain.AppData) *[]domain.ActivityLogEntry { return &d.ActivityLog }),
	domain.CollectionTaskTemplates: withMutations(
		kindOf("tpl", domain.TaskTemplate.Validate, templateID,
			func(d *domain.AppData) *[]domain.TaskTemplate { return &d.TaskTemplates }),
		(*Service).saveTemplate,
		(*Service).deleteTemplate),
}

func validateActivity(e domain.ActivityLogEntry) error {
	if strings.TrimSpace(e.ID) == "" {
		return domain.ErrInvalidID
	}
	if !e.Action.Valid() {
		return domain.ErrInvalidAction
	}
	return nil
}

func lookupKind(c domain.Collection) (recordKind, error) {
	k, ok := recordKinds[c]
	if !ok {
		return recordKind{}, fmt.Errorf("%q: %w", c, ErrUnknownCollection)
	}
	return k, nil
}

// ListRecords returns one collection of the in-memory snapshot as flat records.
func (s *Service) ListRecords(_ context.Context, c domain.Collection) ([]domain.Record, error) {
	k, err := lookupKind(c)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return k.list(s.data)
}

// CreateRecord validates a record as its typed entity and stores it through that entity's save
// mutation. A missing id is generated.
func (s *Service) CreateRecord(ctx context.Context, c domain.Collection, r domain.Record) (domain.Record, MutationResult, error) {
	k, err := lookupKind(c)
	if err != nil {
		return nil, MutationResult{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	r = cloneRecord(r)
	if r.ID() == "" {
		r["id"] = s.idGen(k.prefix)
	}
	if k.exists(s.Snapshot(), r.ID()) {
		return nil, MutationResult{}, fmt.Errorf("%s %q: %w", c, r.ID(), ErrAlreadyExists)
	}
	if k.save != nil {
		return k.save(s, ctx, r)
	}
	id, normalized, err := k.normalize(r)
	if err != nil {
		return nil, MutationResult{}, err
	}
	return normalized, s.commitRecord(ctx, k, storeOp{action: domain.ActionCreate, collection: c, id: id, record: normalized}), nil
}

// UpdateRecord replaces an existing record. The id in the path wins over any id in the body.
func (s *Service) UpdateRecord(ctx context.Context, c domain.Collection, id string, r domain.Record) (domain.Record, MutationResult, error) {
	k, err := lookupKind(c)
	if err != nil {
		return nil, MutationResult{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id = strings.TrimSpace(id)
	if !k.exists(s.Snapshot(), id) {
		return nil, MutationResult{}, fmt.Errorf("%s %q: %w", c, id, ErrNotFound)
	}
	r = cloneRecord(r)
	r["id"] = id
	if k.save != nil {
		return k.save(s, ctx, r)
	}
	_, normalized, err := k.normalize(r)
	if err != nil {
		return nil, MutationResult{}, err
	}
	return normalized, s.commitRecord(ctx, k, storeOp{action: domain.ActionUpdate, collection: c, id: id, record: normalized}), nil
}

// DeleteRecord removes an existing record.
func (s *Service) DeleteRecord(ctx context.Context, c domain.Collection, id string) (MutationResult, error) {
	k, err := lookupKind(c)
	if err != nil {
		return MutationResult{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id = strings.TrimSpace(id)
	if !k.exists(s.Snapshot(), id) {
		return MutationResult{}, fmt.Errorf("%s %q: %w", c, id, ErrNotFound)
	}
	if k.drop != nil {
		return k.drop(s, ctx, id)
	}
	return s.commitRecord(ctx, k, deleteOp(c, id)), nil
}

func (s *Service) commitRecord(ctx context.Context, k recordKind, op storeOp) MutationResult {
	return s.commit(ctx, mutation{
		ops: []storeOp{op},
		apply: func(d *domain.AppData) {
			if op.action == domain.ActionDelete {
				k.remove(d, op.id)
				return
			}
			if err := k.upsert(d, op.record); err != nil {
				s.log.Error("apply record", "collection", op.collection, "id", op.id, "err", err)
			}
		},
	})
}

func cloneRecord(r domain.Record) domain.Record {
	out := make(domain.Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
