package app

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/hylla/metier/internal/domain"
)

// SaveDepartment creates a department when id is empty, and renames it otherwise.
func (s *Service) SaveDepartment(ctx context.Context, id, name string) (domain.Department, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveDepartment(ctx, id, name)
}

func (s *Service) saveDepartment(ctx context.Context, id, name string) (domain.Department, MutationResult, error) {
	if strings.TrimSpace(id) == "" {
		id = s.idGen("d")
	}
	dept, err := domain.NewDepartment(id, name)
	if err != nil {
		return domain.Department{}, MutationResult{}, err
	}
	prev, exists := s.Snapshot().Department(dept.ID)
	op, err := saveOp(exists, domain.CollectionDepartments, dept.ID, dept)
	if err != nil {
		return domain.Department{}, MutationResult{}, err
	}
	entry := activityInput{entityType: domain.EntityDepartment, entityID: dept.ID, action: domain.ActionCreate, newValue: dept.Name}
	if exists {
		entry = activityInput{entityType: domain.EntityDepartment, entityID: dept.ID, action: domain.ActionUpdate, field: "name", oldValue: prev.Name, newValue: dept.Name}
	}
	res := s.commit(ctx, mutation{
		ops:      []storeOp{op},
		apply:    func(d *domain.AppData) { d.Departments = upsertByID(d.Departments, dept, departmentID) },
		activity: []domain.ActivityLogEntry{s.newActivity(entry)},
	})
	return dept, res, nil
}

// DeleteDepartment removes a department that no phase references and drops its hour estimates
// from every task type.
func (s *Service) DeleteDepartment(ctx context.Context, id string) (MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteDepartment(ctx, id)
}

func (s *Service) deleteDepartment(ctx context.Context, id string) (MutationResult, error) {
	data := s.Snapshot()
	dept, ok := data.Department(strings.TrimSpace(id))
	if !ok {
		return MutationResult{}, fmt.Errorf("department %q: %w", id, ErrNotFound)
	}
	if data.DepartmentInUse(dept.ID) {
		return MutationResult{}, fmt.Errorf("department %q: %w", dept.Name, ErrDepartmentInUse)
	}

	ops := []storeOp{deleteOp(domain.CollectionDepartments, dept.ID)}
	var changed []domain.TaskTypeConfig
	for _, tt := range data.TaskTypes {
		if _, has := tt.EstimatedHours[dept.ID]; !has {
			continue
		}
		tt.EstimatedHours = maps.Clone(tt.EstimatedHours)
		delete(tt.EstimatedHours, dept.ID)
		op, err := saveOp(true, domain.CollectionTaskTypes, tt.ID, tt)
		if err != nil {
			return MutationResult{}, err
		}
		ops = append(ops, op)
		changed = append(changed, tt)
	}

	return s.commit(ctx, mutation{
		ops: ops,
		apply: func(d *domain.AppData) {
			d.Departments = removeByID(d.Departments, dept.ID, departmentID)
			for _, tt := range changed {
				d.TaskTypes = upsertByID(d.TaskTypes, tt, taskTypeID)
			}
		},
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityDepartment, entityID: dept.ID, action: domain.ActionDelete, oldValue: dept.Name,
		})},
	}), nil
}

// SaveUser creates a user when in.ID is empty, and replaces it otherwise.
func (s *Service) SaveUser(ctx context.Context, in domain.UserInput) (domain.User, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveUser(ctx, in)
}

func (s *Service) saveUser(ctx context.Context, in domain.UserInput) (domain.User, MutationResult, error) {
	if strings.TrimSpace(in.ID) == "" {
		in.ID = s.idGen("u")
	}
	user, err := domain.NewUser(in)
	if err != nil {
		return domain.User{}, MutationResult{}, err
	}
	_, exists := s.Snapshot().User(user.ID)
	op, err := saveOp(exists, domain.CollectionUsers, user.ID, user)
	if err != nil {
		return domain.User{}, MutationResult{}, err
	}
	action := domain.ActionCreate
	if exists {
		action = domain.ActionUpdate
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.Users = upsertByID(d.Users, user, userID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityUser, entityID: user.ID, action: action, newValue: user.Name,
		})},
	})
	return user, res, nil
}

// ToggleUserStatus flips a user between active and inactive.
func (s *Service) ToggleUserStatus(ctx context.Context, id string) (domain.User, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	user, ok := s.Snapshot().User(strings.TrimSpace(id))
	if !ok {
		return domain.User{}, MutationResult{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	old := user.Status
	user.Status = domain.UserActive
	if old == domain.UserActive {
		user.Status = domain.UserInactive
	}
	op, err := saveOp(true, domain.CollectionUsers, user.ID, user)
	if err != nil {
		return domain.User{}, MutationResult{}, err
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.Users = upsertByID(d.Users, user, userID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityUser, entityID: user.ID, action: domain.ActionUpdate,
			field: "status", oldValue: string(old), newValue: string(user.Status),
		})},
	})
	return user, res, nil
}

// DeleteUser removes a user. Phases assigned to them keep the dangling id.
func (s *Service) DeleteUser(ctx context.Context, id string) (MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteUser(ctx, id)
}

func (s *Service) deleteUser(ctx context.Context, id string) (MutationResult, error) {
	user, ok := s.Snapshot().User(strings.TrimSpace(id))
	if !ok {
		return MutationResult{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return s.commit(ctx, mutation{
		ops:   []storeOp{deleteOp(domain.CollectionUsers, user.ID)},
		apply: func(d *domain.AppData) { d.Users = removeByID(d.Users, user.ID, userID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityUser, entityID: user.ID, action: domain.ActionDelete, oldValue: user.Name,
		})},
	}), nil
}

// SaveProject creates a project when in.ID is empty, and replaces it otherwise.
func (s *Service) SaveProject(ctx context.Context, in domain.ProjectInput) (domain.Project, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveProject(ctx, in)
}

func (s *Service) saveProject(ctx context.Context, in domain.ProjectInput) (domain.Project, MutationResult, error) {
	if strings.TrimSpace(in.ID) == "" {
		in.ID = s.idGen("p")
	}
	project, err := domain.NewProject(in)
	if err != nil {
		return domain.Project{}, MutationResult{}, err
	}
	_, exists := s.Snapshot().Project(project.ID)
	op, err := saveOp(exists, domain.CollectionProjects, project.ID, project)
	if err != nil {
		return domain.Project{}, MutationResult{}, err
	}
	action := domain.ActionCreate
	if exists {
		action = domain.ActionUpdate
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.Projects = upsertByID(d.Projects, project, projectID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityProject, entityID: project.ID, action: action,
			newValue: project.Codename + ": " + project.Name,
		})},
	})
	return project, res, nil
}

// ToggleProjectStatus flips a project between active and closed.
func (s *Service) ToggleProjectStatus(ctx context.Context, id string) (domain.Project, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	project, ok := s.Snapshot().Project(strings.TrimSpace(id))
	if !ok {
		return domain.Project{}, MutationResult{}, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	old := project.Status
	project.Status = domain.ProjectActive
	if old == domain.ProjectActive {
		project.Status = domain.ProjectClosed
	}
	op, err := saveOp(true, domain.CollectionProjects, project.ID, project)
	if err != nil {
		return domain.Project{}, MutationResult{}, err
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.Projects = upsertByID(d.Projects, project, projectID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityProject, entityID: project.ID, action: domain.ActionUpdate,
			field: "status", oldValue: string(old), newValue: string(project.Status),
		})},
	})
	return project, res, nil
}

// DeleteProject removes a project. Its tasks keep the dangling id.
func (s *Service) DeleteProject(ctx context.Context, id string) (MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteProject(ctx, id)
}

func (s *Service) deleteProject(ctx context.Context, id string) (MutationResult, error) {
	project, ok := s.Snapshot().Project(strings.TrimSpace(id))
	if !ok {
		return MutationResult{}, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return s.commit(ctx, mutation{
		ops:   []storeOp{deleteOp(domain.CollectionProjects, project.ID)},
		apply: func(d *domain.AppData) { d.Projects = removeByID(d.Projects, project.ID, projectID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityProject, entityID: project.ID, action: domain.ActionDelete, oldValue: project.Codename,
		})},
	}), nil
}

// SaveTaskType creates a task type when id is empty, and replaces it otherwise.
func (s *Service) SaveTaskType(ctx context.Context, id, name string, hours map[string]int) (domain.TaskTypeConfig, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveTaskType(ctx, id, name, hours)
}

func (s *Service) saveTaskType(ctx context.Context, id, name string, hours map[string]int) (domain.TaskTypeConfig, MutationResult, error) {
	if strings.TrimSpace(id) == "" {
		id = s.idGen("tt")
	}
	tt, err := domain.NewTaskType(id, name, hours)
	if err != nil {
		return domain.TaskTypeConfig{}, MutationResult{}, err
	}
	_, exists := s.Snapshot().TaskType(tt.ID)
	op, err := saveOp(exists, domain.CollectionTaskTypes, tt.ID, tt)
	if err != nil {
		return domain.TaskTypeConfig{}, MutationResult{}, err
	}
	m := mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.TaskTypes = upsertByID(d.TaskTypes, tt, taskTypeID) },
	}
	if !exists {
		m.activity = []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTaskType, entityID: tt.ID, action: domain.ActionCreate, newValue: tt.Name,
		})}
	}
	return tt, s.commit(ctx, m), nil
}

// SetTaskTypeHours sets one team's estimate on a task type.
func (s *Service) SetTaskTypeHours(ctx context.Context, taskTypeID, departmentID string, hours int) (domain.TaskTypeConfig, MutationResult, error) {
	tt, ok := s.Snapshot().TaskType(strings.TrimSpace(taskTypeID))
	if !ok {
		return domain.TaskTypeConfig{}, MutationResult{}, fmt.Errorf("task type %q: %w", taskTypeID, ErrNotFound)
	}
	next := maps.Clone(tt.EstimatedHours)
	if next == nil {
		next = map[string]int{}
	}
	next[strings.TrimSpace(departmentID)] = hours
	return s.SaveTaskType(ctx, tt.ID, tt.Name, next)
}

// DeleteTaskType removes a task type. Tasks of that type estimate zero hours afterwards.
func (s *Service) DeleteTaskType(ctx context.Context, id string) (MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteTaskType(ctx, id)
}

func (s *Service) deleteTaskType(ctx context.Context, id string) (MutationResult, error) {
	tt, ok := s.Snapshot().TaskType(strings.TrimSpace(id))
	if !ok {
		return MutationResult{}, fmt.Errorf("task type %q: %w", id, ErrNotFound)
	}
	return s.commit(ctx, mutation{
		ops:   []storeOp{deleteOp(domain.CollectionTaskTypes, tt.ID)},
		apply: func(d *domain.AppData) { d.TaskTypes = removeByID(d.TaskTypes, tt.ID, taskTypeID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTaskType, entityID: tt.ID, action: domain.ActionDelete, oldValue: tt.Name,
		})},
	}), nil
}

// SaveTemplate creates a template when tpl.ID is empty, and replaces it otherwise.
func (s *Service) SaveTemplate(ctx context.Context, tpl domain.TaskTemplate) (domain.TaskTemplate, MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.saveTemplate(ctx, tpl)
}

func (s *Service) saveTemplate(ctx context.Context, tpl domain.TaskTemplate) (domain.TaskTemplate, MutationResult, error) {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		tpl.ID = s.idGen("tpl")
	}
	tpl.Name = strings.TrimSpace(tpl.Name)
	if err := tpl.Validate(); err != nil {
		return domain.TaskTemplate{}, MutationResult{}, err
	}
	_, exists := s.Snapshot().Template(tpl.ID)
	op, err := saveOp(exists, domain.CollectionTaskTemplates, tpl.ID, tpl)
	if err != nil {
		return domain.TaskTemplate{}, MutationResult{}, err
	}
	action := domain.ActionCreate
	if exists {
		action = domain.ActionUpdate
	}
	res := s.commit(ctx, mutation{
		ops:   []storeOp{op},
		apply: func(d *domain.AppData) { d.TaskTemplates = upsertByID(d.TaskTemplates, tpl, templateID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTemplate, entityID: tpl.ID, action: action, newValue: tpl.Name,
		})},
	})
	return tpl, res, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) (MutationResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.deleteTemplate(ctx, id)
}

func (s *Service) deleteTemplate(ctx context.Context, id string) (MutationResult, error) {
	tpl, ok := s.Snapshot().Template(strings.TrimSpace(id))
	if !ok {
		return MutationResult{}, fmt.Errorf("template %q: %w", id, ErrNotFound)
	}
	return s.commit(ctx, mutation{
		ops:   []storeOp{deleteOp(domain.CollectionTaskTemplates, tpl.ID)},
		apply: func(d *domain.AppData) { d.TaskTemplates = removeByID(d.TaskTemplates, tpl.ID, templateID) },
		activity: []domain.ActivityLogEntry{s.newActivity(activityInput{
			entityType: domain.EntityTemplate, entityID: tpl.ID, action: domain.ActionDelete, oldValue: tpl.Name,
		})},
	}), nil
}

func departmentID(d domain.Department) string   { return d.ID }
func userID(u domain.User) string               { return u.ID }
func projectID(p domain.Project) string         { return p.ID }
func taskTypeID(t domain.TaskTypeConfig) string { return t.ID }
func templateID(t domain.TaskTemplate) string   { return t.ID }
