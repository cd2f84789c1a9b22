package domain

import (
	"maps"
	"slices"
)

// AppData is the full snapshot every derived view is computed from.
type AppData struct {
	Projects      []Project          `json:"projects" yaml:"projects"`
	Departments   []Department       `json:"departments" yaml:"departments"`
	Users         []User             `json:"users" yaml:"users"`
	TaskTypes     []TaskTypeConfig   `json:"taskTypes" yaml:"taskTypes"`
	Tasks         []Task             `json:"tasks" yaml:"tasks"`
	ActivityLog   []ActivityLogEntry `json:"activityLog" yaml:"activityLog"`
	TaskTemplates []TaskTemplate     `json:"taskTemplates" yaml:"taskTemplates"`
}

// Lookups below never fail on dangling references; ok is false when the id is unknown.

func (d AppData) Department(id string) (Department, bool) {
	return find(d.Departments, func(x Department) bool { return x.ID == id })
}

func (d AppData) User(id string) (User, bool) {
	return find(d.Users, func(x User) bool { return x.ID == id })
}

func (d AppData) Project(id string) (Project, bool) {
	return find(d.Projects, func(x Project) bool { return x.ID == id })
}

func (d AppData) TaskType(id string) (TaskTypeConfig, bool) {
	return find(d.TaskTypes, func(x TaskTypeConfig) bool { return x.ID == id })
}

func (d AppData) Task(id string) (Task, bool) {
	return find(d.Tasks, func(x Task) bool { return x.ID == id })
}

func (d AppData) Template(id string) (TaskTemplate, bool) {
	return find(d.TaskTemplates, func(x TaskTemplate) bool { return x.ID == id })
}

// DepartmentName returns the team name or the fallback for unknown ids.
func (d AppData) DepartmentName(id, fallback string) string {
	if dept, ok := d.Department(id); ok {
		return dept.Name
	}
	return fallback
}

// UserName returns the user name or the fallback for unknown ids.
func (d AppData) UserName(id, fallback string) string {
	if u, ok := d.User(id); ok {
		return u.Name
	}
	return fallback
}

// FirstActiveUser returns the first active member of a team in collection order.
func (d AppData) FirstActiveUser(departmentID string) (User, bool) {
	return find(d.Users, func(x User) bool { return x.DepartmentID == departmentID && x.Active() })
}

// PhaseHours returns the estimated hours of one phase of task, 0 when the task type is unknown.
func (d AppData) PhaseHours(task Task, phase TaskPhase) int {
	tt, ok := d.TaskType(task.TaskTypeID)
	if !ok {
		return 0
	}
	return tt.HoursFor(phase.TeamID)
}

// DepartmentInUse reports whether any phase is assigned to the department.
func (d AppData) DepartmentInUse(departmentID string) bool {
	for _, t := range d.Tasks {
		for _, p := range t.Phases {
			if p.TeamID == departmentID {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (d AppData) Clone() AppData {
	out := AppData{
		Projects:      slices.Clone(d.Projects),
		Departments:   slices.Clone(d.Departments),
		Users:         make([]User, 0, len(d.Users)),
		TaskTypes:     make([]TaskTypeConfig, 0, len(d.TaskTypes)),
		Tasks:         make([]Task, 0, len(d.Tasks)),
		ActivityLog:   slices.Clone(d.ActivityLog),
		TaskTemplates: make([]TaskTemplate, 0, len(d.TaskTemplates)),
	}
	for _, u := range d.Users {
		u.Skills = slices.Clone(u.Skills)
		if u.Capacity != nil {
			c := *u.Capacity
			u.Capacity = &c
		}
		out.Users = append(out.Users, u)
	}
	for _, tt := range d.TaskTypes {
		tt.EstimatedHours = maps.Clone(tt.EstimatedHours)
		out.TaskTypes = append(out.TaskTypes, tt)
	}
	for _, t := range d.Tasks {
		out.Tasks = append(out.Tasks, t.Clone())
	}
	for _, tpl := range d.TaskTemplates {
		tpl.DefaultPhases = slices.Clone(tpl.DefaultPhases)
		out.TaskTemplates = append(out.TaskTemplates, tpl)
	}
	return out
}

func find[T any](items []T, match func(T) bool) (T, bool) {
	for _, it := range items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}
