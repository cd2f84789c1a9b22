package domain

import "slices"

// PhaseStatus is the lifecycle state of one task phase.
type PhaseStatus string

const (
	StatusNotStarted PhaseStatus = "NOT_STARTED"
	StatusStarted    PhaseStatus = "STARTED"
	StatusBlocked    PhaseStatus = "BLOCKED"
	StatusHold       PhaseStatus = "HOLD"
	StatusRevision   PhaseStatus = "REVISION"
	StatusDone       PhaseStatus = "DONE"
)

var phaseStatuses = []PhaseStatus{
	StatusNotStarted,
	StatusStarted,
	StatusBlocked,
	StatusHold,
	StatusRevision,
	StatusDone,
}

// PhaseStatuses returns every status in display order.
func PhaseStatuses() []PhaseStatus {
	return slices.Clone(phaseStatuses)
}

// Valid reports whether the status is one of the known values.
func (s PhaseStatus) Valid() bool {
	return slices.Contains(phaseStatuses, s)
}

// Done reports whether the phase no longer counts toward schedule risk or workload.
func (s PhaseStatus) Done() bool {
	return s == StatusDone
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return slices.Clone(validPriorities)
}

func (p Priority) Valid() bool {
	return slices.Contains(validPriorities, p)
}

// OrDefault returns medium for an unset priority.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserInactive
}

type ProjectStatus string

const (
	ProjectActive ProjectStatus = "active"
	ProjectClosed ProjectStatus = "closed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectClosed
}

// Health is the derived schedule-risk classification of a task.
type Health string

const (
	HealthOnTrack Health = "ON_TRACK"
	HealthAtRisk  Health = "AT_RISK"
	HealthDelayed Health = "DELAYED"
)

// Severity orders health values so the worst one can be selected.
func (h Health) Severity() int {
	switch h {
	case HealthDelayed:
		return 2
	case HealthAtRisk:
		return 1
	default:
		return 0
	}
}

// EntityType names the kind of entity an activity log entry refers to.
type EntityType string

const (
	EntityTask       EntityType = "task"
	EntityProject    EntityType = "project"
	EntityUser       EntityType = "user"
	EntityDepartment EntityType = "department"
	EntityTaskType   EntityType = "taskType"
	EntityTemplate   EntityType = "taskTemplate"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}
