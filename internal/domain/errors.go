package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidTitle      = errors.New("invalid title")
	ErrInvalidCodename   = errors.New("invalid codename")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidHours      = errors.New("invalid hours")
	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrInvalidProjectID  = errors.New("invalid project id")
	ErrInvalidTaskTypeID = errors.New("invalid task type id")
	ErrInvalidTeamID     = errors.New("invalid team id")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidDateRange  = errors.New("start date is after end date")
	ErrNoPhases          = errors.New("task requires at least one phase")
	ErrInvalidDependency = errors.New("phase dependency must reference a phase in the same task")
	ErrInvalidCollection = errors.New("invalid collection")
	ErrInvalidAction     = errors.New("invalid action")
)
