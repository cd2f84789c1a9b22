package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrCacheMiss         = errors.New("snapshot cache is empty")
	ErrNotPersisted      = errors.New("change kept in memory only")
	ErrDepartmentInUse   = errors.New("department is referenced by task phases")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidSnapshot   = errors.New("invalid snapshot")
	ErrStoreNotEmpty     = errors.New("store already holds data")
)
