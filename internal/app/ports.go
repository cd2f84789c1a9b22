package app

import (
	"context"
	"time"

	"github.com/hylla/metier/internal/domain"
)

// Store is the entity store. Records are flat and keyed by wire field names.
// Update and Delete return ErrNotFound when the id is absent.
type Store interface {
	GetAll(context.Context, domain.Collection) ([]domain.Record, error)
	Create(context.Context, domain.Collection, domain.Record) (domain.Record, error)
	Update(context.Context, domain.Collection, string, domain.Record) (domain.Record, error)
	Delete(context.Context, domain.Collection, string) error
}

// SnapshotCache keeps the last known-good snapshot. Load returns ErrCacheMiss when nothing is cached.
type SnapshotCache interface {
	Load(context.Context) (domain.AppData, error)
	Save(context.Context, domain.AppData) error
}

// Observer receives store outcomes. Implementations must be safe for concurrent use.
type Observer interface {
	StoreOperation(op string, collection domain.Collection, elapsed time.Duration, err error)
	Loaded(source LoadSource)
	Degraded(collection domain.Collection)
}

// Logger is the structured logging surface the service writes to.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

type nopObserver struct{}

func (nopObserver) StoreOperation(string, domain.Collection, time.Duration, error) {}
func (nopObserver) Loaded(LoadSource)                                              {}
func (nopObserver) Degraded(domain.Collection)                                     {}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}
