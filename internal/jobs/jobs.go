// Package jobs runs periodic background work for the server.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher reloads data from the entity store and rewrites the snapshot cache.
type Refresher interface {
	RefreshCache(context.Context) error
}

// Logger is the logging surface jobs write to.
type Logger interface {
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// Scheduler wraps a cron runner. Jobs never overlap with themselves.
type Scheduler struct {
	cron    *cron.Cron
	log     Logger
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler constructs a scheduler. timeout bounds each job run; zero means no bound.
func NewScheduler(log Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     log,
		timeout: timeout,
		entries: map[string]cron.EntryID{},
	}
}

// Add registers fn under name with a standard five-field spec or a descriptor such as "@every 15m".
func (s *Scheduler) Add(name, spec string, fn func(context.Context) error) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return errors.New("job schedule is required")
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.mu.Lock()
	s.entries[name] = id
	s.mu.Unlock()
	return nil
}

// AddCacheRefresh schedules periodic store reloads that keep the snapshot cache fresh.
func (s *Scheduler) AddCacheRefresh(spec string, r Refresher) error {
	return s.Add("cache_refresh", spec, r.RefreshCache)
}

// Next reports the next run time of a named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Warn("background job failed", "job", name, "err", err)
		return
	}
	s.log.Info("background job finished", "job", name, "elapsed", time.Since(start).Round(time.Millisecond))
}
