package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hylla/metier/internal/domain"
)

// IDGenerator returns a fresh identifier with the given prefix, e.g. "t" or "d".
type IDGenerator func(prefix string) string

// Clock returns the current time.
type Clock func() time.Time

// NewIDGenerator returns the default "<prefix>_<uuid>" generator.
func NewIDGenerator() IDGenerator {
	return func(prefix string) string {
		return prefix + "_" + uuid.NewString()
	}
}

// LoadSource names where the in-memory snapshot came from.
type LoadSource string

const (
	SourceNone  LoadSource = ""
	SourceStore LoadSource = "store"
	SourceCache LoadSource = "cache"
	SourceSeed  LoadSource = "seed"
)

// LoadResult reports the outcome of Load. Warning is set whenever the store could not be read.
type LoadResult struct {
	Source   LoadSource
	LoadedAt time.Time
	Warning  error
}

// MutationResult reports whether a change reached the store. When Persisted is false the change
// lives only in memory and Warning explains why.
type MutationResult struct {
	Persisted bool
	Warning   error
}

// ServiceConfig tunes store timeouts, activity attribution and the optional observer and logger.
type ServiceConfig struct {
	StoreTimeout time.Duration
	// ActorID is stamped on activity log entries.
	ActorID  string
	Observer Observer
	Logger   Logger
}

// Service owns the in-memory snapshot and routes every change through the entity store.
type Service struct {
	store   Store
	cache   SnapshotCache
	clock   Clock
	idGen   IDGenerator
	timeout time.Duration
	actorID string
	obs     Observer
	log     Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	data    domain.AppData
	source  LoadSource
}

// NewService wires a service over its ports. Nil clock, id generator, observer and logger fall back
// to time.Now, uuid ids and no-ops.
func NewService(store Store, cache SnapshotCache, clock Clock, idGen IDGenerator, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	if idGen == nil {
		idGen = NewIDGenerator()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &Service{
		store:   store,
		cache:   cache,
		clock:   clock,
		idGen:   idGen,
		timeout: cfg.StoreTimeout,
		actorID: cfg.ActorID,
		obs:     cfg.Observer,
		log:     cfg.Logger,
	}
}

// Load reads every collection from the store. On failure it falls back to the cached snapshot,
// then to the built-in seed. It only errors when the seed itself cannot be decoded.
func (s *Service) Load(ctx context.Context) (LoadResult, error) {
	data, err := s.fetchAll(ctx)
	if err == nil {
		s.replace(data, SourceStore)
		s.saveCache(ctx, data)
		s.obs.Loaded(SourceStore)
		return LoadResult{Source: SourceStore, LoadedAt: s.clock()}, nil
	}
	s.log.Warn("entity store unavailable, falling back", "err", err)
	warning := fmt.Errorf("load from store: %w", err)

	if s.cache != nil {
		cached, cacheErr := s.cache.Load(ctx)
		if cacheErr == nil {
			s.replace(cached, SourceCache)
			s.obs.Loaded(SourceCache)
			return LoadResult{Source: SourceCache, LoadedAt: s.clock(), Warning: warning}, nil
		}
		if !errors.Is(cacheErr, ErrCacheMiss) {
			s.log.Warn("snapshot cache unreadable", "err", cacheErr)
		}
	}

	seed, seedErr := SeedData()
	if seedErr != nil {
		return LoadResult{}, errors.Join(warning, seedErr)
	}
	s.replace(seed, SourceSeed)
	s.obs.Loaded(SourceSeed)
	return LoadResult{Source: SourceSeed, LoadedAt: s.clock(), Warning: warning}, nil
}

// Snapshot returns a deep copy of the in-memory data.
func (s *Service) Snapshot() domain.AppData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Source reports where the current snapshot was loaded from.
func (s *Service) Source() LoadSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Now exposes the service clock so presentation layers share one notion of today.
func (s *Service) Now() time.Time {
	return s.clock()
}

// RefreshCache reloads from the store and rewrites the cache. It leaves memory untouched on failure.
func (s *Service) RefreshCache(ctx context.Context) error {
	data, err := s.fetchAll(ctx)
	if err != nil {
		return err
	}
	s.replace(data, SourceStore)
	if s.cache == nil {
		return nil
	}
	return s.cache.Save(ctx, data)
}

func (s *Service) fetchAll(ctx context.Context) (domain.AppData, error) {
	if s.store == nil {
		return domain.AppData{}, errors.New("no entity store configured")
	}
	collections := domain.Collections()
	results := make([][]domain.Record, len(collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range collections {
		g.Go(func() error {
			opCtx, cancel := s.opContext(gctx)
			defer cancel()
			start := time.Now()
			records, err := s.store.GetAll(opCtx, c)
			s.obs.StoreOperation("get_all", c, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("get %s: %w", c, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AppData{}, err
	}
	byCollection := make(map[domain.Collection][]domain.Record, len(collections))
	for i, c := range collections {
		byCollection[c] = results[i]
	}
	return decodeAppData(byCollection)
}

func decodeAppData(in map[domain.Collection][]domain.Record) (domain.AppData, error) {
	var (
		out  domain.AppData
		errs []error
	)
	decode := func(c domain.Collection, fn func([]domain.Record) error) {
		if err := fn(in[c]); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", c, err))
		}
	}
	decode(domain.CollectionProjects, func(r []domain.Record) (err error) {
		out.Projects, err = domain.DecodeRecords[domain.Project](r)
		return err
	})
	decode(domain.CollectionDepartments, func(r []domain.Record) (err error) {
		out.Departments, err = domain.DecodeRecords[domain.Department](r)
		return err
	})
	decode(domain.CollectionUsers, func(r []domain.Record) (err error) {
		out.Users, err = domain.DecodeRecords[domain.User](r)
		return err
	})
	decode(domain.CollectionTaskTypes, func(r []domain.Record) (err error) {
		out.TaskTypes, err = domain.DecodeRecords[domain.TaskTypeConfig](r)
		return err
	})
	decode(domain.CollectionTasks, func(r []domain.Record) (err error) {
		out.Tasks, err = domain.DecodeRecords[domain.Task](r)
		return err
	})
	decode(domain.CollectionActivityLog, func(r []domain.Record) (err error) {
		out.ActivityLog, err = domain.DecodeRecords[domain.ActivityLogEntry](r)
		return err
	})
	decode(domain.CollectionTaskTemplates, func(r []domain.Record) (err error) {
		out.TaskTemplates, err = domain.DecodeRecords[domain.TaskTemplate](r)
		return err
	})
	if len(errs) > 0 {
		return domain.AppData{}, errors.Join(errs...)
	}
	sortActivityNewestFirst(out.ActivityLog)
	if len(out.ActivityLog) > domain.MaxActivityEntries {
		out.ActivityLog = out.ActivityLog[:domain.MaxActivityEntries]
	}
	return out, nil
}

func (s *Service) replace(data domain.AppData, source LoadSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.source = source
}

func (s *Service) saveCache(ctx context.Context, data domain.AppData) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, data); err != nil {
		s.log.Warn("snapshot cache write failed", "err", err)
	}
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// storeOp is one pending write against the entity store.
type storeOp struct {
	action     domain.Action
	collection domain.Collection
	id         string
	record     domain.Record
}

// mutation groups the store writes of one user action with its in-memory effect.
type mutation struct {
	ops      []storeOp
	apply    func(*domain.AppData)
	activity []domain.ActivityLogEntry
}

// commit writes every op, applies the change in memory regardless of the outcome, and reloads
// from the store when all writes succeeded.
func (s *Service) commit(ctx context.Context, m mutation) MutationResult {
	var errs []error
	var degraded domain.Collection
	for _, op := range m.ops {
		if err := s.exec(ctx, op); err != nil {
			s.log.Warn("store write failed", "action", op.action, "collection", op.collection, "id", op.id, "err", err)
			errs = append(errs, fmt.Errorf("%s %s %s: %w", op.action, op.collection, op.id, err))
			degraded = op.collection
		}
	}
	if actor, ok := ActorFromContext(ctx); ok {
		for i := range m.activity {
			m.activity[i].UserID = actor
		}
	}
	for _, entry := range m.activity {
		s.persistActivity(ctx, entry)
	}

	s.mu.Lock()
	if m.apply != nil {
		m.apply(&s.data)
	}
	for _, entry := range m.activity {
		s.data.ActivityLog = domain.PrependActivity(s.data.ActivityLog, entry)
	}
	s.mu.Unlock()

	if len(errs) > 0 {
		s.obs.Degraded(degraded)
		return MutationResult{Warning: fmt.Errorf("%w: %w", ErrNotPersisted, errors.Join(errs...))}
	}
	s.reconcile(ctx)
	return MutationResult{Persisted: true}
}

// exec runs one store write. The store is authoritative for existence: a create that collides is
// retried as an update, a missing row on update is retried as a create, and a missing row on delete
// counts as already gone.
func (s *Service) exec(ctx context.Context, op storeOp) error {
	if s.store == nil {
		return errors.New("no entity store configured")
	}
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	start := time.Now()
	var err error
	switch op.action {
	case domain.ActionCreate:
		_, err = s.store.Create(opCtx, op.collection, op.record)
		if errors.Is(err, ErrAlreadyExists) {
			_, err = s.store.Update(opCtx, op.collection, op.id, op.record)
		}
	case domain.ActionUpdate:
		_, err = s.store.Update(opCtx, op.collection, op.id, op.record)
		if errors.Is(err, ErrNotFound) {
			_, err = s.store.Create(opCtx, op.collection, op.record)
		}
	case domain.ActionDelete:
		err = s.store.Delete(opCtx, op.collection, op.id)
		if errors.Is(err, ErrNotFound) {
			err = nil
		}
	default:
		err = domain.ErrInvalidAction
	}
	s.obs.StoreOperation(string(op.action), op.collection, time.Since(start), err)
	return err
}

func (s *Service) reconcile(ctx context.Context) {
	data, err := s.fetchAll(ctx)
	if err != nil {
		s.log.Warn("reload after write failed, keeping in-memory snapshot", "err", err)
		return
	}
	s.mu.Lock()
	// Activity entries are written best effort; keep any the store did not return.
	data.ActivityLog = mergeActivity(data.ActivityLog, s.data.ActivityLog)
	s.data = data
	s.source = SourceStore
	s.mu.Unlock()
	s.saveCache(ctx, data)
}

func saveOp(exists bool, c domain.Collection, id string, v any) (storeOp, error) {
	record, err := domain.EncodeRecord(v)
	if err != nil {
		return storeOp{}, err
	}
	action := domain.ActionCreate
	if exists {
		action = domain.ActionUpdate
	}
	return storeOp{action: action, collection: c, id: id, record: record}, nil
}

func deleteOp(c domain.Collection, id string) storeOp {
	return storeOp{action: domain.ActionDelete, collection: c, id: id}
}
