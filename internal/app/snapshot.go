package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hylla/metier/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "metier.snapshot.v1"

// Snapshot is the portable export of every collection.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	domain.AppData
}

// ExportSnapshot captures the in-memory data.
func (s *Service) ExportSnapshot() Snapshot {
	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		AppData:    s.Snapshot(),
	}
}

// ImportSnapshot upserts every entity of snap into the store and memory. Entities absent from the
// snapshot are left alone.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) (MutationResult, error) {
	if err := snap.Validate(); err != nil {
		return MutationResult{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.Snapshot()
	var ops []storeOp
	add := func(c domain.Collection, id string, exists bool, v any) error {
		op, err := saveOp(exists, c, id, v)
		if err != nil {
			return err
		}
		ops = append(ops, op)
		return nil
	}
	for _, d := range snap.Departments {
		_, ok := current.Department(d.ID)
		if err := add(domain.CollectionDepartments, d.ID, ok, d); err != nil {
			return MutationResult{}, err
		}
	}
	for _, u := range snap.Users {
		_, ok := current.User(u.ID)
		if err := add(domain.CollectionUsers, u.ID, ok, u); err != nil {
			return MutationResult{}, err
		}
	}
	for _, p := range snap.Projects {
		_, ok := current.Project(p.ID)
		if err := add(domain.CollectionProjects, p.ID, ok, p); err != nil {
			return MutationResult{}, err
		}
	}
	for _, tt := range snap.TaskTypes {
		_, ok := current.TaskType(tt.ID)
		if err := add(domain.CollectionTaskTypes, tt.ID, ok, tt); err != nil {
			return MutationResult{}, err
		}
	}
	for _, tpl := range snap.TaskTemplates {
		_, ok := current.Template(tpl.ID)
		if err := add(domain.CollectionTaskTemplates, tpl.ID, ok, tpl); err != nil {
			return MutationResult{}, err
		}
	}
	for _, t := range snap.Tasks {
		_, ok := current.Task(t.ID)
		if err := add(domain.CollectionTasks, t.ID, ok, t); err != nil {
			return MutationResult{}, err
		}
	}
	known := make(map[string]struct{}, len(current.ActivityLog))
	for _, e := range current.ActivityLog {
		known[e.ID] = struct{}{}
	}
	for _, e := range snap.ActivityLog {
		if _, ok := known[e.ID]; ok {
			continue
		}
		if err := add(domain.CollectionActivityLog, e.ID, false, e); err != nil {
			return MutationResult{}, err
		}
	}

	imported := snap.AppData.Clone()
	return s.commit(ctx, mutation{
		ops: ops,
		apply: func(d *domain.AppData) {
			for _, v := range imported.Departments {
				d.Departments = upsertByID(d.Departments, v, departmentID)
			}
			for _, v := range imported.Users {
				d.Users = upsertByID(d.Users, v, userID)
			}
			for _, v := range imported.Projects {
				d.Projects = upsertByID(d.Projects, v, projectID)
			}
			for _, v := range imported.TaskTypes {
				d.TaskTypes = upsertByID(d.TaskTypes, v, taskTypeID)
			}
			for _, v := range imported.TaskTemplates {
				d.TaskTemplates = upsertByID(d.TaskTemplates, v, templateID)
			}
			for _, v := range imported.Tasks {
				d.Tasks = upsertByID(d.Tasks, v, taskKey)
			}
			d.ActivityLog = mergeActivity(d.ActivityLog, imported.ActivityLog)
		},
	}), nil
}

// Validate checks the version, every entity and id uniqueness per collection.
func (snap *Snapshot) Validate() error {
	if snap.Version != "" && snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, snap.Version)
	}
	check := func(c domain.Collection, n int, idAt func(int) string, validate func(int) error) error {
		seen := make(map[string]struct{}, n)
		for i := range n {
			if err := validate(i); err != nil {
				return fmt.Errorf("%w: %s[%d]: %w", ErrInvalidSnapshot, c, i, err)
			}
			id := strings.TrimSpace(idAt(i))
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidSnapshot, c, id)
			}
			seen[id] = struct{}{}
		}
		return nil
	}
	d := snap.AppData
	checks := []error{
		check(domain.CollectionProjects, len(d.Projects), func(i int) string { return d.Projects[i].ID }, func(i int) error { return d.Projects[i].Validate() }),
		check(domain.CollectionDepartments, len(d.Departments), func(i int) string { return d.Departments[i].ID }, func(i int) error { return d.Departments[i].Validate() }),
		check(domain.CollectionUsers, len(d.Users), func(i int) string { return d.Users[i].ID }, func(i int) error { return d.Users[i].Validate() }),
		check(domain.CollectionTaskTypes, len(d.TaskTypes), func(i int) string { return d.TaskTypes[i].ID }, func(i int) error { return d.TaskTypes[i].Validate() }),
		check(domain.CollectionTasks, len(d.Tasks), func(i int) string { return d.Tasks[i].ID }, func(i int) error { return d.Tasks[i].Validate() }),
		check(domain.CollectionTaskTemplates, len(d.TaskTemplates), func(i int) string { return d.TaskTemplates[i].ID }, func(i int) error { return d.TaskTemplates[i].Validate() }),
		check(domain.CollectionActivityLog, len(d.ActivityLog), func(i int) string { return d.ActivityLog[i].ID }, func(i int) error { return validateActivity(d.ActivityLog[i]) }),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteSnapshot encodes snap as indented JSON.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadSnapshot decodes a snapshot and validates it.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
