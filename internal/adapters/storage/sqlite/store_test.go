package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
)

func TestStoreRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "metier.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	task := domain.Task{
		ID: "t1", ProjectID: "p1", TaskTypeID: "tt1", Title: "Landing", Priority: domain.PriorityHigh,
		Phases: []domain.TaskPhase{
			{ID: "ph1", TeamID: "d1", UserID: "u1", StartDate: "2026-03-09", EndDate: "2026-03-11", Status: domain.StatusStarted, Order: 1},
			{ID: "ph2", TeamID: "d2", StartDate: "2026-03-12", EndDate: "2026-03-14", Status: domain.StatusNotStarted, Order: 2, DependsOn: "ph1"},
		},
	}
	rec, err := domain.EncodeRecord(task)
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	if _, err := store.Create(ctx, domain.CollectionTasks, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, domain.CollectionTasks, rec); !errors.Is(err, app.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	rows, err := store.GetAll(ctx, domain.CollectionTasks)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 task row, got %d", len(rows))
	}
	loaded, err := domain.DecodeRecord[domain.Task](rows[0])
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if len(loaded.Phases) != 2 || loaded.Phases[1].DependsOn != "ph1" || loaded.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected loaded task %#v", loaded)
	}

	task.Title = "Landing v2"
	rec, _ = domain.EncodeRecord(task)
	rec["id"] = "ignored"
	updated, err := store.Update(ctx, domain.CollectionTasks, "t1", rec)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID() != "t1" || updated["title"] != "Landing v2" {
		t.Fatalf("unexpected updated record %#v", updated)
	}
	if _, err := store.Update(ctx, domain.CollectionTasks, "missing", rec); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}

	if err := store.Delete(ctx, domain.CollectionTasks, "t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, domain.CollectionTasks, "t1"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestStoreKeepsInsertionOrderAndAbsentCells(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, id := range []string{"d3", "d1", "d2"} {
		if _, err := store.Create(ctx, domain.CollectionDepartments, domain.Record{"id": id, "name": "Team " + id}); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}
	if _, err := store.Update(ctx, domain.CollectionDepartments, "d3", domain.Record{"name": "Renamed"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	rows, err := store.GetAll(ctx, domain.CollectionDepartments)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	got := []string{rows[0].ID(), rows[1].ID(), rows[2].ID()}
	if got[0] != "d3" || got[1] != "d1" || got[2] != "d2" {
		t.Fatalf("expected insertion order, got %v", got)
	}
	if rows[0]["name"] != "Renamed" {
		t.Fatalf("expected in-place update, got %#v", rows[0])
	}

	if _, err := store.Create(ctx, domain.CollectionProjects, domain.Record{"id": "p1", "codename": "PHX", "name": "Phoenix", "status": "active"}); err != nil {
		t.Fatalf("Create(project) error = %v", err)
	}
	projects, err := store.GetAll(ctx, domain.CollectionProjects)
	if err != nil {
		t.Fatalf("GetAll(projects) error = %v", err)
	}
	if _, ok := projects[0]["owner"]; ok {
		t.Fatalf("expected empty owner cell to be absent, got %#v", projects[0])
	}
}

func TestStoreRejectsUnknownCollection(t *testing.T) {
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if _, err := store.GetAll(context.Background(), "widgets"); !errors.Is(err, domain.ErrInvalidCollection) {
		t.Fatalf("expected ErrInvalidCollection, got %v", err)
	}
}

// TestStoreBacksService runs the application service against a real database.
func TestStoreBacksService(t *testing.T) {
	ctx := context.Background()
	store, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	svc := app.NewService(store, nil, nil, nil, app.ServiceConfig{})
	if _, err := svc.SeedStore(ctx, false); err != nil {
		t.Fatalf("SeedStore() error = %v", err)
	}
	res, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != app.SourceStore {
		t.Fatalf("expected store source, got %q", res.Source)
	}
	seed, _ := app.SeedData()
	data := svc.Snapshot()
	if len(data.Tasks) != len(seed.Tasks) || len(data.Users) != len(seed.Users) {
		t.Fatalf("unexpected loaded counts tasks=%d users=%d", len(data.Tasks), len(data.Users))
	}
	if _, err := svc.DeleteTask(ctx, seed.Tasks[0].ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	rows, err := store.GetAll(ctx, domain.CollectionTasks)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(rows) != len(seed.Tasks)-1 {
		t.Fatalf("expected task deleted from store, got %d rows", len(rows))
	}
}
