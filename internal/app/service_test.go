package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

var errStoreDown = errors.New("store down")

type fakeStore struct {
	mu         sync.Mutex
	rows       map[domain.Collection][]domain.Record
	failReads  bool
	failWrites bool
	writes     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[domain.Collection][]domain.Record{}}
}

func (f *fakeStore) GetAll(_ context.Context, c domain.Collection) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return nil, errStoreDown
	}
	out := make([]domain.Record, 0, len(f.rows[c]))
	for _, r := range f.rows[c] {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, c domain.Collection, r domain.Record) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return nil, errStoreDown
	}
	f.writes++
	f.rows[c] = append(f.rows[c], cloneRecord(r))
	return r, nil
}

func (f *fakeStore) Update(_ context.Context, c domain.Collection, id string, r domain.Record) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return nil, errStoreDown
	}
	for i, row := range f.rows[c] {
		if row.ID() == id {
			f.writes++
			f.rows[c][i] = cloneRecord(r)
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, c domain.Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errStoreDown
	}
	for i, row := range f.rows[c] {
		if row.ID() == id {
			f.writes++
			f.rows[c] = append(f.rows[c][:i], f.rows[c][i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) seed(t *testing.T, data domain.AppData) {
	t.Helper()
	put := func(c domain.Collection, records []domain.Record, err error) {
		if err != nil {
			t.Fatalf("EncodeRecords(%s) error = %v", c, err)
		}
		f.rows[c] = records
	}
	r, err := domain.EncodeRecords(data.Projects)
	put(domain.CollectionProjects, r, err)
	r, err = domain.EncodeRecords(data.Departments)
	put(domain.CollectionDepartments, r, err)
	r, err = domain.EncodeRecords(data.Users)
	put(domain.CollectionUsers, r, err)
	r, err = domain.EncodeRecords(data.TaskTypes)
	put(domain.CollectionTaskTypes, r, err)
	r, err = domain.EncodeRecords(data.Tasks)
	put(domain.CollectionTasks, r, err)
	r, err = domain.EncodeRecords(data.TaskTemplates)
	put(domain.CollectionTaskTemplates, r, err)
}

func (f *fakeStore) count(c domain.Collection) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[c])
}

type fakeCache struct {
	data  *domain.AppData
	saves int
}

func (c *fakeCache) Load(context.Context) (domain.AppData, error) {
	if c.data == nil {
		return domain.AppData{}, ErrCacheMiss
	}
	return c.data.Clone(), nil
}

func (c *fakeCache) Save(_ context.Context, d domain.AppData) error {
	clone := d.Clone()
	c.data = &clone
	c.saves++
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	loaded   []LoadSource
	degraded int
}

func (o *recordingObserver) StoreOperation(string, domain.Collection, time.Duration, error) {}

func (o *recordingObserver) Loaded(src LoadSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, src)
}

func (o *recordingObserver) Degraded(domain.Collection) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded++
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

// tickingClock starts at testNow and advances one second per call so activity entries order.
func tickingClock() Clock {
	var mu sync.Mutex
	next := testNow
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func sequentialIDs() IDGenerator {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

func testData() domain.AppData {
	return domain.AppData{
		Projects:    []domain.Project{{ID: "p1", Codename: "PHOENIX", Name: "Phoenix", Status: domain.ProjectActive}},
		Departments: []domain.Department{{ID: "d1", Name: "Design"}, {ID: "d2", Name: "Dev"}},
		Users: []domain.User{
			{ID: "u1", Name: "Ann", DepartmentID: "d1", Role: domain.RoleAdmin, Status: domain.UserActive},
			{ID: "u2", Name: "Ben", DepartmentID: "d2", Role: domain.RoleUser, Status: domain.UserActive},
		},
		TaskTypes: []domain.TaskTypeConfig{{ID: "tt1", Name: "Feature", EstimatedHours: map[string]int{"d1": 8, "d2": 16}}},
		Tasks: []domain.Task{{
			ID: "t1", ProjectID: "p1", TaskTypeID: "tt1", Title: "Landing", Priority: domain.PriorityHigh,
			Phases: []domain.TaskPhase{
				{ID: "ph1", TeamID: "d1", UserID: "u1", StartDate: "2026-03-09", EndDate: "2026-03-11", Status: domain.StatusStarted, Order: 1},
				{ID: "ph2", TeamID: "d2", UserID: "u2", StartDate: "2026-03-12", EndDate: "2026-03-14", Status: domain.StatusNotStarted, Order: 2, DependsOn: "ph1"},
			},
		}},
		TaskTemplates: []domain.TaskTemplate{{ID: "tpl1", Name: "Web", TaskTypeID: "tt1", DefaultPhases: []domain.PhaseBlueprint{
			{TeamID: "d1", Order: 1},
			{TeamID: "d2", Order: 2, DependsOnPrev: true},
		}}},
	}
}

func newLoadedService(t *testing.T) (*Service, *fakeStore, *fakeCache) {
	t.Helper()
	store := newFakeStore()
	store.seed(t, testData())
	cache := &fakeCache{}
	svc := NewService(store, cache, tickingClock(), sequentialIDs(), ServiceConfig{ActorID: "u1"})
	res, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceStore {
		t.Fatalf("expected store source, got %q", res.Source)
	}
	return svc, store, cache
}

func TestLoadFromStoreWritesCache(t *testing.T) {
	svc, _, cache := newLoadedService(t)
	if cache.saves != 1 || cache.data == nil {
		t.Fatalf("expected cache write after load, saves=%d", cache.saves)
	}
	data := svc.Snapshot()
	if len(data.Tasks) != 1 || len(data.Tasks[0].Phases) != 2 {
		t.Fatalf("unexpected loaded tasks %#v", data.Tasks)
	}
	if data.Tasks[0].Phases[1].DependsOn != "ph1" {
		t.Fatalf("expected nested phases to round-trip, got %#v", data.Tasks[0].Phases[1])
	}
}

func TestLoadFallsBackToCacheThenSeed(t *testing.T) {
	store := newFakeStore()
	store.failReads = true
	cached := testData()
	cache := &fakeCache{data: &cached}
	obs := &recordingObserver{}
	svc := NewService(store, cache, func() time.Time { return testNow }, nil, ServiceConfig{Observer: obs})

	res, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceCache || !errors.Is(res.Warning, errStoreDown) {
		t.Fatalf("unexpected load result %#v", res)
	}
	if got := svc.Snapshot().Tasks[0].ID; got != "t1" {
		t.Fatalf("expected cached task, got %q", got)
	}

	svc = NewService(store, &fakeCache{}, func() time.Time { return testNow }, nil, ServiceConfig{Observer: obs})
	res, err = svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Source != SourceSeed {
		t.Fatalf("expected seed source, got %q", res.Source)
	}
	if len(svc.Snapshot().Departments) != 4 {
		t.Fatalf("expected seed departments, got %#v", svc.Snapshot().Departments)
	}
	if len(obs.loaded) != 2 || obs.loaded[0] != SourceCache || obs.loaded[1] != SourceSeed {
		t.Fatalf("unexpected observer sources %#v", obs.loaded)
	}
}

func TestSaveTaskCreatesAndUpdatesWithActivity(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	ctx := context.Background()

	task, res, err := svc.SaveTask(ctx, domain.TaskInput{
		ProjectID:  "p1",
		TaskTypeID: "tt1",
		Title:      "Checkout",
		Phases: []domain.TaskPhase{{ID: "x1", TeamID: "d1", StartDate: "2026-03-10", EndDate: "2026-03-12", Order: 1}},
	})
	if err != nil {
		t.Fatalf("SaveTask(create) error = %v", err)
	}
	if !res.Persisted || res.Warning != nil {
		t.Fatalf("expected persisted create, got %#v", res)
	}
	if !strings.HasPrefix(task.ID, "t_") {
		t.Fatalf("expected generated task id, got %q", task.ID)
	}
	if store.count(domain.CollectionTasks) != 2 {
		t.Fatalf("expected 2 stored tasks, got %d", store.count(domain.CollectionTasks))
	}

	_, res, err = svc.SaveTask(ctx, domain.TaskInput{
		ID: task.ID, ProjectID: "p1", TaskTypeID: "tt1", Title: "Checkout v2", Phases: task.Phases,
	})
	if err != nil || !res.Persisted {
		t.Fatalf("SaveTask(update) = %#v, %v", res, err)
	}
	log := svc.ActivityLog(0)
	if len(log) != 2 {
		t.Fatalf("expected 2 activity entries, got %d", len(log))
	}
	if log[0].Action != domain.ActionUpdate || log[0].OldValue != "Checkout" || log[0].NewValue != "Checkout v2" {
		t.Fatalf("unexpected newest activity %#v", log[0])
	}
	if !strings.HasPrefix(log[0].ID, "log_") || log[0].UserID != "u1" || log[0].Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected activity stamp %#v", log[0])
	}
}

func TestSaveTaskValidationWritesNothing(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	before := store.writes
	_, _, err := svc.SaveTask(context.Background(), domain.TaskInput{ProjectID: "p1", TaskTypeID: "tt1", Title: "No phases"})
	if !errors.Is(err, domain.ErrNoPhases) {
		t.Fatalf("expected ErrNoPhases, got %v", err)
	}
	if store.writes != before {
		t.Fatalf("expected no store writes, got %d", store.writes-before)
	}
}

func TestMutationFallsBackToMemoryOnStoreFailure(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	obs := &recordingObserver{}
	svc.obs = obs
	store.failWrites = true

	res, err := svc.DeleteTask(context.Background(), "t1")
	if err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if res.Persisted || !errors.Is(res.Warning, ErrNotPersisted) || !errors.Is(res.Warning, errStoreDown) {
		t.Fatalf("expected non-persisted warning, got %#v", res)
	}
	if len(svc.Snapshot().Tasks) != 0 {
		t.Fatal("expected task removed from memory")
	}
	if store.count(domain.CollectionTasks) != 1 {
		t.Fatal("expected store untouched")
	}
	if obs.degraded != 1 {
		t.Fatalf("expected one degraded notification, got %d", obs.degraded)
	}
}

func TestDeleteUnknownTaskIsNotFound(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	if _, err := svc.DeleteTask(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkUpdateStatusSkipsDonePhases(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	ctx := context.Background()
	if _, _, err := svc.SetPhaseStatus(ctx, "t1", "ph1", domain.StatusDone); err != nil {
		t.Fatalf("SetPhaseStatus() error = %v", err)
	}
	n, res, err := svc.BulkUpdateStatus(ctx, []string{"t1", "t1", "missing"}, domain.StatusHold)
	if err != nil || !res.Persisted {
		t.Fatalf("BulkUpdateStatus() = %#v, %v", res, err)
	}
	if n != 1 {
		t.Fatalf("expected 1 task changed, got %d", n)
	}
	task, _ := svc.Snapshot().Task("t1")
	if task.Phases[0].Status != domain.StatusDone || task.Phases[1].Status != domain.StatusHold {
		t.Fatalf("unexpected phase statuses %q %q", task.Phases[0].Status, task.Phases[1].Status)
	}
	if _, _, err := svc.BulkUpdateStatus(ctx, []string{"t1"}, "LATE"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSetPhaseStatusIgnoresDependencies(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	task, _, err := svc.SetPhaseStatus(context.Background(), "t1", "ph2", domain.StatusDone)
	if err != nil {
		t.Fatalf("SetPhaseStatus() error = %v", err)
	}
	if task.Phases[1].Status != domain.StatusDone {
		t.Fatalf("expected dependent phase to complete, got %q", task.Phases[1].Status)
	}
	if _, _, err := svc.SetPhaseStatus(context.Background(), "t1", "ph9", domain.StatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkDelete(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	n, res, err := svc.BulkDelete(context.Background(), []string{"t1", "ghost"})
	if err != nil || !res.Persisted || n != 1 {
		t.Fatalf("BulkDelete() = %d, %#v, %v", n, res, err)
	}
	if store.count(domain.CollectionTasks) != 0 {
		t.Fatal("expected stored task removed")
	}
}

func TestCreateTaskFromTemplate(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	task, res, err := svc.CreateTaskFromTemplate(context.Background(), "tpl1", TemplateTaskInput{ProjectID: "p1", Title: "From template"})
	if err != nil || !res.Persisted {
		t.Fatalf("CreateTaskFromTemplate() = %#v, %v", res, err)
	}
	if task.TaskTypeID != "tt1" || len(task.Phases) != 2 {
		t.Fatalf("unexpected task %#v", task)
	}
	if task.Phases[1].DependsOn != task.Phases[0].ID {
		t.Fatalf("expected chained dependency, got %#v", task.Phases[1])
	}
	if task.Phases[0].UserID != "u1" || task.Phases[0].StartDate != "2026-03-10T09:30" {
		t.Fatalf("unexpected first phase %#v", task.Phases[0])
	}
	if _, _, err := svc.CreateTaskFromTemplate(context.Background(), "nope", TemplateTaskInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteDepartmentGuardsAndCleansHours(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	ctx := context.Background()
	if _, err := svc.DeleteDepartment(ctx, "d1"); !errors.Is(err, ErrDepartmentInUse) {
		t.Fatalf("expected ErrDepartmentInUse, got %v", err)
	}
	if _, _, err := svc.SaveTask(ctx, domain.TaskInput{
		ID: "t1", ProjectID: "p1", TaskTypeID: "tt1", Title: "Landing",
		Phases: []domain.TaskPhase{{ID: "ph1", TeamID: "d1", StartDate: "2026-03-09", EndDate: "2026-03-11", Order: 1}},
	}); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	res, err := svc.DeleteDepartment(ctx, "d2")
	if err != nil || !res.Persisted {
		t.Fatalf("DeleteDepartment() = %#v, %v", res, err)
	}
	data := svc.Snapshot()
	if _, ok := data.Department("d2"); ok {
		t.Fatal("expected department removed")
	}
	if _, ok := data.TaskTypes[0].EstimatedHours["d2"]; ok {
		t.Fatalf("expected d2 hours removed, got %#v", data.TaskTypes[0].EstimatedHours)
	}
	if store.count(domain.CollectionDepartments) != 1 {
		t.Fatalf("expected 1 stored department, got %d", store.count(domain.CollectionDepartments))
	}
}

func TestCatalogMutations(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	ctx := context.Background()

	project, _, err := svc.SaveProject(ctx, domain.ProjectInput{Codename: "atlas", Name: "Atlas"})
	if err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if project.Codename != "ATLAS" {
		t.Fatalf("unexpected codename %q", project.Codename)
	}
	project, _, err = svc.ToggleProjectStatus(ctx, project.ID)
	if err != nil || project.Status != domain.ProjectClosed {
		t.Fatalf("ToggleProjectStatus() = %#v, %v", project, err)
	}

	user, _, err := svc.ToggleUserStatus(ctx, "u2")
	if err != nil || user.Status != domain.UserInactive {
		t.Fatalf("ToggleUserStatus() = %#v, %v", user, err)
	}
	if _, _, err := svc.SaveUser(ctx, domain.UserInput{Name: "Cy"}); !errors.Is(err, domain.ErrInvalidTeamID) {
		t.Fatalf("expected ErrInvalidTeamID, got %v", err)
	}

	tt, _, err := svc.SetTaskTypeHours(ctx, "tt1", "d1", 12)
	if err != nil || tt.HoursFor("d1") != 12 || tt.HoursFor("d2") != 16 {
		t.Fatalf("SetTaskTypeHours() = %#v, %v", tt, err)
	}

	tpl := domain.TaskTemplate{Name: "QA pass", TaskTypeID: "tt1"}
	tpl.AddPhase("d1", false)
	tpl.AddPhase("d2", true)
	saved, _, err := svc.SaveTemplate(ctx, tpl)
	if err != nil || saved.ID == "" {
		t.Fatalf("SaveTemplate() = %#v, %v", saved, err)
	}
	if _, err := svc.DeleteTemplate(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteTemplate() error = %v", err)
	}
	if _, err := svc.DeleteTaskType(ctx, "tt1"); err != nil {
		t.Fatalf("DeleteTaskType() error = %v", err)
	}
	if _, err := svc.DeleteUser(ctx, "u2"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := svc.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	data := svc.Snapshot()
	if len(data.Projects) != 1 || len(data.Users) != 1 || len(data.TaskTypes) != 0 || len(data.TaskTemplates) != 1 {
		t.Fatalf("unexpected catalog after deletes %#v", data)
	}
	// Dangling references stay readable.
	if got := data.UserName("u2", "?"); got != "?" {
		t.Fatalf("expected placeholder for deleted user, got %q", got)
	}
}

func TestRecordCRUD(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	ctx := context.Background()

	rec, res, err := svc.CreateRecord(ctx, domain.CollectionDepartments, domain.Record{"name": "QA"})
	if err != nil || !res.Persisted {
		t.Fatalf("CreateRecord() = %#v, %v", res, err)
	}
	id := rec.ID()
	if id == "" {
		t.Fatal("expected generated id")
	}
	if _, _, err := svc.CreateRecord(ctx, domain.CollectionDepartments, domain.Record{"id": id, "name": "Again"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, _, err := svc.CreateRecord(ctx, domain.CollectionDepartments, domain.Record{"id": "d9"}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	updated, _, err := svc.UpdateRecord(ctx, domain.CollectionDepartments, id, domain.Record{"id": "ignored", "name": "Quality"})
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if updated.ID() != id || updated["name"] != "Quality" {
		t.Fatalf("unexpected updated record %#v", updated)
	}
	if _, _, err := svc.UpdateRecord(ctx, domain.CollectionDepartments, "ghost", domain.Record{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := svc.ListRecords(ctx, domain.CollectionDepartments)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListRecords() = %d, %v", len(list), err)
	}
	if _, err := svc.DeleteRecord(ctx, domain.CollectionDepartments, "d1"); !errors.Is(err, ErrDepartmentInUse) {
		t.Fatalf("expected ErrDepartmentInUse, got %v", err)
	}
	if _, err := svc.DeleteRecord(ctx, domain.CollectionDepartments, id); err != nil {
		t.Fatalf("DeleteRecord() error = %v", err)
	}
	if store.count(domain.CollectionDepartments) != 2 {
		t.Fatalf("expected 2 stored departments, got %d", store.count(domain.CollectionDepartments))
	}
	if _, err := svc.ListRecords(ctx, domain.Collection("widgets")); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestRecordWritesApplyEntityRules(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	ctx := context.Background()

	rec, _, err := svc.CreateRecord(ctx, domain.CollectionProjects, domain.Record{"codename": "orbit", "name": "Orbit"})
	if err != nil {
		t.Fatalf("CreateRecord(project) error = %v", err)
	}
	if rec["codename"] != "ORBIT" || rec["status"] != string(domain.ProjectActive) {
		t.Fatalf("expected normalized project, got %#v", rec)
	}

	if _, _, err := svc.CreateRecord(ctx, domain.CollectionDepartments, domain.Record{"id": "d3", "name": "Ops"}); err != nil {
		t.Fatalf("CreateRecord(department) error = %v", err)
	}
	hours := map[string]any{"d1": 8, "d2": 16, "d3": 4}
	if _, _, err := svc.UpdateRecord(ctx, domain.CollectionTaskTypes, "tt1", domain.Record{"name": "Feature", "estimatedHours": hours}); err != nil {
		t.Fatalf("UpdateRecord(task type) error = %v", err)
	}
	if _, err := svc.DeleteRecord(ctx, domain.CollectionDepartments, "d3"); err != nil {
		t.Fatalf("DeleteRecord(department) error = %v", err)
	}
	tt, _ := svc.Snapshot().TaskType("tt1")
	if _, ok := tt.EstimatedHours["d3"]; ok || len(tt.EstimatedHours) != 2 {
		t.Fatalf("expected d3 estimate dropped, got %#v", tt.EstimatedHours)
	}

	rec, _, err = svc.CreateRecord(ctx, domain.CollectionTasks, domain.Record{
		"projectId": "p1", "taskTypeId": "tt1", "title": " Audit ",
		"phases": []any{map[string]any{"id": "ph9", "teamId": "d1", "startDate": "2026-03-02", "endDate": "2026-03-03", "order": 1}},
	})
	if err != nil {
		t.Fatalf("CreateRecord(task) error = %v", err)
	}
	if rec["priority"] != string(domain.PriorityMedium) || rec["title"] != "Audit" {
		t.Fatalf("expected defaulted task, got %#v", rec)
	}

	logged := map[string]bool{}
	for _, e := range svc.ActivityLog(0) {
		logged[e.EntityID+"/"+string(e.Action)] = true
	}
	for _, want := range []string{rec.ID() + "/create", "d3/create", "d3/delete"} {
		if !logged[want] {
			t.Fatalf("expected activity %s, got %#v", want, logged)
		}
	}
}

func TestAddPhaseAppendsChainedDefault(t *testing.T) {
	svc, store, _ := newLoadedService(t)
	ctx := context.Background()

	task, res, err := svc.AddPhase(ctx, "t1")
	if err != nil || !res.Persisted {
		t.Fatalf("AddPhase() = %#v, %v", res, err)
	}
	if len(task.Phases) != 3 {
		t.Fatalf("expected 3 phases, got %#v", task.Phases)
	}
	added := task.Phases[2]
	if added.TeamID != "d1" || added.UserID != "u1" || added.DependsOn != "ph2" || added.Order != 3 {
		t.Fatalf("unexpected added phase %#v", added)
	}
	if added.StartDate != "2026-03-10T09:30" || added.EndDate != "2026-03-10T18:30" || added.Status != domain.StatusNotStarted {
		t.Fatalf("expected today's work window, got %#v", added)
	}
	if stored, _ := svc.Snapshot().Task("t1"); len(stored.Phases) != 3 {
		t.Fatalf("snapshot not updated: %#v", stored.Phases)
	}
	if store.count(domain.CollectionTasks) != 1 {
		t.Fatalf("expected task updated in place, got %d rows", store.count(domain.CollectionTasks))
	}
	if log := svc.ActivityLog(1); len(log) != 1 || log[0].Field != "phases" || log[0].NewValue != "3" {
		t.Fatalf("unexpected activity %#v", log)
	}

	if _, _, err := svc.AddPhase(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDerivedViews(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	health := svc.Health()
	if len(health) != 1 || health[0].Health != domain.HealthAtRisk {
		t.Fatalf("unexpected health %#v", health)
	}
	rows, err := svc.FilterTasks(schedule.TaskFilter{TeamID: "d2"}, schedule.SortStart)
	if err != nil || len(rows) != 1 || rows[0].Progress != 0 {
		t.Fatalf("FilterTasks() = %#v, %v", rows, err)
	}
	wl := svc.Workload()
	if len(wl.Teams) != 2 || wl.Teams[0].TotalHours != 8 {
		t.Fatalf("unexpected workload %#v", wl.Teams)
	}
	tl, err := svc.Timeline(schedule.TimelineQuery{Mode: schedule.ViewByProject})
	if err != nil || len(tl.Rows) != 1 {
		t.Fatalf("Timeline() = %#v, %v", tl, err)
	}
}

func TestSnapshotExportImportRoundTrip(t *testing.T) {
	svc, _, _ := newLoadedService(t)
	snap := svc.ExportSnapshot()
	if snap.Version != SnapshotVersion {
		t.Fatalf("unexpected version %q", snap.Version)
	}
	var buf strings.Builder
	if err := WriteSnapshot(&buf, snap); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}
	decoded, err := ReadSnapshot(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}

	store := newFakeStore()
	fresh := NewService(store, nil, func() time.Time { return testNow }, nil, ServiceConfig{})
	res, err := fresh.ImportSnapshot(context.Background(), decoded)
	if err != nil || !res.Persisted {
		t.Fatalf("ImportSnapshot() = %#v, %v", res, err)
	}
	if store.count(domain.CollectionTasks) != 1 || store.count(domain.CollectionUsers) != 2 {
		t.Fatalf("unexpected imported store rows")
	}
	if len(fresh.Snapshot().Tasks) != 1 {
		t.Fatal("expected imported task in memory")
	}

	bad := decoded
	bad.Version = "other.v9"
	if _, err := fresh.ImportSnapshot(context.Background(), bad); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	dup := decoded
	dup.Departments = append(dup.Departments, dup.Departments[0])
	if err := dup.Validate(); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
}

func TestSeedStore(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, func() time.Time { return testNow }, nil, ServiceConfig{})
	n, err := svc.SeedStore(context.Background(), false)
	if err != nil {
		t.Fatalf("SeedStore() error = %v", err)
	}
	if n == 0 || store.count(domain.CollectionDepartments) != 4 {
		t.Fatalf("unexpected seed result n=%d departments=%d", n, store.count(domain.CollectionDepartments))
	}
	if _, err := svc.SeedStore(context.Background(), false); !errors.Is(err, ErrStoreNotEmpty) {
		t.Fatalf("expected ErrStoreNotEmpty, got %v", err)
	}
	if _, err := svc.SeedStore(context.Background(), true); err != nil {
		t.Fatalf("SeedStore(force) error = %v", err)
	}
	if store.count(domain.CollectionDepartments) != 4 {
		t.Fatalf("expected forced seed to overwrite in place, got %d", store.count(domain.CollectionDepartments))
	}
}
