package tui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

type fakeService struct {
	data    domain.AppData
	now     time.Time
	loads   int
	loadErr error
	source  app.LoadSource
	offline bool

	lastBulk   []string
	lastStatus domain.PhaseStatus
	lastPhase  string
}

func fixtureData() domain.AppData {
	return domain.AppData{
		Departments: []domain.Department{{ID: "d1", Name: "Design"}, {ID: "d2", Name: "Engineering"}},
		Users: []domain.User{
			{ID: "u1", Name: "Ann", DepartmentID: "d1", Role: domain.RoleUser, Status: domain.UserActive},
			{ID: "u2", Name: "Ben", DepartmentID: "d2", Role: domain.RoleUser, Status: domain.UserActive},
		},
		Projects:  []domain.Project{{ID: "p1", Codename: "SHOP", Name: "Webshop", Status: domain.ProjectActive}},
		TaskTypes: []domain.TaskTypeConfig{{ID: "tt1", Name: "Feature", EstimatedHours: map[string]int{"d1": 8, "d2": 16}}},
		Tasks: []domain.Task{
			{
				ID: "t1", ProjectID: "p1", TaskTypeID: "tt1", Title: "Checkout flow", Priority: domain.PriorityHigh,
				Link: "https://example.com/t1",
				Phases: []domain.TaskPhase{
					{ID: "ph1", TeamID: "d1", UserID: "u1", StartDate: "2026-03-09", EndDate: "2026-03-11", Status: domain.StatusStarted, Order: 1},
					{ID: "ph2", TeamID: "d2", UserID: "u2", StartDate: "2026-03-12", EndDate: "2026-03-16", Status: domain.StatusNotStarted, Order: 2, DependsOn: "ph1"},
				},
			},
			{
				ID: "t2", ProjectID: "p1", TaskTypeID: "tt1", Title: "Landing page",
				Phases: []domain.TaskPhase{
					{ID: "ph3", TeamID: "d1", UserID: "u1", StartDate: "2026-03-01", EndDate: "2026-03-05", Status: domain.StatusStarted, Order: 1},
				},
			},
		},
	}
}

func newFakeService() *fakeService {
	return &fakeService{
		data: fixtureData(),
		now:  time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local),
	}
}

func (f *fakeService) Load(context.Context) (app.LoadResult, error) {
	f.loads++
	if f.loadErr != nil {
		return app.LoadResult{}, f.loadErr
	}
	src := f.source
	if src == app.SourceNone {
		src = app.SourceStore
	}
	return app.LoadResult{Source: src}, nil
}

func (f *fakeService) Snapshot() domain.AppData { return f.data.Clone() }
func (f *fakeService) Now() time.Time           { return f.now }

func (f *fakeService) Timeline(q schedule.TimelineQuery) (schedule.Timeline, error) {
	return schedule.BuildTimeline(f.data, q, f.now)
}

func (f *fakeService) Workload() schedule.Workload {
	return schedule.BuildWorkload(f.data)
}

func (f *fakeService) FilterTasks(fl schedule.TaskFilter, key schedule.SortKey) ([]app.TaskRow, error) {
	tasks, err := schedule.FilterTasks(f.data.Tasks, fl)
	if err != nil {
		return nil, err
	}
	var rows []app.TaskRow
	for _, t := range schedule.SortTasks(tasks, key, f.now) {
		rows = append(rows, app.TaskRow{
			Task:      t,
			Health:    schedule.EvaluateHealth(t, f.now),
			DelayDays: schedule.DelayDays(t, f.now),
		})
	}
	return rows, nil
}

func (f *fakeService) result() app.MutationResult {
	if f.offline {
		return app.MutationResult{Warning: app.ErrNotPersisted}
	}
	return app.MutationResult{Persisted: true}
}

func (f *fakeService) BulkUpdateStatus(_ context.Context, ids []string, status domain.PhaseStatus) (int, app.MutationResult, error) {
	f.lastBulk = append([]string(nil), ids...)
	f.lastStatus = status
	n := 0
	for i := range f.data.Tasks {
		if !slices.Contains(ids, f.data.Tasks[i].ID) {
			continue
		}
		n++
		for j := range f.data.Tasks[i].Phases {
			if !f.data.Tasks[i].Phases[j].Status.Done() {
				f.data.Tasks[i].Phases[j].Status = status
			}
		}
	}
	return n, f.result(), nil
}

func (f *fakeService) BulkDelete(_ context.Context, ids []string) (int, app.MutationResult, error) {
	before := len(f.data.Tasks)
	f.data.Tasks = slices.DeleteFunc(f.data.Tasks, func(t domain.Task) bool { return slices.Contains(ids, t.ID) })
	return before - len(f.data.Tasks), f.result(), nil
}

func (f *fakeService) SetPhaseStatus(_ context.Context, taskID, phaseID string, status domain.PhaseStatus) (domain.Task, app.MutationResult, error) {
	for i := range f.data.Tasks {
		if f.data.Tasks[i].ID != taskID {
			continue
		}
		for j := range f.data.Tasks[i].Phases {
			if f.data.Tasks[i].Phases[j].ID == phaseID {
				f.data.Tasks[i].Phases[j].Status = status
				f.lastPhase = phaseID
				f.lastStatus = status
				return f.data.Tasks[i], f.result(), nil
			}
		}
	}
	return domain.Task{}, app.MutationResult{}, app.ErrNotFound
}

func TestModelLoadsViews(t *testing.T) {
	svc := newFakeService()
	m := loadReadyModel(t, NewModel(svc))

	if svc.loads != 1 {
		t.Fatalf("loads = %d, want 1", svc.loads)
	}
	if len(m.timeline.Rows) != 2 || len(m.rows) != 2 || len(m.workload.People) != 2 {
		t.Fatalf("unexpected views: %d timeline rows, %d task rows, %d people", len(m.timeline.Rows), len(m.rows), len(m.workload.People))
	}
	if m.status != english.Ready {
		t.Fatalf("status = %q, want ready", m.status)
	}
	if out := m.render(); !strings.Contains(out, "Checkout flow") {
		t.Fatalf("timeline render missing task title:\n%s", out)
	}
}

func TestModelSkipInitialLoad(t *testing.T) {
	svc := newFakeService()
	m := loadReadyModel(t, NewModel(svc, WithSkipInitialLoad()))
	if svc.loads != 0 {
		t.Fatalf("loads = %d, want 0", svc.loads)
	}
	if len(m.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(m.rows))
	}
	m = applyMsg(t, m, keyRune('r'))
	if svc.loads != 1 {
		t.Fatalf("loads after reload = %d, want 1", svc.loads)
	}
}

func TestModelSwitchesViews(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService()))
	steps := []struct {
		msg  tea.KeyPressMsg
		want view
	}{
		{tea.KeyPressMsg{Code: tea.KeyTab}, viewAdmin},
		{tea.KeyPressMsg{Code: tea.KeyTab}, viewWorkload},
		{tea.KeyPressMsg{Code: tea.KeyTab}, viewTimeline},
		{tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift}, viewWorkload},
	}
	for i, step := range steps {
		m = applyMsg(t, m, step.msg)
		if m.view != step.want {
			t.Fatalf("step %d: view = %d, want %d", i, m.view, step.want)
		}
	}
}

func TestModelTimelineModeAndRange(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService()))

	m = applyMsg(t, m, keyRune('v'))
	if m.timeline.Mode != schedule.ViewByPerson {
		t.Fatalf("mode = %q, want person", m.timeline.Mode)
	}
	var names []string
	for _, r := range m.timeline.Rows {
		names = append(names, r.Label)
	}
	if !slices.Equal(names, []string{"Ann", "Ben"}) {
		t.Fatalf("person rows = %v, want [Ann Ben]", names)
	}

	m = applyMsg(t, m, keyRune('d'))
	if rangeCycle[m.rangeIdx] != schedule.RangeToday || !m.timeline.Window.SingleDay() {
		t.Fatalf("expected single-day window for today, got %#v", m.timeline.Window)
	}
	if len(m.timeline.Rows) != 1 || m.timeline.Rows[0].Label != "Ann" {
		t.Fatalf("unexpected rows for today: %#v", m.timeline.Rows)
	}
	if out := m.render(); !strings.Contains(out, "09:30") {
		t.Fatalf("work-hour axis missing from render:\n%s", out)
	}

	m = applyMsg(t, m, keyRune('v'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.view != viewDetail || m.detailTaskID != "t1" {
		t.Fatalf("expected detail for t1, got view %d task %q", m.view, m.detailTaskID)
	}
}

func TestModelAdminFiltersAndSort(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(), WithDefaultView("admin")))
	if m.view != viewAdmin {
		t.Fatalf("view = %d, want admin", m.view)
	}

	m = applyMsg(t, m, keyRune('s'))
	if m.sortKey != schedule.SortStart || m.rows[0].Task.ID != "t2" {
		t.Fatalf("sort start: key %q first %q", m.sortKey, m.rows[0].Task.ID)
	}
	m = applyMsg(t, m, keyRune('s'))
	m = applyMsg(t, m, keyRune('s'))
	if m.sortKey != schedule.SortDelay || m.rows[0].Task.ID != "t2" {
		t.Fatalf("sort delay: key %q first %q", m.sortKey, m.rows[0].Task.ID)
	}

	m = applyMsg(t, m, keyRune('f'))
	if m.filter.Status != domain.StatusNotStarted || len(m.rows) != 1 || m.rows[0].Task.ID != "t1" {
		t.Fatalf("status filter: %q rows %d", m.filter.Status, len(m.rows))
	}
	m = applyMsg(t, m, keyRune('x'))
	if !m.filter.Empty() || m.sortKey != schedule.SortNone || len(m.rows) != 2 {
		t.Fatalf("clear filters left %#v sort %q rows %d", m.filter, m.sortKey, len(m.rows))
	}

	m = applyMsg(t, m, keyRune('t'))
	m = applyMsg(t, m, keyRune('t'))
	if m.filter.TeamID != "d2" || len(m.rows) != 1 {
		t.Fatalf("team filter: %q rows %d", m.filter.TeamID, len(m.rows))
	}
	m = applyMsg(t, m, keyRune('x'))

	m = applyMsg(t, m, keyRune('/'))
	if m.mode != modeSearch {
		t.Fatalf("mode = %d, want search", m.mode)
	}
	for _, r := range "land" {
		m = applyMsg(t, m, keyRune(r))
	}
	if m.filter.Query != "land" || len(m.rows) != 1 || m.rows[0].Task.ID != "t2" {
		t.Fatalf("search: query %q rows %d", m.filter.Query, len(m.rows))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNone || m.filter.Query != "" || len(m.rows) != 2 {
		t.Fatalf("esc should clear search, got mode %d query %q rows %d", m.mode, m.filter.Query, len(m.rows))
	}
}

func TestModelBulkStatus(t *testing.T) {
	svc := newFakeService()
	m := loadReadyModel(t, NewModel(svc, WithDefaultView("admin")))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if _, ok := m.selected["t1"]; !ok {
		t.Fatalf("expected t1 selected, got %v", m.selected)
	}
	m = applyMsg(t, m, keyRune('b'))
	if m.mode != modeStatusPicker {
		t.Fatalf("mode = %d, want status picker", m.mode)
	}
	for range 5 {
		m = applyMsg(t, m, keyRune('j'))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if !slices.Equal(svc.lastBulk, []string{"t1"}) || svc.lastStatus != domain.StatusDone {
		t.Fatalf("bulk call = %v %q", svc.lastBulk, svc.lastStatus)
	}
	if len(m.selected) != 0 {
		t.Fatalf("selection not cleared: %v", m.selected)
	}
	if !strings.Contains(m.status, english.Updated) {
		t.Fatalf("status = %q, want updated", m.status)
	}
	if m.rows[0].Health != domain.HealthOnTrack {
		t.Fatalf("views not refreshed after bulk update: %#v", m.rows[0])
	}
}

func TestModelWarnsWhenNotPersisted(t *testing.T) {
	svc := newFakeService()
	svc.offline = true
	m := loadReadyModel(t, NewModel(svc, WithDefaultView("admin")))
	m = applyMsg(t, m, keyRune('b'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if !strings.Contains(m.status, english.NotPersisted) {
		t.Fatalf("status = %q, want not-persisted warning", m.status)
	}
}

func TestModelBulkDeleteConfirm(t *testing.T) {
	svc := newFakeService()
	m := loadReadyModel(t, NewModel(svc, WithDefaultView("admin")))

	m = applyMsg(t, m, keyRune('a'))
	m = applyMsg(t, m, keyRune('D'))
	if m.mode != modeConfirmDelete {
		t.Fatalf("mode = %d, want confirm", m.mode)
	}
	m = applyMsg(t, m, keyRune('n'))
	if len(svc.data.Tasks) != 2 || m.mode != modeNone {
		t.Fatalf("cancel should keep tasks, got %d", len(svc.data.Tasks))
	}

	m = applyMsg(t, m, keyRune('D'))
	m = applyMsg(t, m, keyRune('y'))
	if len(svc.data.Tasks) != 0 || len(m.rows) != 0 {
		t.Fatalf("expected all tasks deleted, store %d rows %d", len(svc.data.Tasks), len(m.rows))
	}
}

func TestModelDetailPhaseStatusAndCopy(t *testing.T) {
	svc := newFakeService()
	var copied string
	m := loadReadyModel(t, NewModel(svc,
		WithDefaultView("admin"),
		WithClipboard(func(s string) error { copied = s; return nil }),
	))

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.view != viewDetail || m.detailTaskID != "t1" {
		t.Fatalf("expected t1 detail, got view %d task %q", m.view, m.detailTaskID)
	}
	if out := m.render(); !strings.Contains(out, "Checkout") {
		t.Fatalf("detail render missing title:\n%s", out)
	}

	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('p'))
	if m.mode != modeStatusPicker || m.pickerIndex != 0 {
		t.Fatalf("picker mode %d index %d, want picker at NOT_STARTED", m.mode, m.pickerIndex)
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.lastPhase != "ph2" || svc.lastStatus != domain.StatusStarted {
		t.Fatalf("phase call = %q %q", svc.lastPhase, svc.lastStatus)
	}

	m = applyMsg(t, m, keyRune('c'))
	if copied != "https://example.com/t1" || m.status != english.Copied {
		t.Fatalf("copied %q status %q", copied, m.status)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.view != viewAdmin {
		t.Fatalf("esc should return to admin, got %d", m.view)
	}
}

func TestModelCopyWithoutLink(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(), WithDefaultView("admin"),
		WithClipboard(func(string) error { return errors.New("unexpected copy") })))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m = applyMsg(t, m, keyRune('c'))
	if m.status != english.NoLink {
		t.Fatalf("status = %q, want no-link notice", m.status)
	}
}

func TestModelWorkloadTabs(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(), WithDefaultView("workload")))
	if out := m.render(); !strings.Contains(out, "Ann") {
		t.Fatalf("people tab missing user:\n%s", out)
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.workloadTab != tabTeams {
		t.Fatalf("tab = %d, want teams", m.workloadTab)
	}
	if out := m.render(); !strings.Contains(out, "Engineering") || !strings.Contains(out, "Ben") {
		t.Fatalf("teams tab missing department or member:\n%s", out)
	}
	m = applyMsg(t, m, keyRune('l'))
	if out := m.render(); !strings.Contains(out, "SHOP") {
		t.Fatalf("projects tab missing codename:\n%s", out)
	}
	m = applyMsg(t, m, keyRune('l'))
	if m.workloadTab != tabPeople {
		t.Fatalf("tab should wrap to people, got %d", m.workloadTab)
	}
}

func TestModelLoadNoticesAndErrors(t *testing.T) {
	svc := newFakeService()
	svc.source = app.SourceCache
	m := loadReadyModel(t, NewModel(svc))
	if m.notice != english.FromCache || !strings.Contains(m.render(), english.FromCache) {
		t.Fatalf("notice = %q, want cache notice", m.notice)
	}

	broken := newFakeService()
	broken.loadErr = errors.New("seed unreadable")
	m = loadReadyModel(t, NewModel(broken))
	if m.err == nil || !strings.Contains(m.render(), "seed unreadable") {
		t.Fatalf("expected load error in view, got %v", m.err)
	}
}

func TestModelThaiLabels(t *testing.T) {
	m := loadReadyModel(t, NewModel(newFakeService(), WithLanguage(LanguageThai)))
	if out := m.render(); !strings.Contains(out, thai.Timeline) {
		t.Fatalf("thai render missing timeline label:\n%s", out)
	}
	if got := m.labels.PhaseStatus(domain.StatusDone); got != "เสร็จแล้ว" {
		t.Fatalf("PhaseStatus(DONE) = %q", got)
	}
}

func TestLabelsCoverEveryEnum(t *testing.T) {
	for _, l := range []Labels{english, thai} {
		for _, s := range domain.PhaseStatuses() {
			if l.PhaseStatus(s) == string(s) || l.PhaseStatus(s) == "" {
				t.Fatalf("missing label for status %q", s)
			}
		}
		for _, p := range domain.Priorities() {
			if l.PriorityName(p) == "" {
				t.Fatalf("missing label for priority %q", p)
			}
		}
		for _, h := range []domain.Health{domain.HealthOnTrack, domain.HealthAtRisk, domain.HealthDelayed} {
			if l.HealthName(h) == string(h) {
				t.Fatalf("missing label for health %q", h)
			}
		}
	}
}

func TestRenderHelpers(t *testing.T) {
	if got := padCell("abcdef", 4); got != "abc…" {
		t.Fatalf("padCell() = %q", got)
	}
	if got := padCell("ab", 4); got != "ab  " {
		t.Fatalf("padCell() = %q", got)
	}
	if s, e := windowBounds(10, 9, 4); s != 6 || e != 10 {
		t.Fatalf("windowBounds() = %d,%d", s, e)
	}
	if got := wrapIndex(0, -1, 3); got != 2 {
		t.Fatalf("wrapIndex() = %d", got)
	}
	if got := fitLines("a\nb\nc", 2); got != "a\n…" {
		t.Fatalf("fitLines() = %q", got)
	}
	if got := meter(50, 4, accentColor); !strings.Contains(got, "██") {
		t.Fatalf("meter() = %q", got)
	}
}

func loadReadyModel(t *testing.T, m Model) Model {
	t.Helper()
	return applyMsg(t, applyCmd(t, m, m.Init()), tea.WindowSizeMsg{Width: 140, Height: 40})
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		if _, quit := msg.(tea.QuitMsg); quit {
			return out
		}
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
