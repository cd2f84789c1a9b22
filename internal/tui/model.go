package tui

import (
	"context"
	"fmt"
	"slices"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// Service is the slice of the application service the terminal UI drives.
type Service interface {
	Load(context.Context) (app.LoadResult, error)
	Snapshot() domain.AppData
	Now() time.Time
	Timeline(schedule.TimelineQuery) (schedule.Timeline, error)
	Workload() schedule.Workload
	FilterTasks(schedule.TaskFilter, schedule.SortKey) ([]app.TaskRow, error)
	BulkUpdateStatus(context.Context, []string, domain.PhaseStatus) (int, app.MutationResult, error)
	BulkDelete(context.Context, []string) (int, app.MutationResult, error)
	SetPhaseStatus(context.Context, string, string, domain.PhaseStatus) (domain.Task, app.MutationResult, error)
}

// view is one full-screen page.
type view int

const (
	viewTimeline view = iota
	viewAdmin
	viewWorkload
	viewDetail
)

var mainViews = []view{viewTimeline, viewAdmin, viewWorkload}

// inputMode is a modal state layered over the current view.
type inputMode int

const (
	modeNone inputMode = iota
	modeSearch
	modeStatusPicker
	modeConfirmDelete
)

type workloadTab int

const (
	tabPeople workloadTab = iota
	tabTeams
	tabProjects
	workloadTabCount
)

// pickerTarget says what the status picker applies to.
type pickerTarget int

const (
	pickBulk pickerTarget = iota
	pickPhase
)

// rangeCycle is the order the date range key steps through; empty means the default window.
var rangeCycle = []schedule.RangeKind{"", schedule.RangeToday, schedule.RangeThisWeek, schedule.RangeNextWeek, schedule.RangeThisMonth}

type Model struct {
	svc      Service
	labels   Labels
	help     help.Model
	keys     keyMap
	md       *markdownRenderer
	copyText func(string) error

	skipStoreLoad bool

	ready  bool
	width  int
	height int
	err    error
	status string
	notice string

	view     view
	backView view
	mode     inputMode

	data domain.AppData

	timeline       schedule.Timeline
	timelineMode   schedule.ViewMode
	rangeIdx       int
	timelineCursor int

	rows        []app.TaskRow
	adminCursor int
	filter      schedule.TaskFilter
	sortKey     schedule.SortKey
	selected    map[string]struct{}
	searchInput textinput.Model

	workload       schedule.Workload
	workloadTab    workloadTab
	workloadCursor int

	detailTaskID string
	phaseCursor  int

	pickerIndex  int
	pickerTarget pickerTarget
	pickerIDs    []string
}

// loadedMsg reports the outcome of a store load.
type loadedMsg struct {
	source  app.LoadSource
	warning error
	err     error
}

// actionMsg carries the outcome of a mutation or side effect.
type actionMsg struct {
	status         string
	err            error
	notPersisted   bool
	refresh        bool
	clearSelection bool
}

func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.CharLimit = 120
	m := Model{
		svc:          svc,
		labels:       english,
		help:         h,
		keys:         newKeyMap(),
		md:           &markdownRenderer{},
		copyText:     systemClipboard,
		timelineMode: schedule.ViewByProject,
		selected:     map[string]struct{}{},
		searchInput:  searchInput,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.status = m.labels.Loading
	m.backView = m.view
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd(!m.skipStoreLoad)
}

// loadCmd optionally reloads the service from the store; views are rebuilt when the message lands.
func (m Model) loadCmd(fromStore bool) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if !fromStore {
			return loadedMsg{}
		}
		res, err := svc.Load(context.Background())
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{source: res.Source, warning: res.Warning}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		switch msg.source {
		case app.SourceCache:
			m.notice = m.labels.FromCache
		case app.SourceSeed:
			m.notice = m.labels.FromSeed
		default:
			m.notice = ""
		}
		if err := m.refreshViews(); err != nil {
			m.err = err
			return m, nil
		}
		m.status = m.labels.Ready
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.status
		if msg.notPersisted {
			m.status += " (" + m.labels.NotPersisted + ")"
		}
		if msg.clearSelection {
			clear(m.selected)
		}
		if msg.refresh {
			if err := m.refreshViews(); err != nil {
				m.status = "error: " + err.Error()
			}
		}
		return m, nil

	case tea.KeyPressMsg:
		switch m.mode {
		case modeSearch:
			return m.handleSearchKey(msg)
		case modeStatusPicker:
			return m.handlePickerKey(msg)
		case modeConfirmDelete:
			return m.handleConfirmKey(msg)
		}
		return m.handleNormalKey(msg)
	}
	return m, nil
}

// refreshViews recomputes every view model from the service snapshot.
func (m *Model) refreshViews() error {
	m.data = m.svc.Snapshot()
	tl, err := m.svc.Timeline(m.timelineQuery())
	if err != nil {
		return err
	}
	rows, err := m.svc.FilterTasks(m.filter, m.sortKey)
	if err != nil {
		return err
	}
	m.timeline = tl
	m.rows = rows
	m.workload = m.svc.Workload()
	m.pruneSelection()
	m.clampCursors()
	if m.view == viewDetail {
		if _, ok := m.data.Task(m.detailTaskID); !ok {
			m.view = m.backView
		}
	}
	return nil
}

func (m Model) timelineQuery() schedule.TimelineQuery {
	start, end := schedule.QuickRange(rangeCycle[m.rangeIdx], m.svc.Now())
	return schedule.TimelineQuery{Start: start, End: end, Mode: m.timelineMode}
}

func (m *Model) pruneSelection() {
	visible := make(map[string]struct{}, len(m.rows))
	for _, r := range m.rows {
		visible[r.Task.ID] = struct{}{}
	}
	for id := range m.selected {
		if _, ok := visible[id]; !ok {
			delete(m.selected, id)
		}
	}
}

func (m *Model) clampCursors() {
	m.timelineCursor = clamp(m.timelineCursor, 0, len(m.timeline.Rows)-1)
	m.adminCursor = clamp(m.adminCursor, 0, len(m.rows)-1)
	m.workloadCursor = clamp(m.workloadCursor, 0, m.workloadLen()-1)
	if task, ok := m.data.Task(m.detailTaskID); ok {
		m.phaseCursor = clamp(m.phaseCursor, 0, len(task.Phases)-1)
	}
}

func (m Model) workloadLen() int {
	switch m.workloadTab {
	case tabTeams:
		return len(m.workload.Teams)
	case tabProjects:
		return len(m.workload.Projects)
	default:
		return len(m.workload.People)
	}
}

func (m Model) handleNormalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = m.labels.Loading
		return m, m.loadCmd(true)
	}

	if m.view == viewDetail {
		return m.handleDetailKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.nextView):
		m.view = mainViews[wrapIndex(slices.Index(mainViews, m.view), 1, len(mainViews))]
		return m, nil
	case key.Matches(msg, m.keys.prevView):
		m.view = mainViews[wrapIndex(slices.Index(mainViews, m.view), -1, len(mainViews))]
		return m, nil
	}

	switch m.view {
	case viewAdmin:
		return m.handleAdminKey(msg)
	case viewWorkload:
		return m.handleWorkloadKey(msg)
	default:
		return m.handleTimelineKey(msg)
	}
}

func (m Model) handleTimelineKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.moveUp):
		m.timelineCursor = clamp(m.timelineCursor-1, 0, len(m.timeline.Rows)-1)
	case key.Matches(msg, m.keys.moveDown):
		m.timelineCursor = clamp(m.timelineCursor+1, 0, len(m.timeline.Rows)-1)
	case key.Matches(msg, m.keys.toggleMode):
		if m.timelineMode == schedule.ViewByPerson {
			m.timelineMode = schedule.ViewByProject
		} else {
			m.timelineMode = schedule.ViewByPerson
		}
		m.timelineCursor = 0
		return m.refreshed()
	case key.Matches(msg, m.keys.cycleRange):
		m.rangeIdx = wrapIndex(m.rangeIdx, 1, len(rangeCycle))
		m.timelineCursor = 0
		return m.refreshed()
	case key.Matches(msg, m.keys.open):
		if taskID, ok := m.timelineTaskID(); ok {
			m.openDetail(taskID)
		}
	}
	return m, nil
}

// timelineTaskID resolves the task under the cursor. Person rows open their first bar.
func (m Model) timelineTaskID() (string, bool) {
	if len(m.timeline.Rows) == 0 {
		return "", false
	}
	row := m.timeline.Rows[m.timelineCursor]
	if m.timeline.Mode == schedule.ViewByProject {
		return row.Key, true
	}
	if len(row.Bars) == 0 {
		return "", false
	}
	return row.Bars[0].TaskID, true
}

func (m Model) handleAdminKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.moveUp):
		m.adminCursor = clamp(m.adminCursor-1, 0, len(m.rows)-1)
	case key.Matches(msg, m.keys.moveDown):
		m.adminCursor = clamp(m.adminCursor+1, 0, len(m.rows)-1)
	case key.Matches(msg, m.keys.search):
		m.mode = modeSearch
		m.searchInput.SetValue(m.filter.Query)
		cmd := m.searchInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.cycleSort):
		keys := schedule.SortKeys()
		m.sortKey = keys[wrapIndex(slices.Index(keys, m.sortKey), 1, len(keys))]
		return m.refreshed()
	case key.Matches(msg, m.keys.cycleStatus):
		statuses := append([]domain.PhaseStatus{""}, domain.PhaseStatuses()...)
		m.filter.Status = statuses[wrapIndex(slices.Index(statuses, m.filter.Status), 1, len(statuses))]
		return m.refreshed()
	case key.Matches(msg, m.keys.cycleTeam):
		teams := []string{""}
		for _, d := range m.data.Departments {
			teams = append(teams, d.ID)
		}
		m.filter.TeamID = teams[wrapIndex(max(0, slices.Index(teams, m.filter.TeamID)), 1, len(teams))]
		return m.refreshed()
	case key.Matches(msg, m.keys.clearFilters):
		m.filter = schedule.TaskFilter{}
		m.sortKey = schedule.SortNone
		m.searchInput.SetValue("")
		return m.refreshed()
	case key.Matches(msg, m.keys.toggleSelect):
		if row, ok := m.currentRow(); ok {
			if _, on := m.selected[row.Task.ID]; on {
				delete(m.selected, row.Task.ID)
			} else {
				m.selected[row.Task.ID] = struct{}{}
			}
		}
	case key.Matches(msg, m.keys.selectAll):
		if len(m.selected) == len(m.rows) {
			clear(m.selected)
		} else {
			for _, r := range m.rows {
				m.selected[r.Task.ID] = struct{}{}
			}
		}
	case key.Matches(msg, m.keys.bulkStatus):
		ids := m.bulkTargets()
		if len(ids) == 0 {
			return m, nil
		}
		m.mode = modeStatusPicker
		m.pickerTarget = pickBulk
		m.pickerIDs = ids
		m.pickerIndex = 0
	case key.Matches(msg, m.keys.bulkDelete):
		ids := m.bulkTargets()
		if len(ids) == 0 {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.pickerIDs = ids
		m.status = m.labels.ConfirmDelete
	case key.Matches(msg, m.keys.open):
		if row, ok := m.currentRow(); ok {
			m.openDetail(row.Task.ID)
		}
	}
	return m, nil
}

func (m Model) handleWorkloadKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.moveLeft):
		m.workloadTab = workloadTab(wrapIndex(int(m.workloadTab), -1, int(workloadTabCount)))
		m.workloadCursor = 0
	case key.Matches(msg, m.keys.moveRight):
		m.workloadTab = workloadTab(wrapIndex(int(m.workloadTab), 1, int(workloadTabCount)))
		m.workloadCursor = 0
	case key.Matches(msg, m.keys.moveUp):
		m.workloadCursor = clamp(m.workloadCursor-1, 0, m.workloadLen()-1)
	case key.Matches(msg, m.keys.moveDown):
		m.workloadCursor = clamp(m.workloadCursor+1, 0, m.workloadLen()-1)
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	task, ok := m.data.Task(m.detailTaskID)
	if !ok {
		m.view = m.backView
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = m.backView
	case key.Matches(msg, m.keys.moveUp):
		m.phaseCursor = clamp(m.phaseCursor-1, 0, len(task.Phases)-1)
	case key.Matches(msg, m.keys.moveDown):
		m.phaseCursor = clamp(m.phaseCursor+1, 0, len(task.Phases)-1)
	case key.Matches(msg, m.keys.phaseStatus), key.Matches(msg, m.keys.open):
		if len(task.Phases) == 0 {
			return m, nil
		}
		m.mode = modeStatusPicker
		m.pickerTarget = pickPhase
		m.pickerIndex = max(0, slices.Index(domain.PhaseStatuses(), task.Phases[m.phaseCursor].Status))
	case key.Matches(msg, m.keys.copyLink):
		return m, m.copyLinkCmd(task.Link)
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.searchInput.Blur()
		m.filter.Query = ""
		m.searchInput.SetValue("")
		return m.refreshed()
	case "enter":
		m.mode = modeNone
		m.searchInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.filter.Query = m.searchInput.Value()
	m.adminCursor = 0
	if err := m.refreshViews(); err != nil {
		m.status = "error: " + err.Error()
	}
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	statuses := domain.PhaseStatuses()
	switch {
	case key.Matches(msg, m.keys.back):
		m.mode = modeNone
	case key.Matches(msg, m.keys.moveUp):
		m.pickerIndex = clamp(m.pickerIndex-1, 0, len(statuses)-1)
	case key.Matches(msg, m.keys.moveDown):
		m.pickerIndex = clamp(m.pickerIndex+1, 0, len(statuses)-1)
	case msg.String() == "enter":
		m.mode = modeNone
		status := statuses[m.pickerIndex]
		if m.pickerTarget == pickBulk {
			return m, m.bulkStatusCmd(m.pickerIDs, status)
		}
		task, ok := m.data.Task(m.detailTaskID)
		if !ok || len(task.Phases) == 0 {
			return m, nil
		}
		return m, m.phaseStatusCmd(task.ID, task.Phases[m.phaseCursor].ID, status)
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNone
	if msg.String() != "y" {
		m.status = m.labels.Ready
		return m, nil
	}
	return m, m.bulkDeleteCmd(m.pickerIDs)
}

func (m Model) refreshed() (tea.Model, tea.Cmd) {
	if err := m.refreshViews(); err != nil {
		m.status = "error: " + err.Error()
	}
	return m, nil
}

func (m *Model) openDetail(taskID string) {
	m.backView = m.view
	m.view = viewDetail
	m.detailTaskID = taskID
	m.phaseCursor = 0
}

func (m Model) currentRow() (app.TaskRow, bool) {
	if len(m.rows) == 0 {
		return app.TaskRow{}, false
	}
	return m.rows[m.adminCursor], true
}

// bulkTargets returns the selected task ids in table order, or the row under the cursor.
func (m Model) bulkTargets() []string {
	var ids []string
	for _, r := range m.rows {
		if _, ok := m.selected[r.Task.ID]; ok {
			ids = append(ids, r.Task.ID)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	if row, ok := m.currentRow(); ok {
		return []string{row.Task.ID}
	}
	return nil
}

func (m Model) bulkStatusCmd(ids []string, status domain.PhaseStatus) tea.Cmd {
	svc, labels := m.svc, m.labels
	return func() tea.Msg {
		n, res, err := svc.BulkUpdateStatus(context.Background(), ids, status)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:         fmt.Sprintf("%s: %d → %s", labels.Updated, n, labels.PhaseStatus(status)),
			notPersisted:   !res.Persisted,
			refresh:        true,
			clearSelection: true,
		}
	}
}

func (m Model) bulkDeleteCmd(ids []string) tea.Cmd {
	svc, labels := m.svc, m.labels
	return func() tea.Msg {
		n, res, err := svc.BulkDelete(context.Background(), ids)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:         fmt.Sprintf("%s: %d", labels.Deleted, n),
			notPersisted:   !res.Persisted,
			refresh:        true,
			clearSelection: true,
		}
	}
}

func (m Model) phaseStatusCmd(taskID, phaseID string, status domain.PhaseStatus) tea.Cmd {
	svc, labels := m.svc, m.labels
	return func() tea.Msg {
		_, res, err := svc.SetPhaseStatus(context.Background(), taskID, phaseID, status)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{
			status:       labels.Updated + ": " + labels.PhaseStatus(status),
			notPersisted: !res.Persisted,
			refresh:      true,
		}
	}
}

func (m Model) copyLinkCmd(link string) tea.Cmd {
	write, labels := m.copyText, m.labels
	return func() tea.Msg {
		if link == "" {
			return actionMsg{status: labels.NoLink}
		}
		if err := write(link); err != nil {
			return actionMsg{err: fmt.Errorf("copy link: %w", err)}
		}
		return actionMsg{status: labels.Copied}
	}
}
