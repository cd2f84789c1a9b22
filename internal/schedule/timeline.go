package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/metier/internal/domain"
)

// Work-hour grid used when the timeline shows a single day.
const (
	WorkStartMinutes = 9*60 + 30
	WorkEndMinutes   = 18*60 + 30
	SlotMinutes      = 30
	WorkSlotCount    = (WorkEndMinutes - WorkStartMinutes) / SlotMinutes

	DefaultLookbackDays  = 7
	DefaultLookaheadDays = 21

	minSlotWidth = 0.5
)

// SlotMode is the granularity of the timeline axis.
type SlotMode string

const (
	SlotModeDay  SlotMode = "day"
	SlotModeWork SlotMode = "work"
)

// Window is the visible range of the timeline. In work mode Start and End are the same day.
type Window struct {
	Mode  SlotMode  `json:"mode"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow resolves the visible range from two optional YYYY-MM-DD filter bounds.
// Equal bounds select the single-day work-hour grid; a missing bound falls back to the
// default window around today; reversed bounds are swapped.
func NewWindow(filterStart, filterEnd string, now time.Time) (Window, error) {
	filterStart = strings.TrimSpace(filterStart)
	filterEnd = strings.TrimSpace(filterEnd)
	today := DayStart(now)
	start := AddDays(today, -DefaultLookbackDays)
	end := AddDays(today, DefaultLookaheadDays)
	if filterStart != "" {
		d, err := domain.ParseCalendarDate(filterStart)
		if err != nil {
			return Window{}, fmt.Errorf("window start %q: %w", filterStart, err)
		}
		start = d
	}
	if filterEnd != "" {
		d, err := domain.ParseCalendarDate(filterEnd)
		if err != nil {
			return Window{}, fmt.Errorf("window end %q: %w", filterEnd, err)
		}
		end = d
	}
	if filterStart != "" && filterEnd != "" && filterStart == filterEnd {
		return Window{Mode: SlotModeWork, Start: start, End: start}, nil
	}
	if start.After(end) {
		start, end = end, start
	}
	return Window{Mode: SlotModeDay, Start: start, End: end}, nil
}

// SingleDay reports whether the window is the work-hour grid of one day.
func (w Window) SingleDay() bool {
	return w.Mode == SlotModeWork
}

// Slot is one unit of the horizontal axis.
type Slot struct {
	Mode   SlotMode  `json:"mode"`
	Index  int       `json:"index"`
	Date   time.Time `json:"date"`
	Hour   int       `json:"hour,omitempty"`
	Minute int       `json:"minute,omitempty"`
}

// Label renders the slot heading: "Mon 02" for days, "09:30" for work ticks.
func (s Slot) Label() string {
	if s.Mode == SlotModeWork {
		return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
	}
	return s.Date.Format("Mon 02")
}

// Slots lists the visible slots in order.
func (w Window) Slots() []Slot {
	if w.Mode == SlotModeWork {
		out := make([]Slot, 0, WorkSlotCount)
		for i := range WorkSlotCount {
			mins := WorkStartMinutes + i*SlotMinutes
			out = append(out, Slot{Mode: SlotModeWork, Index: i, Date: w.Start, Hour: mins / 60, Minute: mins % 60})
		}
		return out
	}
	out := make([]Slot, 0, DaysBetween(w.Start, w.End)+1)
	for i, d := 0, w.Start; !d.After(w.End); i, d = i+1, AddDays(d, 1) {
		out = append(out, Slot{Mode: SlotModeDay, Index: i, Date: d})
	}
	return out
}

// SlotCount returns len(w.Slots()) without building them.
func (w Window) SlotCount() int {
	if w.Mode == SlotModeWork {
		return WorkSlotCount
	}
	return DaysBetween(w.Start, w.End) + 1
}

// Layout places a phase on the axis in slot units.
type Layout struct {
	Offset float64 `json:"offset"`
	Width  float64 `json:"width"`
}

// LayoutPhase maps a phase interval to an offset and width relative to the first slot.
// The result may extend past either edge; use Cull before drawing.
func (w Window) LayoutPhase(start, end time.Time) Layout {
	if w.Mode == SlotModeWork {
		return w.layoutWorkHours(start, end)
	}
	return Layout{
		Offset: float64(DaysBetween(w.Start, start)),
		Width:  float64(max(1, DaysBetween(start, end)+1)),
	}
}

func (w Window) layoutWorkHours(start, end time.Time) Layout {
	dayStart := DayStart(w.Start)
	y, m, d := dayStart.Date()
	dayEnd := time.Date(y, m, d, 23, 59, 59, 999_999_999, dayStart.Location())

	s := minutesOfDay(clampTime(start.In(dayStart.Location()), dayStart, dayEnd))
	e := minutesOfDay(clampTime(end.In(dayStart.Location()), dayStart, dayEnd))
	s = min(max(s, WorkStartMinutes), WorkEndMinutes)
	e = min(max(e, WorkStartMinutes), WorkEndMinutes)

	return Layout{
		Offset: float64(s-WorkStartMinutes) / SlotMinutes,
		Width:  max(minSlotWidth, float64(e-s)/SlotMinutes),
	}
}

// LayoutPhaseFields parses raw phase timestamps and lays them out; ok is false for malformed input.
func (w Window) LayoutPhaseFields(startRaw, endRaw string) (Layout, bool) {
	start, ok := domain.ParseTimestamp(startRaw)
	if !ok {
		return Layout{}, false
	}
	end, ok := domain.ParseTimestamp(endRaw)
	if !ok {
		return Layout{}, false
	}
	return w.LayoutPhase(start, end), true
}

// Cull clamps a layout to [0, totalSlots]. ok is false when nothing of the phase is visible.
func Cull(l Layout, totalSlots int) (Layout, bool) {
	total := float64(totalSlots)
	left := max(0, l.Offset)
	right := min(total, l.Offset+l.Width)
	if right <= left {
		return Layout{}, false
	}
	return Layout{Offset: left, Width: max(minSlotWidth, right-left)}, true
}

// Contains reports whether a phase interval is visible in the window. Work mode tests against
// the 09:30-18:30 span of the day; day mode compares day-normalized intervals.
func (w Window) Contains(start, end time.Time) bool {
	if w.Mode == SlotModeWork {
		y, m, d := w.Start.Date()
		loc := w.Start.Location()
		workStart := time.Date(y, m, d, WorkStartMinutes/60, WorkStartMinutes%60, 0, 0, loc)
		workEnd := time.Date(y, m, d, WorkEndMinutes/60, WorkEndMinutes%60, 0, 0, loc)
		return Overlaps(start, end, workStart, workEnd)
	}
	return Overlaps(DayStart(start), DayStart(end), w.Start, w.End)
}

func clampTime(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ViewMode selects how timeline rows are grouped.
type ViewMode string

const (
	ViewByProject ViewMode = "project"
	ViewByPerson  ViewMode = "person"
)

// TimelineQuery carries the timeline filters. Empty fields do not filter.
type TimelineQuery struct {
	Start  string
	End    string
	UserID string
	TeamID string
	Status domain.PhaseStatus
	Mode   ViewMode
}

// Bar is one visible phase.
type Bar struct {
	TaskID    string             `json:"taskId"`
	PhaseID   string             `json:"phaseId"`
	TaskTitle string             `json:"taskTitle"`
	TeamID    string             `json:"teamId"`
	TeamName  string             `json:"teamName"`
	UserID    string             `json:"userId"`
	UserName  string             `json:"userName"`
	Status    domain.PhaseStatus `json:"status"`
	Order     int                `json:"order"`
	DependsOn string             `json:"dependsOn,omitempty"`
	StartDate string             `json:"startDate"`
	EndDate   string             `json:"endDate"`
	Overdue   bool               `json:"overdue"`
	Layout
}

// Row is one timeline lane: a task in project view or a person in person view.
type Row struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	Sublabel string          `json:"sublabel,omitempty"`
	Priority domain.Priority `json:"priority,omitempty"`
	Health   domain.Health   `json:"health,omitempty"`
	Bars     []Bar           `json:"bars"`
}

// Timeline is the laid-out view model.
type Timeline struct {
	Mode   ViewMode `json:"mode"`
	Window Window   `json:"window"`
	Slots  []Slot   `json:"slots"`
	Rows   []Row    `json:"rows"`
}

// Placeholder names used for dangling references.
const (
	UnknownName    = "-"
	UnassignedName = "Unassigned"
)

// BuildTimeline filters tasks and lays out their phases against the resolved window.
func BuildTimeline(data domain.AppData, q TimelineQuery, now time.Time) (Timeline, error) {
	w, err := NewWindow(q.Start, q.End, now)
	if err != nil {
		return Timeline{}, err
	}
	mode := q.Mode
	if mode != ViewByPerson {
		mode = ViewByProject
	}
	filterDates := strings.TrimSpace(q.Start) != "" || strings.TrimSpace(q.End) != ""

	tasks := make([]domain.Task, 0, len(data.Tasks))
	for _, t := range data.Tasks {
		if q.UserID != "" && !anyPhase(t, func(p domain.TaskPhase) bool { return p.UserID == q.UserID }) {
			continue
		}
		if q.TeamID != "" && !anyPhase(t, func(p domain.TaskPhase) bool { return p.TeamID == q.TeamID }) {
			continue
		}
		if q.Status != "" && !anyPhase(t, func(p domain.TaskPhase) bool { return p.Status == q.Status }) {
			continue
		}
		if filterDates && !anyPhase(t, func(p domain.TaskPhase) bool {
			start, end, ok := phaseWindow(p)
			return ok && w.Contains(start, end)
		}) {
			continue
		}
		tasks = append(tasks, t)
	}

	out := Timeline{Mode: mode, Window: w, Slots: w.Slots()}
	total := w.SlotCount()
	if mode == ViewByPerson {
		out.Rows = personRows(data, tasks, w, total, now)
	} else {
		out.Rows = projectRows(data, tasks, w, total, now)
	}
	return out, nil
}

func projectRows(data domain.AppData, tasks []domain.Task, w Window, total int, now time.Time) []Row {
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		sub := UnknownName
		if p, ok := data.Project(t.ProjectID); ok {
			sub = p.Codename
		}
		row := Row{
			Key:      t.ID,
			Label:    t.Title,
			Sublabel: sub,
			Priority: t.Priority.OrDefault(),
			Health:   EvaluateHealth(t, now),
			Bars:     []Bar{},
		}
		for _, p := range t.Phases {
			if bar, ok := layoutBar(data, t, p, w, total, now); ok {
				row.Bars = append(row.Bars, bar)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func personRows(data domain.AppData, tasks []domain.Task, w Window, total int, now time.Time) []Row {
	byUser := map[string][]Bar{}
	var order []string
	for _, t := range tasks {
		for _, p := range t.Phases {
			bar, ok := layoutBar(data, t, p, w, total, now)
			if !ok {
				continue
			}
			if _, seen := byUser[p.UserID]; !seen {
				order = append(order, p.UserID)
			}
			byUser[p.UserID] = append(byUser[p.UserID], bar)
		}
	}

	rows := make([]Row, 0, len(order))
	appendRow := func(userID string) {
		bars, ok := byUser[userID]
		if !ok {
			return
		}
		label, sub := UnassignedName, ""
		if u, ok := data.User(userID); ok {
			label = u.Name
			sub = data.DepartmentName(u.DepartmentID, UnknownName)
		} else if userID != "" {
			label = UnknownName
		}
		rows = append(rows, Row{Key: userID, Label: label, Sublabel: sub, Bars: bars})
		delete(byUser, userID)
	}
	for _, u := range data.Users {
		appendRow(u.ID)
	}
	for _, id := range order {
		appendRow(id)
	}
	return rows
}

func layoutBar(data domain.AppData, t domain.Task, p domain.TaskPhase, w Window, total int, now time.Time) (Bar, bool) {
	raw, ok := w.LayoutPhaseFields(p.StartDate, p.EndDate)
	if !ok {
		return Bar{}, false
	}
	visible, ok := Cull(raw, total)
	if !ok {
		return Bar{}, false
	}
	return Bar{
		TaskID:    t.ID,
		PhaseID:   p.ID,
		TaskTitle: t.Title,
		TeamID:    p.TeamID,
		TeamName:  data.DepartmentName(p.TeamID, UnknownName),
		UserID:    p.UserID,
		UserName:  data.UserName(p.UserID, UnassignedName),
		Status:    p.Status,
		Order:     p.Order,
		DependsOn: p.DependsOn,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Overdue:   PhaseOverdue(p, now),
		Layout:    visible,
	}, true
}

func anyPhase(t domain.Task, match func(domain.TaskPhase) bool) bool {
	for _, p := range t.Phases {
		if match(p) {
			return true
		}
	}
	return false
}
