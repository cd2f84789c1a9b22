package tui

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

var (
	accentColor = lipgloss.Color("62")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
	warnColor   = lipgloss.Color("214")
	errorColor  = lipgloss.Color("203")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	tabStyle    = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
	activeTab   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(accentColor).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	statusStyle = lipgloss.NewStyle().Foreground(dimColor)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
)

func statusColor(s domain.PhaseStatus) color.Color {
	switch s {
	case domain.StatusNotStarted:
		return lipgloss.Color("244")
	case domain.StatusStarted:
		return lipgloss.Color("33")
	case domain.StatusBlocked:
		return lipgloss.Color("160")
	case domain.StatusHold:
		return lipgloss.Color("178")
	case domain.StatusRevision:
		return lipgloss.Color("135")
	case domain.StatusDone:
		return lipgloss.Color("35")
	default:
		return lipgloss.Color("240")
	}
}

func healthColor(h domain.Health) color.Color {
	switch h {
	case domain.HealthDelayed:
		return errorColor
	case domain.HealthAtRisk:
		return warnColor
	case domain.HealthOnTrack:
		return lipgloss.Color("42")
	default:
		return mutedColor
	}
}

func densityColor(d schedule.Density) color.Color {
	switch d {
	case schedule.DensityOverloaded:
		return errorColor
	case schedule.DensityHeavy:
		return warnColor
	case schedule.DensityModerate:
		return lipgloss.Color("184")
	case schedule.DensityLight:
		return lipgloss.Color("42")
	default:
		return dimColor
	}
}

func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return m.labels.Loading
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := 20
	if m.height > 0 {
		bodyHeight = max(3, m.height-lipgloss.Height(header)-lipgloss.Height(footer))
	}
	width := max(40, m.width)

	var body string
	switch m.view {
	case viewAdmin:
		body = m.renderAdmin(width, bodyHeight)
	case viewWorkload:
		body = m.renderWorkload(width, bodyHeight)
	case viewDetail:
		body = m.renderDetail(width, bodyHeight)
	default:
		body = m.renderTimeline(width, bodyHeight)
	}
	body = fitLines(body, bodyHeight)

	switch m.mode {
	case modeStatusPicker:
		body = overlayOnContent(body, m.renderPicker(), m.width, bodyHeight)
	case modeConfirmDelete:
		box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(errorColor).Padding(0, 1)
		body = overlayOnContent(body, box.Render(m.labels.ConfirmDelete), m.width, bodyHeight)
	}
	return header + "\n" + body + "\n" + footer
}

func (m Model) renderHeader() string {
	tabs := []string{titleStyle.Render(m.labels.Title)}
	for _, v := range mainViews {
		name := m.viewName(v)
		if v == m.view || (m.view == viewDetail && v == m.backView) {
			tabs = append(tabs, activeTab.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.notice != "" {
		line += "  " + lipgloss.NewStyle().Foreground(warnColor).Render("⚠ "+m.notice)
	}
	return line
}

func (m Model) viewName(v view) string {
	switch v {
	case viewAdmin:
		return m.labels.Admin
	case viewWorkload:
		return m.labels.Workload
	case viewDetail:
		return m.labels.Detail
	default:
		return m.labels.Timeline
	}
}

func (m Model) renderFooter() string {
	var lines []string
	if m.mode == modeSearch {
		in := m.searchInput
		in.SetWidth(max(20, m.width-6))
		lines = append(lines, in.View())
	}
	if s := strings.TrimSpace(m.status); s != "" && s != m.labels.Ready {
		lines = append(lines, statusStyle.Render(s))
	}
	h := m.help
	h.SetWidth(max(0, m.width-2))
	lines = append(lines, lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Width(max(0, m.width)).
		Render(h.View(m.keys.forView(m.view))))
	return strings.Join(lines, "\n")
}

func (m Model) renderTimeline(width, height int) string {
	tl := m.timeline
	span := schedule.FormatCalendarDate(tl.Window.Start)
	if !tl.Window.SingleDay() {
		span += " – " + schedule.FormatCalendarDate(tl.Window.End)
	}
	title := headerStyle.Render(m.labels.Timeline) + hintStyle.Render(fmt.Sprintf("  %s · %s · %s",
		m.labels.ModeName(tl.Mode), m.labels.RangeName(rangeCycle[m.rangeIdx]), span))

	slots := len(tl.Slots)
	if slots == 0 || len(tl.Rows) == 0 {
		return title + "\n\n" + hintStyle.Render(m.labels.NoRows)
	}
	labelW := clamp(width/4, 16, 32)
	cellW := clamp((width-labelW-2)/slots, 1, 6)

	var axis strings.Builder
	axis.WriteString(strings.Repeat(" ", labelW+2))
	for _, s := range tl.Slots {
		axis.WriteString(padCell(slotLabel(s, cellW), cellW))
	}
	lines := []string{title, hintStyle.Render(axis.String())}

	start, end := windowBounds(len(tl.Rows), m.timelineCursor, max(1, height-2))
	for i := start; i < end; i++ {
		row := tl.Rows[i]
		label := row.Label
		if row.Sublabel != "" {
			label = row.Sublabel + " " + label
		}
		marker := "  "
		labelStyle := lipgloss.NewStyle()
		if row.Health != "" {
			labelStyle = labelStyle.Foreground(healthColor(row.Health))
		}
		if i == m.timelineCursor {
			marker = cursorStyle.Render("› ")
			labelStyle = labelStyle.Bold(true)
		}
		lines = append(lines, marker+labelStyle.Render(padCell(label, labelW))+m.barLine(row, slots, cellW))
	}
	return strings.Join(lines, "\n")
}

// slotLabel shortens a slot heading to fit cellW columns.
func slotLabel(s schedule.Slot, cellW int) string {
	if s.Mode == schedule.SlotModeWork {
		if cellW < 5 {
			if s.Minute == 0 {
				return fmt.Sprintf("%d", s.Hour)
			}
			return ""
		}
		return s.Label()
	}
	switch {
	case cellW >= 6:
		return s.Label()
	case cellW >= 2:
		return s.Date.Format("02")
	default:
		return ""
	}
}

// barLine paints every bar of a row onto a character grid of slots*cellW columns.
func (m Model) barLine(row schedule.Row, slots, cellW int) string {
	total := slots * cellW
	owner := make([]int, total)
	for i := range owner {
		owner[i] = -1
	}
	for bi, b := range row.Bars {
		from := clamp(int(math.Round(b.Offset*float64(cellW))), 0, total)
		to := clamp(int(math.Round((b.Offset+b.Width)*float64(cellW))), 0, total)
		if to <= from {
			to = min(total, from+1)
		}
		for x := from; x < to; x++ {
			owner[x] = bi
		}
	}

	var out strings.Builder
	for x := 0; x < total; {
		run := x
		for run < total && owner[run] == owner[x] {
			run++
		}
		n := run - x
		if owner[x] < 0 {
			out.WriteString(statusStyle.Render(strings.Repeat("·", n)))
		} else {
			out.WriteString(m.renderBar(row.Bars[owner[x]], n))
		}
		x = run
	}
	return out.String()
}

func (m Model) renderBar(b schedule.Bar, n int) string {
	text := b.TeamName
	if m.timeline.Mode == schedule.ViewByPerson {
		text = b.TaskTitle
	}
	style := lipgloss.NewStyle().Background(statusColor(b.Status)).Foreground(lipgloss.Color("232"))
	if b.Overdue {
		text = "!" + text
		style = style.Foreground(lipgloss.Color("231")).Bold(true)
	}
	return style.Render(padCell(text, n))
}

func (m Model) renderAdmin(width, height int) string {
	var filters []string
	if m.filter.Query != "" {
		filters = append(filters, fmt.Sprintf("%q", m.filter.Query))
	}
	if m.filter.Status != "" {
		filters = append(filters, m.labels.Status+"="+m.labels.PhaseStatus(m.filter.Status))
	}
	if m.filter.TeamID != "" {
		filters = append(filters, m.labels.Team+"="+m.data.DepartmentName(m.filter.TeamID, schedule.UnknownName))
	}
	summary := m.labels.Any
	if len(filters) > 0 {
		summary = strings.Join(filters, ", ")
	}
	sortName := "-"
	if m.sortKey != schedule.SortNone {
		sortName = string(m.sortKey)
	}
	title := headerStyle.Render(m.labels.Admin) + hintStyle.Render(fmt.Sprintf("  %d · %s: %s · %s: %s",
		len(m.rows), m.labels.Filters, summary, m.labels.Sort, sortName))
	if len(m.selected) > 0 {
		title += hintStyle.Render(fmt.Sprintf(" · %d %s", len(m.selected), m.labels.Selected))
	}
	if len(m.rows) == 0 {
		return title + "\n\n" + hintStyle.Render(m.labels.NoRows)
	}

	const projW, prioW, healthW, delayW, progW, phaseW = 8, 9, 10, 6, 6, 14
	taskW := max(12, width-4-projW-prioW-healthW-delayW-progW-phaseW-6)
	head := "    " + strings.Join([]string{
		padCell(m.labels.Project, projW),
		padCell(m.labels.Task, taskW),
		padCell(m.labels.Priority, prioW),
		padCell(m.labels.Health, healthW),
		padCell(m.labels.Delay, delayW),
		padCell(m.labels.Progress, progW),
		padCell(m.labels.Phases, phaseW),
	}, " ")
	lines := []string{title, hintStyle.Render(head)}

	start, end := windowBounds(len(m.rows), m.adminCursor, max(1, height-2))
	for i := start; i < end; i++ {
		r := m.rows[i]
		marker := "  "
		if i == m.adminCursor {
			marker = cursorStyle.Render("› ")
		}
		check := "  "
		if _, ok := m.selected[r.Task.ID]; ok {
			check = "✓ "
		}
		codename := schedule.UnknownName
		if p, ok := m.data.Project(r.Task.ProjectID); ok {
			codename = p.Codename
		}
		delay := ""
		if r.DelayDays > 0 {
			delay = fmt.Sprintf("+%dd", r.DelayDays)
		}
		health := lipgloss.NewStyle().Foreground(healthColor(r.Health)).Render(padCell(m.labels.HealthName(r.Health), healthW))
		lines = append(lines, marker+check+strings.Join([]string{
			padCell(codename, projW),
			padCell(r.Task.Title, taskW),
			padCell(m.labels.PriorityName(r.Task.Priority), prioW),
			health,
			padCell(delay, delayW),
			padCell(fmt.Sprintf("%d%%", r.Progress), progW),
			phaseStrip(r.Task.Phases, phaseW),
		}, " "))
	}
	return strings.Join(lines, "\n")
}

// phaseStrip renders one colored block per phase in order.
func phaseStrip(phases []domain.TaskPhase, width int) string {
	var b strings.Builder
	for i, p := range phases {
		if i >= width {
			break
		}
		b.WriteString(lipgloss.NewStyle().Foreground(statusColor(p.Status)).Render("■"))
	}
	return b.String()
}

func (m Model) renderWorkload(width, height int) string {
	names := []string{m.labels.People, m.labels.Teams, m.labels.Projects}
	tabs := make([]string, 0, len(names))
	for i, n := range names {
		if workloadTab(i) == m.workloadTab {
			tabs = append(tabs, activeTab.Render(n))
		} else {
			tabs = append(tabs, tabStyle.Render(n))
		}
	}
	lines := []string{headerStyle.Render(m.labels.Workload) + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)}

	var head string
	var rows []string
	barW := clamp(width/4, 10, 30)
	switch m.workloadTab {
	case tabTeams:
		head = strings.Join([]string{padCell(m.labels.Team, 20), padCell(m.labels.Members, 8), padCell(m.labels.Capacity, 9), padCell(m.labels.Hours, 7), padCell(m.labels.Utilization, 6)}, " ")
		for _, t := range m.workload.Teams {
			rows = append(rows, strings.Join([]string{
				padCell(t.Name, 20),
				padCell(fmt.Sprint(t.ActiveMembers), 8),
				padCell(fmt.Sprint(t.CapacityHours), 9),
				padCell(fmt.Sprint(t.TotalHours), 7),
				padCell(fmt.Sprintf("%d%%", t.Utilization), 6),
			}, " ")+" "+meter(t.Utilization, barW, utilizationColor(t.Utilization))+" "+hintStyle.Render(strings.Join(t.Members, ", ")))
		}
	case tabProjects:
		head = strings.Join([]string{padCell(m.labels.Project, 24), padCell(m.labels.Task, 6), padCell(m.labels.Phases, 8), padCell(m.labels.Hours, 7), padCell(m.labels.Progress, 6)}, " ")
		for _, p := range m.workload.Projects {
			rows = append(rows, strings.Join([]string{
				padCell(p.Codename+" "+p.Name, 24),
				padCell(fmt.Sprint(p.TaskCount), 6),
				padCell(fmt.Sprintf("%d/%d", p.DonePhases, p.TotalPhases), 8),
				padCell(fmt.Sprint(p.TotalHours), 7),
				padCell(fmt.Sprintf("%d%%", p.Progress), 6),
			}, " ")+" "+meter(p.Progress, barW, lipgloss.Color("42")))
		}
	default:
		head = strings.Join([]string{padCell(m.labels.Person, 20), padCell(m.labels.Team, 14), padCell(m.labels.Pending, 8), padCell(m.labels.Hours, 7), padCell(m.labels.Utilization, 6)}, " ")
		for _, p := range m.workload.People {
			util := fmt.Sprintf("%d%%", p.Utilization)
			if p.AtCapacity {
				util += "!"
			}
			rows = append(rows, strings.Join([]string{
				padCell(p.Name, 20),
				padCell(p.DepartmentName, 14),
				padCell(fmt.Sprint(p.PendingCount), 8),
				padCell(fmt.Sprint(p.PendingHours), 7),
				padCell(util, 6),
			}, " ")+" "+meter(p.Utilization, barW, densityColor(p.Density)))
		}
	}
	lines = append(lines, hintStyle.Render("  "+head))
	if len(rows) == 0 {
		return strings.Join(append(lines, "", hintStyle.Render(m.labels.NoRows)), "\n")
	}
	start, end := windowBounds(len(rows), m.workloadCursor, max(1, height-2))
	for i := start; i < end; i++ {
		marker := "  "
		if i == m.workloadCursor {
			marker = cursorStyle.Render("› ")
		}
		lines = append(lines, marker+rows[i])
	}
	return strings.Join(lines, "\n")
}

func utilizationColor(pct int) color.Color {
	switch {
	case pct >= 100:
		return errorColor
	case pct >= 80:
		return warnColor
	default:
		return lipgloss.Color("42")
	}
}

// meter draws a horizontal gauge for a 0..100 percentage.
func meter(pct, width int, c color.Color) string {
	filled := clamp(pct*width/100, 0, width)
	return lipgloss.NewStyle().Foreground(c).Render(strings.Repeat("█", filled)) +
		statusStyle.Render(strings.Repeat("░", width-filled))
}

func (m Model) renderDetail(width, height int) string {
	task, ok := m.data.Task(m.detailTaskID)
	if !ok {
		return hintStyle.Render(m.labels.NoRows)
	}
	now := m.svc.Now()
	body := m.md.render(taskMarkdown(task, m.data, schedule.EvaluateHealth(task, now), schedule.DelayDays(task, now), m.labels), width-4)

	var cursor string
	if len(task.Phases) > 0 {
		p := task.Phases[m.phaseCursor]
		cursor = cursorStyle.Render(fmt.Sprintf("› #%d %s · %s", p.Order,
			m.data.DepartmentName(p.TeamID, schedule.UnknownName),
			m.labels.PhaseStatus(p.Status)))
	}
	return fitLines(body, max(1, height-1)) + "\n" + cursor
}

func (m Model) renderPicker() string {
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
	lines := []string{headerStyle.Render(m.labels.PickStatus)}
	if m.pickerTarget == pickBulk {
		lines[0] += hintStyle.Render(fmt.Sprintf(" (%d)", len(m.pickerIDs)))
	}
	for i, s := range domain.PhaseStatuses() {
		marker := "  "
		if i == m.pickerIndex {
			marker = "› "
		}
		lines = append(lines, marker+lipgloss.NewStyle().Foreground(statusColor(s)).Render("■ ")+m.labels.PhaseStatus(s))
	}
	lines = append(lines, hintStyle.Render("enter apply • esc cancel"))
	return box.Render(strings.Join(lines, "\n"))
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func wrapIndex(current, delta, total int) int {
	if total <= 0 {
		return 0
	}
	return ((current+delta)%total + total) % total
}

// windowBounds returns an inclusive-exclusive list window that keeps selected visible.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := max(0, selected-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = end - windowSize
	}
	return start, end
}

func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		return overlay + "\n\n" + base
	}
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(fitLines(base, height)).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)).X(0).Y(0).Z(10))
	return canvas.Render()
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n == 1 {
		return string(rs[:1])
	}
	return string(rs[:n-1]) + "…"
}

// padCell truncates or right-pads s to exactly n display columns.
func padCell(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for lipgloss.Width(s) > n {
		s = truncate(s, len([]rune(s))-1)
		if len([]rune(s)) <= 1 {
			break
		}
	}
	if w := lipgloss.Width(s); w < n {
		s += strings.Repeat(" ", n-w)
	}
	return s
}
