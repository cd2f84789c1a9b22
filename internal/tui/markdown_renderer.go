package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/metier/internal/domain"
	"github.com/hylla/metier/internal/schedule"
)

// markdownRenderer caches a glamour renderer per wrap width.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}
	wrapWidth := max(width, 32)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}
	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// taskMarkdown describes one task with its phases as a markdown document.
func taskMarkdown(task domain.Task, data domain.AppData, health domain.Health, delay int, labels Labels) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", mdEscape(task.Title))

	project := schedule.UnknownName
	if p, ok := data.Project(task.ProjectID); ok {
		project = p.Codename + " " + p.Name
	}
	fmt.Fprintf(&b, "- **%s:** %s\n", labels.Project, mdEscape(project))
	fmt.Fprintf(&b, "- **%s:** %s\n", labels.Priority, labels.PriorityName(task.Priority))
	fmt.Fprintf(&b, "- **%s:** %s\n", labels.Health, labels.HealthName(health))
	if delay > 0 {
		fmt.Fprintf(&b, "- **%s:** %d\n", labels.Delay, delay)
	}
	if task.Link != "" {
		fmt.Fprintf(&b, "- **%s:** %s\n", labels.Link, task.Link)
	}
	if task.DelayReason != "" {
		fmt.Fprintf(&b, "- **%s:** %s\n", labels.DelayReason, mdEscape(task.DelayReason))
	}

	fmt.Fprintf(&b, "\n## %s\n\n", labels.Phases)
	fmt.Fprintf(&b, "| # | %s | %s | %s | %s |\n", labels.Team, labels.Person, labels.Window, labels.Status)
	b.WriteString("|---|---|---|---|---|\n")
	for _, p := range task.Phases {
		fmt.Fprintf(&b, "| %d | %s | %s | %s → %s | %s |\n",
			p.Order,
			mdEscape(data.DepartmentName(p.TeamID, schedule.UnknownName)),
			mdEscape(data.UserName(p.UserID, schedule.UnassignedName)),
			p.StartDate, p.EndDate,
			labels.PhaseStatus(p.Status),
		)
	}
	return b.String()
}

func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`).Replace(s)
}
