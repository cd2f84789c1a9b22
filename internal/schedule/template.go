package schedule

import (
	"fmt"
	"time"

	"github.com/hylla/metier/internal/domain"
)

// PhaseTimeLayout is the minute-precision layout used for generated phase times.
const PhaseTimeLayout = "2006-01-02T15:04"

// DefaultWorkWindow returns today's 09:30 and 18:30 formatted for phase fields.
func DefaultWorkWindow(now time.Time) (string, string) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, WorkStartMinutes/60, WorkStartMinutes%60, 0, 0, now.Location())
	end := time.Date(y, m, d, WorkEndMinutes/60, WorkEndMinutes%60, 0, 0, now.Location())
	return start.Format(PhaseTimeLayout), end.Format(PhaseTimeLayout)
}

// PhaseID builds the id of the i-th phase generated from one base stamp.
func PhaseID(base string, i int) string {
	return fmt.Sprintf("ph_%s_%d", base, i)
}

// InstantiateTemplate expands a template into concrete phases for a new task. Ids share base so
// dependency references resolve before anything is persisted.
func InstantiateTemplate(tpl domain.TaskTemplate, data domain.AppData, now time.Time, base string) []domain.TaskPhase {
	start, end := DefaultWorkWindow(now)
	out := make([]domain.TaskPhase, 0, len(tpl.DefaultPhases))
	for i, bp := range tpl.DefaultPhases {
		phase := domain.TaskPhase{
			ID:        PhaseID(base, i),
			TeamID:    bp.TeamID,
			StartDate: start,
			EndDate:   end,
			Status:    domain.StatusNotStarted,
			Order:     bp.Order,
		}
		if u, ok := data.FirstActiveUser(bp.TeamID); ok {
			phase.UserID = u.ID
		}
		if bp.DependsOnPrev && i > 0 {
			phase.DependsOn = PhaseID(base, i-1)
		}
		out = append(out, phase)
	}
	return out
}

// AppendDefaultPhase adds a blank phase for the first department, chained to the current last phase.
func AppendDefaultPhase(phases []domain.TaskPhase, data domain.AppData, now time.Time, base string) []domain.TaskPhase {
	start, end := DefaultWorkWindow(now)
	phase := domain.TaskPhase{
		ID:        PhaseID(base, len(phases)),
		StartDate: start,
		EndDate:   end,
		Status:    domain.StatusNotStarted,
		Order:     len(phases) + 1,
	}
	if len(data.Departments) > 0 {
		phase.TeamID = data.Departments[0].ID
		if u, ok := data.FirstActiveUser(phase.TeamID); ok {
			phase.UserID = u.ID
		} else if len(data.Users) > 0 {
			phase.UserID = data.Users[0].ID
		}
	}
	if len(phases) > 0 {
		phase.DependsOn = phases[len(phases)-1].ID
	}
	return append(phases, phase)
}
