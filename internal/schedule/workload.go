package schedule

import (
	"math"

	"github.com/hylla/metier/internal/domain"
)

// StandardCapacityHours is the monthly standard-hours capacity of one active member.
const StandardCapacityHours = 176

// MaxTaskRefs bounds the task list attached to each person.
const MaxTaskRefs = 5

// Density buckets a person's pending hours for heat-map rendering.
type Density string

const (
	DensityNone       Density = "none"
	DensityLight      Density = "light"
	DensityModerate   Density = "moderate"
	DensityHeavy      Density = "heavy"
	DensityOverloaded Density = "overloaded"
)

// DensityFor maps pending hours onto a band.
func DensityFor(hours int) Density {
	switch {
	case hours <= 0:
		return DensityNone
	case hours < 20:
		return DensityLight
	case hours < 40:
		return DensityModerate
	case hours < 60:
		return DensityHeavy
	default:
		return DensityOverloaded
	}
}

// TaskRef is the short task summary shown next to a person.
type TaskRef struct {
	TaskID string             `json:"taskId"`
	Title  string             `json:"title"`
	Status domain.PhaseStatus `json:"status"`
}

// PersonLoad is the pending work of one user.
type PersonLoad struct {
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	DepartmentID   string    `json:"departmentId"`
	DepartmentName string    `json:"departmentName"`
	Active         bool      `json:"active"`
	PendingCount   int       `json:"pendingCount"`
	PendingHours   int       `json:"pendingHours"`
	Utilization    int       `json:"utilization"`
	AtCapacity     bool      `json:"atCapacity"`
	Density        Density   `json:"density"`
	Tasks          []TaskRef `json:"tasks"`
}

// TeamLoad is the demand against capacity of one department.
type TeamLoad struct {
	DepartmentID  string   `json:"departmentId"`
	Name          string   `json:"name"`
	ActiveMembers int      `json:"activeMembers"`
	Members       []string `json:"members"`
	CapacityHours int      `json:"capacityHours"`
	TotalHours    int      `json:"totalHours"`
	TotalTasks    int      `json:"totalTasks"`
	Utilization   int      `json:"utilization"`
}

// ProjectLoad is the progress of one active project.
type ProjectLoad struct {
	ProjectID   string `json:"projectId"`
	Codename    string `json:"codename"`
	Name        string `json:"name"`
	TaskCount   int    `json:"taskCount"`
	TotalPhases int    `json:"totalPhases"`
	DonePhases  int    `json:"donePhases"`
	TotalHours  int    `json:"totalHours"`
	Progress    int    `json:"progress"`
}

// Workload bundles the three roll-ups.
type Workload struct {
	People   []PersonLoad  `json:"people"`
	Teams    []TeamLoad    `json:"teams"`
	Projects []ProjectLoad `json:"projects"`
}

// BuildWorkload computes all roll-ups from one snapshot.
func BuildWorkload(data domain.AppData) Workload {
	return Workload{
		People:   ByPerson(data),
		Teams:    ByTeam(data),
		Projects: ByProject(data),
	}
}

// Percent returns round(part/whole*100), or 0 when whole is not positive.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// ByPerson aggregates pending phases per user in user order.
func ByPerson(data domain.AppData) []PersonLoad {
	out := make([]PersonLoad, 0, len(data.Users))
	for _, u := range data.Users {
		load := PersonLoad{
			UserID:         u.ID,
			Name:           u.Name,
			DepartmentID:   u.DepartmentID,
			DepartmentName: data.DepartmentName(u.DepartmentID, UnknownName),
			Active:         u.Active(),
			Tasks:          []TaskRef{},
		}
		for _, t := range data.Tasks {
			for _, p := range t.Phases {
				if p.UserID != u.ID || p.Status.Done() {
					continue
				}
				load.PendingCount++
				load.PendingHours += data.PhaseHours(t, p)
				if len(load.Tasks) < MaxTaskRefs {
					load.Tasks = append(load.Tasks, TaskRef{TaskID: t.ID, Title: t.Title, Status: p.Status})
				}
			}
		}
		load.Utilization = min(100, Percent(load.PendingHours, StandardCapacityHours))
		load.AtCapacity = load.PendingHours >= StandardCapacityHours
		load.Density = DensityFor(load.PendingHours)
		out = append(out, load)
	}
	return out
}

// ByTeam aggregates pending phases per department against its active headcount.
func ByTeam(data domain.AppData) []TeamLoad {
	out := make([]TeamLoad, 0, len(data.Departments))
	for _, group := range ActiveMembersByDepartment(data) {
		d := group.Department
		load := TeamLoad{DepartmentID: d.ID, Name: d.Name, ActiveMembers: len(group.Members), Members: make([]string, 0, len(group.Members))}
		for _, u := range group.Members {
			load.Members = append(load.Members, u.Name)
		}
		load.CapacityHours = load.ActiveMembers * StandardCapacityHours
		for _, t := range data.Tasks {
			for _, p := range t.Phases {
				if p.TeamID != d.ID || p.Status.Done() {
					continue
				}
				load.TotalTasks++
				load.TotalHours += data.PhaseHours(t, p)
			}
		}
		load.Utilization = Percent(load.TotalHours, load.CapacityHours)
		out = append(out, load)
	}
	return out
}

// ByProject reports progress for active projects. Hours count every phase regardless of status.
func ByProject(data domain.AppData) []ProjectLoad {
	out := make([]ProjectLoad, 0, len(data.Projects))
	for _, pr := range data.Projects {
		if !pr.Active() {
			continue
		}
		load := ProjectLoad{ProjectID: pr.ID, Codename: pr.Codename, Name: pr.Name}
		for _, t := range data.Tasks {
			if t.ProjectID != pr.ID {
				continue
			}
			load.TaskCount++
			for _, p := range t.Phases {
				load.TotalPhases++
				if p.Status.Done() {
					load.DonePhases++
				}
				load.TotalHours += data.PhaseHours(t, p)
			}
		}
		load.Progress = Percent(load.DonePhases, load.TotalPhases)
		out = append(out, load)
	}
	return out
}

// DepartmentMembers lists the active users of one department.
type DepartmentMembers struct {
	Department domain.Department `json:"department"`
	Members    []domain.User     `json:"members"`
}

// ActiveMembersByDepartment groups active users by department in department order.
func ActiveMembersByDepartment(data domain.AppData) []DepartmentMembers {
	out := make([]DepartmentMembers, 0, len(data.Departments))
	for _, d := range data.Departments {
		group := DepartmentMembers{Department: d, Members: []domain.User{}}
		for _, u := range data.Users {
			if u.DepartmentID == d.ID && u.Active() {
				group.Members = append(group.Members, u)
			}
		}
		out = append(out, group)
	}
	return out
}
