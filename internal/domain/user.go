package domain

import "strings"

// User is a team member who can be assigned phases.
type User struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	DepartmentID string     `json:"departmentId" yaml:"departmentId"`
	Role         Role       `json:"role" yaml:"role"`
	Status       UserStatus `json:"status" yaml:"status"`
	Skills       []string   `json:"skills,omitempty" yaml:"skills,omitempty"`
	// Capacity is an advisory cap on concurrent non-done phases.
	Capacity *int `json:"capacity,omitempty" yaml:"capacity,omitempty"`
}

// UserInput holds the editable fields of a user.
type UserInput struct {
	ID           string
	Name         string
	DepartmentID string
	Role         Role
	Status       UserStatus
	Skills       []string
	Capacity     *int
}

func NewUser(in UserInput) (User, error) {
	u := User{
		ID:           strings.TrimSpace(in.ID),
		Name:         strings.TrimSpace(in.Name),
		DepartmentID: strings.TrimSpace(in.DepartmentID),
		Role:         in.Role,
		Status:       in.Status,
		Skills:       normalizeSkills(in.Skills),
		Capacity:     in.Capacity,
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = UserActive
	}
	if err := u.Validate(); err != nil {
		return User{}, err
	}
	return u, nil
}

func (u User) Validate() error {
	switch {
	case strings.TrimSpace(u.ID) == "":
		return ErrInvalidID
	case strings.TrimSpace(u.Name) == "":
		return ErrInvalidName
	case strings.TrimSpace(u.DepartmentID) == "":
		return ErrInvalidTeamID
	case !u.Role.Valid():
		return ErrInvalidRole
	case !u.Status.Valid():
		return ErrInvalidStatus
	case u.Capacity != nil && *u.Capacity < 0:
		return ErrInvalidCapacity
	}
	return nil
}

// Active reports whether the user can receive new assignments.
func (u User) Active() bool {
	return u.Status == UserActive
}

// ParseSkills splits a comma-separated skills field.
func ParseSkills(raw string) []string {
	return normalizeSkills(strings.Split(raw, ","))
}

func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
