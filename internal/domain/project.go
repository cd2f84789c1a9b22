package domain

import "strings"

// Project groups tasks under a short uppercase codename.
type Project struct {
	ID       string        `json:"id" yaml:"id"`
	Codename string        `json:"codename" yaml:"codename"`
	Name     string        `json:"name" yaml:"name"`
	Owner    string        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Status   ProjectStatus `json:"status" yaml:"status"`
}

// ProjectInput holds the editable fields of a project.
type ProjectInput struct {
	ID       string
	Codename string
	Name     string
	Owner    string
	Status   ProjectStatus
}

// NewProject constructs a project with a normalized codename.
func NewProject(in ProjectInput) (Project, error) {
	p := Project{
		ID:       strings.TrimSpace(in.ID),
		Codename: NormalizeCodename(in.Codename),
		Name:     strings.TrimSpace(in.Name),
		Owner:    strings.TrimSpace(in.Owner),
		Status:   in.Status,
	}
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (p Project) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return ErrInvalidID
	case strings.TrimSpace(p.Codename) == "":
		return ErrInvalidCodename
	case strings.TrimSpace(p.Name) == "":
		return ErrInvalidName
	case !p.Status.Valid():
		return ErrInvalidStatus
	}
	return nil
}

// Active reports whether the project is still open.
func (p Project) Active() bool {
	return p.Status == ProjectActive
}

// NormalizeCodename trims and uppercases a codename.
func NormalizeCodename(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
