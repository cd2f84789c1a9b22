package domain

import "strings"

// Department is a team that owns phases and groups users.
type Department struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

func NewDepartment(id, name string) (Department, error) {
	d := Department{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
	if err := d.Validate(); err != nil {
		return Department{}, err
	}
	return d, nil
}

func (d Department) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidName
	}
	return nil
}
