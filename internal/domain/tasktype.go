package domain

import (
	"maps"
	"strings"
)

// TaskTypeConfig estimates how many hours each team spends on one task of this type.
type TaskTypeConfig struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	EstimatedHours map[string]int `json:"estimatedHours" yaml:"estimatedHours"`
}

func NewTaskType(id, name string, hours map[string]int) (TaskTypeConfig, error) {
	tt := TaskTypeConfig{
		ID:             strings.TrimSpace(id),
		Name:           strings.TrimSpace(name),
		EstimatedHours: maps.Clone(hours),
	}
	if tt.EstimatedHours == nil {
		tt.EstimatedHours = map[string]int{}
	}
	if err := tt.Validate(); err != nil {
		return TaskTypeConfig{}, err
	}
	return tt, nil
}

func (tt TaskTypeConfig) Validate() error {
	if strings.TrimSpace(tt.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(tt.Name) == "" {
		return ErrInvalidName
	}
	for _, h := range tt.EstimatedHours {
		if h < 0 {
			return ErrInvalidHours
		}
	}
	return nil
}

// HoursFor returns the estimate for one team, 0 when the team has none.
func (tt TaskTypeConfig) HoursFor(departmentID string) int {
	return tt.EstimatedHours[departmentID]
}
