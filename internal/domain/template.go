package domain

import (
	"fmt"
	"slices"
	"strings"
)

// PhaseBlueprint is one stage of a task template.
type PhaseBlueprint struct {
	TeamID        string `json:"teamId" yaml:"teamId"`
	Order         int    `json:"order" yaml:"order"`
	DependsOnPrev bool   `json:"dependsOnPrev" yaml:"dependsOnPrev"`
}

// TaskTemplate is a reusable blueprint of ordered phases.
type TaskTemplate struct {
	ID            string           `json:"id" yaml:"id"`
	Name          string           `json:"name" yaml:"name"`
	TaskTypeID    string           `json:"taskTypeId" yaml:"taskTypeId"`
	DefaultPhases []PhaseBlueprint `json:"defaultPhases" yaml:"defaultPhases"`
}

func (t TaskTemplate) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return ErrInvalidID
	case strings.TrimSpace(t.Name) == "":
		return ErrInvalidName
	}
	for i, bp := range t.DefaultPhases {
		if strings.TrimSpace(bp.TeamID) == "" {
			return fmt.Errorf("blueprint %d: %w", i+1, ErrInvalidTeamID)
		}
		if bp.Order < 1 {
			return fmt.Errorf("blueprint %d: %w", i+1, ErrInvalidOrder)
		}
	}
	return nil
}

// AddPhase appends a blueprint stage ordered after the existing ones.
func (t *TaskTemplate) AddPhase(teamID string, dependsOnPrev bool) {
	t.DefaultPhases = append(t.DefaultPhases, PhaseBlueprint{
		TeamID:        strings.TrimSpace(teamID),
		Order:         len(t.DefaultPhases) + 1,
		DependsOnPrev: dependsOnPrev,
	})
}

// RemovePhase drops one stage and renumbers the remaining orders from 1.
func (t *TaskTemplate) RemovePhase(idx int) {
	if idx < 0 || idx >= len(t.DefaultPhases) {
		return
	}
	t.DefaultPhases = slices.Delete(t.DefaultPhases, idx, idx+1)
	for i := range t.DefaultPhases {
		t.DefaultPhases[i].Order = i + 1
	}
}
