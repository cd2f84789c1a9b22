package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hylla/metier/internal/domain"
)

// activityInput is an activity entry before id and timestamp are stamped.
type activityInput struct {
	entityType domain.EntityType
	entityID   string
	action     domain.Action
	field      string
	oldValue   string
	newValue   string
}

func (s *Service) newActivity(in activityInput) domain.ActivityLogEntry {
	now := s.clock()
	return domain.ActivityLogEntry{
		ID:         fmt.Sprintf("log_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:6]),
		Timestamp:  now.UTC(),
		EntityType: in.entityType,
		EntityID:   in.entityID,
		Action:     in.action,
		Field:      in.field,
		OldValue:   in.oldValue,
		NewValue:   in.newValue,
		UserID:     s.actorID,
	}
}

// persistActivity writes one entry best effort; failures are logged and never surface.
func (s *Service) persistActivity(ctx context.Context, entry domain.ActivityLogEntry) {
	op, err := saveOp(false, domain.CollectionActivityLog, entry.ID, entry)
	if err == nil {
		err = s.exec(ctx, op)
	}
	if err != nil {
		s.log.Debug("activity log write skipped", "id", entry.ID, "err", err)
	}
}

// ActivityLog returns up to limit entries, newest first. A non-positive limit returns all.
func (s *Service) ActivityLog(limit int) []domain.ActivityLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.data.ActivityLog
	if limit > 0 && len(log) > limit {
		log = log[:limit]
	}
	return slices.Clone(log)
}

func sortActivityNewestFirst(log []domain.ActivityLogEntry) {
	slices.SortStableFunc(log, func(a, b domain.ActivityLogEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// mergeActivity unions two newest-first logs by id, keeping the cap.
func mergeActivity(stored, local []domain.ActivityLogEntry) []domain.ActivityLogEntry {
	seen := make(map[string]struct{}, len(stored))
	out := make([]domain.ActivityLogEntry, 0, len(stored)+len(local))
	for _, e := range stored {
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	for _, e := range local {
		if _, ok := seen[e.ID]; !ok {
			out = append(out, e)
		}
	}
	sortActivityNewestFirst(out)
	if len(out) > domain.MaxActivityEntries {
		out = out[:domain.MaxActivityEntries]
	}
	return out
}
