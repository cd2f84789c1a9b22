package domain

import "time"

// MaxActivityEntries bounds the in-memory activity log.
const MaxActivityEntries = 500

// ActivityLogEntry records one create/update/delete.
type ActivityLogEntry struct {
	ID         string     `json:"id" yaml:"id"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
	EntityType EntityType `json:"entityType" yaml:"entityType"`
	EntityID   string     `json:"entityId" yaml:"entityId"`
	Action     Action     `json:"action" yaml:"action"`
	Field      string     `json:"field,omitempty" yaml:"field,omitempty"`
	OldValue   string     `json:"oldValue,omitempty" yaml:"oldValue,omitempty"`
	NewValue   string     `json:"newValue,omitempty" yaml:"newValue,omitempty"`
	UserID     string     `json:"userId,omitempty" yaml:"userId,omitempty"`
}

// PrependActivity adds entry at the head of log and drops entries past the cap.
func PrependActivity(log []ActivityLogEntry, entry ActivityLogEntry) []ActivityLogEntry {
	out := make([]ActivityLogEntry, 0, min(len(log)+1, MaxActivityEntries))
	out = append(out, entry)
	for _, e := range log {
		if len(out) == MaxActivityEntries {
			break
		}
		out = append(out, e)
	}
	return out
}
