package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is the flat, JSON-shaped form of one entity as exchanged with the entity store.
type Record map[string]any

// ID returns the record's id field.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return strings.TrimSpace(id)
}

// EncodeRecord converts a typed entity into a record.
func EncodeRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return out, nil
}

// DecodeRecord converts a record back into a typed entity.
func DecodeRecord[T any](r Record) (T, error) {
	var out T
	raw, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// DecodeRecords converts a record list, failing on the first malformed entry.
func DecodeRecords[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, r := range records {
		v, err := DecodeRecord[T](r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeRecords converts a typed entity list into records.
func EncodeRecords[T any](items []T) ([]Record, error) {
	out := make([]Record, 0, len(items))
	for _, it := range items {
		r, err := EncodeRecord(it)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
