// Package rowcodec maps flat entity records to fixed-order text rows. Each collection has one
// column schema; nested values are stored as JSON text and an empty cell means the field is absent.
package rowcodec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hylla/metier/internal/domain"
)

var (
	ErrMissingID     = errors.New("record id is required")
	ErrMalformedCell = errors.New("malformed cell")
	ErrRowWidth      = errors.New("row width does not match schema")
)

// Kind controls how a cell is decoded back into a record value.
type Kind int

const (
	Text Kind = iota
	Number
	JSON
)

// Column is one named, typed cell position.
type Column struct {
	Name string
	Kind Kind
}

// Table is the row schema of one collection. Name is the storage table name.
type Table struct {
	Collection domain.Collection
	Name       string
	Columns    []Column
}

func text(names ...string) []Column {
	out := make([]Column, 0, len(names))
	for _, n := range names {
		out = append(out, Column{Name: n, Kind: Text})
	}
	return out
}

func cols(parts ...[]Column) []Column {
	var out []Column
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var tables = []Table{
	{domain.CollectionProjects, "projects", text("id", "codename", "name", "owner", "status")},
	{domain.CollectionDepartments, "departments", text("id", "name")},
	{domain.CollectionUsers, "users", cols(
		text("id", "name", "departmentId", "role", "status"),
		[]Column{{"skills", JSON}, {"capacity", Number}},
	)},
	{domain.CollectionTaskTypes, "task_types", cols(text("id", "name"), []Column{{"estimatedHours", JSON}})},
	{domain.CollectionTasks, "tasks", cols(
		text("id", "projectId", "taskTypeId", "title"),
		[]Column{{"phases", JSON}},
		text("link", "priority", "delayReason"),
	)},
	{domain.CollectionActivityLog, "activity_log", text(
		"id", "timestamp", "entityType", "entityId", "action", "field", "oldValue", "newValue", "userId",
	)},
	{domain.CollectionTaskTemplates, "task_templates", cols(
		text("id", "name", "taskTypeId"),
		[]Column{{"defaultPhases", JSON}},
	)},
}

// Tables returns every schema in collection load order.
func Tables() []Table {
	return append([]Table(nil), tables...)
}

// Lookup returns the schema of one collection.
func Lookup(c domain.Collection) (Table, error) {
	for _, t := range tables {
		if t.Collection == c {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%q: %w", c, domain.ErrInvalidCollection)
}

// ColumnNames returns the column names in row order.
func (t Table) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// Encode renders r as cells in column order. Fields outside the schema are dropped.
func (t Table) Encode(r domain.Record) ([]string, error) {
	if r.ID() == "" {
		return nil, ErrMissingID
	}
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cell, err := encodeCell(r[c.Name])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		out = append(out, cell)
	}
	out[0] = r.ID()
	return out, nil
}

// Decode rebuilds a record from cells in column order.
func (t Table) Decode(cells []string) (domain.Record, error) {
	if len(cells) != len(t.Columns) {
		return nil, fmt.Errorf("%s: %w: got %d cells, want %d", t.Name, ErrRowWidth, len(cells), len(t.Columns))
	}
	out := make(domain.Record, len(t.Columns))
	for i, c := range t.Columns {
		raw := cells[i]
		if raw == "" {
			continue
		}
		v, err := decodeCell(c.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		out[c.Name] = v
	}
	return out, nil
}

// Normalize round-trips r through the row form, yielding exactly what a store would return.
func (t Table) Normalize(r domain.Record) (domain.Record, error) {
	cells, err := t.Encode(r)
	if err != nil {
		return nil, err
	}
	return t.Decode(cells)
}

func encodeCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case json.Number:
		return x.String(), nil
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedCell, err)
		}
		return string(raw), nil
	}
}

func decodeCell(kind Kind, raw string) (any, error) {
	switch kind {
	case Number:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedCell, raw)
		}
		return f, nil
	case JSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedCell, err)
		}
		return v, nil
	default:
		return raw, nil
	}
}
