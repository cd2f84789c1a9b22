// Package postgres is the server-grade entity store, sharing the row schema of the sqlite store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hylla/metier/internal/adapters/storage/rowcodec"
	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
)

const uniqueViolation = "23505"

// Store keeps one table per collection in a Postgres schema.
type Store struct {
	db *pgxpool.Pool
}

// Open connects with dsn and creates missing tables.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{db: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	for _, t := range rowcodec.Tables() {
		defs := []string{"seq BIGSERIAL PRIMARY KEY"}
		for i, c := range t.Columns {
			if i == 0 {
				defs = append(defs, quote(c.Name)+" TEXT NOT NULL UNIQUE")
				continue
			}
			defs = append(defs, quote(c.Name)+" TEXT NOT NULL DEFAULT ''")
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", t.Name, strings.Join(defs, ",\n  "))
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres %s: %w", t.Name, err)
		}
	}
	return nil
}

// GetAll returns every row of a collection in insertion order.
func (s *Store) GetAll(ctx context.Context, c domain.Collection) ([]domain.Record, error) {
	t, err := rowcodec.Lookup(c)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY seq", columnList(t), t.Name))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		cells := make([]string, len(t.Columns))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec, err := t.Decode(cells)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create appends a row. It returns the record as stored.
func (s *Store) Create(ctx context.Context, c domain.Collection, r domain.Record) (domain.Record, error) {
	t, err := rowcodec.Lookup(c)
	if err != nil {
		return nil, err
	}
	cells, err := t.Encode(r)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.Name, columnList(t), placeholders(len(cells), 1))
	if _, err := s.db.Exec(ctx, stmt, anySlice(cells)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%s %q: %w", c, cells[0], app.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("insert %s: %w", c, err)
	}
	return t.Decode(cells)
}

// Update replaces the row with the given id in place.
func (s *Store) Update(ctx context.Context, c domain.Collection, id string, r domain.Record) (domain.Record, error) {
	t, err := rowcodec.Lookup(c)
	if err != nil {
		return nil, err
	}
	withID := make(domain.Record, len(r)+1)
	for k, v := range r {
		withID[k] = v
	}
	withID["id"] = strings.TrimSpace(id)
	cells, err := t.Encode(withID)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(t.Columns)-1)
	for i, col := range t.Columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = $%d", quote(col.Name), i+1))
	}
	stmt := fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = $%d`, t.Name, strings.Join(sets, ", "), len(cells))
	tag, err := s.db.Exec(ctx, stmt, append(anySlice(cells[1:]), cells[0])...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", c, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, app.ErrNotFound
	}
	return t.Decode(cells)
}

// Delete removes the row with the given id.
func (s *Store) Delete(ctx context.Context, c domain.Collection, id string) error {
	t, err := rowcodec.Lookup(c)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, t.Name), strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", c, err)
	}
	if tag.RowsAffected() == 0 {
		return app.ErrNotFound
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

func columnList(t rowcodec.Table) string {
	names := t.ColumnNames()
	for i, n := range names {
		names[i] = quote(n)
	}
	return strings.Join(names, ", ")
}

func placeholders(n, start int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func anySlice(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
