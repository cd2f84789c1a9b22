package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hylla/metier/internal/adapters/storage/rowcodec"
	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Store keeps one table per collection. Rows keep insertion order through the seq column.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database file and migrates it.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newStore(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{`PRAGMA journal_mode = WAL;`}
	for _, t := range rowcodec.Tables() {
		defs := []string{`seq INTEGER PRIMARY KEY AUTOINCREMENT`}
		for i, c := range t.Columns {
			if i == 0 {
				defs = append(defs, quote(c.Name)+` TEXT NOT NULL UNIQUE`)
				continue
			}
			defs = append(defs, quote(c.Name)+` TEXT NOT NULL DEFAULT ''`)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n);", t.Name, strings.Join(defs, ",\n\t")))
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
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
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY seq`, columnList(t), t.Name))
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
	stmt := fmt.Sprintf(`INSERT INTO %s(%s) VALUES (%s)`, t.Name, columnList(t), placeholders(len(cells)))
	if _, err := s.db.ExecContext(ctx, stmt, anySlice(cells)...); err != nil {
		if isUniqueErr(err) {
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
	r = withID(r, id)
	cells, err := t.Encode(r)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, len(t.Columns)-1)
	for _, col := range t.Columns[1:] {
		sets = append(sets, quote(col.Name)+` = ?`)
	}
	args := append(anySlice(cells[1:]), cells[0])
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = ?`, t.Name, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", c, err)
	}
	if err := translateNoRows(res); err != nil {
		return nil, err
	}
	return t.Decode(cells)
}

// Delete removes the row with the given id.
func (s *Store) Delete(ctx context.Context, c domain.Collection, id string) error {
	t, err := rowcodec.Lookup(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = ?`, t.Name), strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", c, err)
	}
	return translateNoRows(res)
}

func withID(r domain.Record, id string) domain.Record {
	out := make(domain.Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out["id"] = strings.TrimSpace(id)
	return out
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

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// translateNoRows maps a zero-row write to app.ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

func isUniqueErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
