// Package sqlite implements store.Store on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const formColumns = `id, owner_id, group_id, title, state, created_at, updated_at`

// Store persists forms in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the SQLite database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY
	// between pooled handles of the same process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreateForm(ctx context.Context, f *model.Form) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO forms (id, owner_id, group_id, title, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.GroupID, f.Title, string(f.State),
		toMillis(f.CreatedAt), toMillis(f.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert form: %w", err)
	}
	return nil
}

func (s *Store) GetForm(ctx context.Context, id string) (*model.Form, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE id = ?`, id)
	f, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get form: %w", err)
	}
	return f, nil
}

func (s *Store) ListForms(ctx context.Context, filter model.FormFilter) ([]*model.Form, error) {
	var (
		where []string
		args  []any
	)
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if len(filter.State) > 0 {
		placeholders := make([]string, len(filter.State))
		for i, st := range filter.State {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "state IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := "SELECT " + formColumns + " FROM forms"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var forms []*model.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

func (s *Store) CompareAndSwapState(ctx context.Context, g store.Guard, to model.State) (*model.Form, int64, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE forms
		SET state = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND state = ?
		RETURNING `+formColumns,
		string(to), toMillis(s.now()), g.ID, g.OwnerID, string(g.State),
	)
	f, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("compare and swap state: %w", err)
	}
	return f, 1, nil
}

func (s *Store) CompareAndDelete(ctx context.Context, g store.Guard) (*model.Form, int64, error) {
	row := s.db.QueryRowContext(ctx, `
		DELETE FROM forms
		WHERE id = ? AND owner_id = ? AND state = ?
		RETURNING `+formColumns,
		g.ID, g.OwnerID, string(g.State),
	)
	f, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("compare and delete: %w", err)
	}
	return f, 1, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanForm(row scannable) (*model.Form, error) {
	var (
		f                    model.Form
		createdAt, updatedAt int64
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.GroupID, &f.Title, &f.State, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(createdAt)
	f.UpdatedAt = fromMillis(updatedAt)
	return &f, nil
}
