package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

// formColumns is the column list used for SELECT and RETURNING clauses on the forms table.
const formColumns = `id, owner_id, group_id, title, state, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateForm(ctx context.Context, db executor, f *model.Form) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO forms (id, owner_id, group_id, title, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID,
		f.OwnerID,
		f.GroupID,
		f.Title,
		string(f.State),
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert form: %w", err)
	}
	return nil
}

func queryGetForm(ctx context.Context, db executor, id string) (*model.Form, error) {
	row := db.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE id = $1`, id)
	f, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get form: %w", err)
	}
	return f, nil
}

func queryListForms(ctx context.Context, db executor, filter model.FormFilter) ([]*model.Form, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.GroupID != "" {
		whereClauses = append(whereClauses, "group_id = "+nextArg())
		args = append(args, filter.GroupID)
	}

	if filter.OwnerID != "" {
		whereClauses = append(whereClauses, "owner_id = "+nextArg())
		args = append(args, filter.OwnerID)
	}

	if len(filter.State) > 0 {
		placeholders := make([]string, len(filter.State))
		for i, s := range filter.State {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "state IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := "SELECT " + formColumns + " FROM forms"
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()
	return scanForms(rows)
}

// queryCompareAndSwapState is the only statement that changes a form's state.
// The whole guard lives in the WHERE clause so the row lock taken by UPDATE
// decides the race: a concurrent loser re-evaluates the predicate against the
// committed row and matches nothing.
func queryCompareAndSwapState(ctx context.Context, db executor, g store.Guard, to model.State) (*model.Form, int64, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE forms
		SET state = $4, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND state = $3
		RETURNING `+formColumns,
		g.ID, g.OwnerID, string(g.State), string(to),
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

func queryCompareAndDelete(ctx context.Context, db executor, g store.Guard) (*model.Form, int64, error) {
	row := db.QueryRowContext(ctx, `
		DELETE FROM forms
		WHERE id = $1 AND owner_id = $2 AND state = $3
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
