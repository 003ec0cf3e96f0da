package postgres

import (
	"github.com/alfredjeanlab/formflow/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanForm scans a single row into a model.Form.
// The row must contain columns in the order defined by formColumns.
func scanForm(row scannable) (*model.Form, error) {
	var f model.Form
	err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&f.GroupID,
		&f.Title,
		&f.State,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

type rowIterator interface {
	scannable
	Next() bool
	Err() error
}

// scanForms drains rows into a slice of forms.
func scanForms(rows rowIterator) ([]*model.Form, error) {
	var forms []*model.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return forms, nil
}
