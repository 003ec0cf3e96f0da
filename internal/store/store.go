package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// ErrNotFound is returned by GetForm when no form has the given id.
var ErrNotFound = errors.New("form not found")

// Guard is the predicate a conditional write must match: the row with this
// id, owned by OwnerID, currently in State.
type Guard struct {
	ID      string
	OwnerID string
	State   model.State
}

// Store defines the persistence interface for forms.
//
// Form state only changes through CompareAndSwapState and CompareAndDelete.
// Each is a single atomic conditional statement: under concurrent calls with
// the same guard at most one reports a non-zero affected count.
type Store interface {
	CreateForm(ctx context.Context, form *model.Form) error
	GetForm(ctx context.Context, id string) (*model.Form, error)
	ListForms(ctx context.Context, filter model.FormFilter) ([]*model.Form, error)

	// CompareAndSwapState sets the state of the row matching g to `to` and
	// returns the updated row with an affected count of 1, or (nil, 0, nil)
	// when no row matched.
	CompareAndSwapState(ctx context.Context, g Guard, to model.State) (*model.Form, int64, error)

	// CompareAndDelete removes the row matching g and returns the removed row
	// with an affected count of 1, or (nil, 0, nil) when no row matched.
	CompareAndDelete(ctx context.Context, g Guard) (*model.Form, int64, error)

	// Lifecycle
	Close() error
}
