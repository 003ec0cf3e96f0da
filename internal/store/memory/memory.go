// Package memory implements store.Store with a process-local map.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

// Store keeps forms in memory. A single mutex makes each conditional write
// atomic with respect to every other call.
type Store struct {
	mu    sync.Mutex
	forms map[string]model.Form
	now   func() time.Time
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		forms: make(map[string]model.Form),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateForm(ctx context.Context, form *model.Form) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[form.ID]; ok {
		return fmt.Errorf("create form %s: duplicate id", form.ID)
	}
	s.forms[form.ID] = *form
	return nil
}

func (s *Store) GetForm(ctx context.Context, id string) (*model.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (s *Store) ListForms(ctx context.Context, filter model.FormFilter) ([]*model.Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	var out []*model.Form
	for _, f := range s.forms {
		if filter.GroupID != "" && f.GroupID != filter.GroupID {
			continue
		}
		if filter.OwnerID != "" && f.OwnerID != filter.OwnerID {
			continue
		}
		if len(filter.State) > 0 && !containsState(filter.State, f.State) {
			continue
		}
		f := f
		out = append(out, &f)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CompareAndSwapState(ctx context.Context, g store.Guard, to model.State) (*model.Form, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[g.ID]
	if !ok || f.OwnerID != g.OwnerID || f.State != g.State {
		return nil, 0, nil
	}
	f.State = to
	f.UpdatedAt = s.now()
	s.forms[g.ID] = f
	return &f, 1, nil
}

func (s *Store) CompareAndDelete(ctx context.Context, g store.Guard) (*model.Form, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forms[g.ID]
	if !ok || f.OwnerID != g.OwnerID || f.State != g.State {
		return nil, 0, nil
	}
	delete(s.forms, g.ID)
	return &f, 1, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func containsState(states []model.State, st model.State) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}
