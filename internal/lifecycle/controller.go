// Package lifecycle gates form state transitions.
//
// Every transition is a single conditional write against the store. When the
// write matches no row, one read by id decides why, checking existence, then
// ownership, then state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

// Request asks for one transition on one form on behalf of a caller.
type Request struct {
	FormID     string
	CallerID   string
	Transition model.Transition
}

// Outcome is the result of a successful transition. Form is the updated
// record, or the record as it was removed when Removed is set.
type Outcome struct {
	Transition model.Transition
	Form       *model.Form
	Removed    bool
}

// Deletion confirms a destroy.
type Deletion struct {
	Form *model.Form
}

// Controller applies transitions through a store's compare-and-swap
// primitives. It holds no locks and never retries.
type Controller struct {
	store store.Store
}

// New creates a Controller backed by s.
func New(s store.Store) *Controller {
	return &Controller{store: s}
}

// Publish moves a form from draft to published.
func (c *Controller) Publish(ctx context.Context, id, callerID string) (*model.Form, error) {
	return c.update(ctx, Request{FormID: id, CallerID: callerID, Transition: model.TransitionPublish})
}

// Archive moves a form from published to archived.
func (c *Controller) Archive(ctx context.Context, id, callerID string) (*model.Form, error) {
	return c.update(ctx, Request{FormID: id, CallerID: callerID, Transition: model.TransitionArchive})
}

// Restore moves a form from archived back to draft.
func (c *Controller) Restore(ctx context.Context, id, callerID string) (*model.Form, error) {
	return c.update(ctx, Request{FormID: id, CallerID: callerID, Transition: model.TransitionRestore})
}

// Destroy permanently removes a draft form.
func (c *Controller) Destroy(ctx context.Context, id, callerID string) (*Deletion, error) {
	out, err := c.Apply(ctx, Request{FormID: id, CallerID: callerID, Transition: model.TransitionDestroy})
	if err != nil {
		return nil, err
	}
	return &Deletion{Form: out.Form}, nil
}

func (c *Controller) update(ctx context.Context, req Request) (*model.Form, error) {
	out, err := c.Apply(ctx, req)
	if err != nil {
		return nil, err
	}
	return out.Form, nil
}

// Apply performs req.Transition with exactly one conditional write.
func (c *Controller) Apply(ctx context.Context, req Request) (*Outcome, error) {
	t := req.Transition
	if !t.IsValid() {
		return nil, fmt.Errorf("unknown transition %q", t)
	}
	guard := store.Guard{ID: req.FormID, OwnerID: req.CallerID, State: t.From()}

	var (
		form     *model.Form
		affected int64
		err      error
	)
	if t.Removes() {
		form, affected, err = c.store.CompareAndDelete(ctx, guard)
	} else {
		form, affected, err = c.store.CompareAndSwapState(ctx, guard, t.To())
	}
	if err != nil {
		return nil, fmt.Errorf("%s form %s: %w", t, req.FormID, err)
	}
	if affected == 0 {
		return nil, c.classify(ctx, req)
	}
	return &Outcome{Transition: t, Form: form, Removed: t.Removes()}, nil
}

// classify explains a conditional write that matched no row. The order of
// checks is fixed: a caller who does not own the form never learns its state.
func (c *Controller) classify(ctx context.Context, req Request) error {
	t := req.Transition
	current, err := c.store.GetForm(ctx, req.FormID)
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Transition: t, FormID: req.FormID}
	}
	if err != nil {
		return fmt.Errorf("%s form %s: %w", t, req.FormID, err)
	}
	if current.OwnerID != req.CallerID {
		return &Error{Kind: KindForbidden, Transition: t, FormID: req.FormID}
	}
	// A concurrent cycle can leave the form back in the required state by the
	// time it is read; the write still lost, so this stays InvalidState.
	return &Error{
		Kind:       KindInvalidState,
		Transition: t,
		FormID:     req.FormID,
		Current:    current.State,
		Required:   t.From(),
	}
}
