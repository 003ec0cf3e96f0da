package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/formflow/internal/events"
	"github.com/alfredjeanlab/formflow/internal/gateway"
	"github.com/alfredjeanlab/formflow/internal/idgen"
	"github.com/alfredjeanlab/formflow/internal/lifecycle"
	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

// FormsServer serves form CRUD and lifecycle transitions, and reports every
// successful mutation to the gateway and the event bus.
type FormsServer struct {
	store       store.Store
	lifecycle   *lifecycle.Controller
	broadcaster *gateway.Broadcaster
	publisher   events.Publisher
	now         func() time.Time
}

// NewFormsServer returns a FormsServer backed by the given store, gateway
// broadcaster and bus publisher.
func NewFormsServer(s store.Store, b *gateway.Broadcaster, p events.Publisher) *FormsServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	return &FormsServer{
		store:       s,
		lifecycle:   lifecycle.New(s),
		broadcaster: b,
		publisher:   p,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// recordAndPublish builds an event for a mutated form, broadcasts it to
// gateway subscribers and publishes it to the bus. Both are best-effort;
// failures are logged but do not fail the mutation, which has already
// committed, so the event is sent even if the caller has gone away.
func (s *FormsServer) recordAndPublish(ctx context.Context, typ model.EventType, form *model.Form) {
	ctx = context.WithoutCancel(ctx)
	id, err := idgen.EventID()
	if err != nil {
		slog.Warn("failed to generate event id", "type", typ, "form_id", form.ID, "error", err)
		return
	}
	payload, err := json.Marshal(form)
	if err != nil {
		slog.Warn("failed to marshal event", "type", typ, "form_id", form.ID, "error", err)
		return
	}
	ev := model.Event{
		ID:            id,
		ResourceGroup: form.ResourceGroup(),
		EntityID:      form.ID,
		Type:          typ,
		Payload:       payload,
		Timestamp:     s.now(),
	}

	if err := s.broadcaster.Broadcast(ctx, ev); err != nil {
		slog.Warn("failed to broadcast event", "type", typ, "form_id", form.ID, "error", err)
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish event", "type", typ, "form_id", form.ID, "error", err)
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

type createFormInput struct {
	GroupID string `json:"group_id"`
	Title   string `json:"title"`
}

// createForm stores a new draft form owned by callerID.
func (s *FormsServer) createForm(ctx context.Context, callerID string, in createFormInput) (*model.Form, error) {
	id, err := idgen.FormID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	now := s.now()
	form := &model.Form{
		ID:        id,
		OwnerID:   callerID,
		GroupID:   strings.TrimSpace(in.GroupID),
		Title:     strings.TrimSpace(in.Title),
		State:     model.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := model.ValidateForm(form); err != nil {
		return nil, err
	}
	if err := s.store.CreateForm(ctx, form); err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}

	s.recordAndPublish(ctx, model.EventFormCreated, form)
	return form, nil
}

// applyTransition runs one lifecycle transition and reports it.
func (s *FormsServer) applyTransition(ctx context.Context, t model.Transition, id, callerID string) (*lifecycle.Outcome, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	out, err := s.lifecycle.Apply(ctx, lifecycle.Request{FormID: id, CallerID: callerID, Transition: t})
	if err != nil {
		return nil, err
	}

	slog.Info("form transitioned",
		"form_id", id,
		"transition", t,
		"caller", callerID,
	)
	s.recordAndPublish(ctx, t.EventType(), out.Form)
	return out, nil
}
