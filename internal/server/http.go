package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/formflow/internal/gateway"
	"github.com/alfredjeanlab/formflow/internal/lifecycle"
	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// Every route except GET /v1/health requires a caller resolved by authn;
// the websocket endpoint authenticates before upgrading.
func (s *FormsServer) NewHTTPHandler(authn Authenticator) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/forms", s.handleCreateForm)
	api.HandleFunc("GET /v1/forms", s.handleListForms)
	api.HandleFunc("GET /v1/forms/{id}", s.handleGetForm)
	api.HandleFunc("POST /v1/forms/{id}/publish", s.handleTransition(model.TransitionPublish))
	api.HandleFunc("POST /v1/forms/{id}/archive", s.handleTransition(model.TransitionArchive))
	api.HandleFunc("POST /v1/forms/{id}/restore", s.handleTransition(model.TransitionRestore))
	api.HandleFunc("DELETE /v1/forms/{id}", s.handleDestroyForm)
	api.HandleFunc("GET /v1/groups/{group}/subscribers", s.handleSubscriberCount)
	api.HandleFunc("GET /v1/events/{id}/pending", s.handleEventPending)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.Handle("/v1/ws", gateway.NewHandler(s.broadcaster, authn))
	mux.Handle("/", AuthMiddleware(authn, api))
	return mux
}

// handleHealth handles GET /v1/health.
func (s *FormsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.broadcaster.ConnectionCount(),
		"pending":     s.broadcaster.PendingCount(),
	})
}

// handleCreateForm handles POST /v1/forms.
func (s *FormsServer) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	var in createFormInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	form, err := s.createForm(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, form)
}

// handleListForms handles GET /v1/forms.
func (s *FormsServer) handleListForms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.FormFilter{
		GroupID: q.Get("group"),
		OwnerID: q.Get("owner"),
	}
	if v := q.Get("state"); v != "" {
		for _, st := range strings.Split(v, ",") {
			state := model.State(strings.TrimSpace(st))
			if !state.IsValid() {
				writeError(w, http.StatusBadRequest, "invalid state "+strconv.Quote(st))
				return
			}
			filter.State = append(filter.State, state)
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit "+strconv.Quote(v))
			return
		}
		filter.Limit = n
	}

	forms, err := s.store.ListForms(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list forms", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list forms")
		return
	}

	// Ensure forms is never null in JSON output.
	if forms == nil {
		forms = []*model.Form{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": forms})
}

// handleGetForm handles GET /v1/forms/{id}.
func (s *FormsServer) handleGetForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.store.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// handleTransition handles POST /v1/forms/{id}/publish|archive|restore.
func (s *FormsServer) handleTransition(t model.Transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.applyTransition(r.Context(), t, r.PathValue("id"), callerFrom(r.Context()))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out.Form)
	}
}

// handleDestroyForm handles DELETE /v1/forms/{id}.
func (s *FormsServer) handleDestroyForm(w http.ResponseWriter, r *http.Request) {
	out, err := s.applyTransition(r.Context(), model.TransitionDestroy, r.PathValue("id"), callerFrom(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": out.Form.ID, "deleted": true})
}

// handleSubscriberCount handles GET /v1/groups/{group}/subscribers.
func (s *FormsServer) handleSubscriberCount(w http.ResponseWriter, r *http.Request) {
	g := model.GroupFor(r.PathValue("group"))
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resourceGroupId": g.String(),
		"count":           s.broadcaster.SubscriberCount(g),
	})
}

// handleEventPending handles GET /v1/events/{id}/pending.
func (s *FormsServer) handleEventPending(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{
		"eventId": id,
		"pending": s.broadcaster.IsPending(id),
	})
}

// writeServiceError maps service and lifecycle errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		ve *model.ValidationError
		ie inputError
	)
	switch {
	case lifecycle.IsNotFound(err), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case lifecycle.IsForbidden(err):
		writeError(w, http.StatusForbidden, err.Error())
	case lifecycle.IsInvalidState(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ve), errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
