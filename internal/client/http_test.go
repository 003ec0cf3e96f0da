package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string
	query       string
	body        string
	contentType string
	auth        string
	caller      string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	h.caller = r.Header.Get(callerHeader)
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, creds Credentials) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", creds)
}

const formJSON = `{
	"id": "fm-abc",
	"owner_id": "alice",
	"group_id": "col-1",
	"title": "Intake",
	"state": "draft",
	"created_at": "2026-01-15T10:00:00Z",
	"updated_at": "2026-01-15T10:00:00Z"
}`

func TestHTTPClient_CreateForm(t *testing.T) {
	h := &testHandler{statusCode: http.StatusCreated, responseBody: formJSON}
	c := newTestClient(t, h, Credentials{Token: "tok"})

	form, err := c.CreateForm(context.Background(), &CreateFormRequest{GroupID: "col-1", Title: "Intake"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.method != "POST" || h.path != "/v1/forms" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content type = %q", h.contentType)
	}
	if !strings.Contains(h.body, `"group_id":"col-1"`) || !strings.Contains(h.body, `"title":"Intake"`) {
		t.Errorf("body = %s", h.body)
	}
	if h.auth != "Bearer tok" {
		t.Errorf("authorization = %q", h.auth)
	}
	if form.ID != "fm-abc" || form.State != model.StateDraft || form.OwnerID != "alice" {
		t.Errorf("unexpected form: %+v", form)
	}
}

func TestHTTPClient_CallerHeader(t *testing.T) {
	h := &testHandler{responseBody: formJSON}
	c := newTestClient(t, h, Credentials{Caller: "alice"})

	if _, err := c.GetForm(context.Background(), "fm-abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.caller != "alice" || h.auth != "" {
		t.Errorf("caller = %q, auth = %q", h.caller, h.auth)
	}
}

func TestHTTPClient_GetForm_PathEscape(t *testing.T) {
	h := &testHandler{responseBody: formJSON}
	c := newTestClient(t, h, Credentials{})

	if _, err := c.GetForm(context.Background(), "fm/odd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.rawPath != "/v1/forms/fm%2Fodd" {
		t.Errorf("raw path = %q", h.rawPath)
	}
}

func TestHTTPClient_ListForms(t *testing.T) {
	h := &testHandler{responseBody: `{"forms": [` + formJSON + `]}`}
	c := newTestClient(t, h, Credentials{})

	forms, err := c.ListForms(context.Background(), &ListFormsRequest{
		GroupID: "col-1",
		OwnerID: "alice",
		State:   []string{"draft", "archived"},
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forms) != 1 || forms[0].ID != "fm-abc" {
		t.Fatalf("unexpected forms: %+v", forms)
	}
	want := "group=col-1&limit=5&owner=alice&state=draft%2Carchived"
	if h.query != want {
		t.Errorf("query = %q, want %q", h.query, want)
	}
}

func TestHTTPClient_ListForms_NoFilters(t *testing.T) {
	h := &testHandler{responseBody: `{"forms": []}`}
	c := newTestClient(t, h, Credentials{})

	forms, err := c.ListForms(context.Background(), &ListFormsRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forms) != 0 || h.query != "" {
		t.Errorf("forms = %v, query = %q", forms, h.query)
	}
}

func TestHTTPClient_Transition(t *testing.T) {
	for _, tr := range []model.Transition{model.TransitionPublish, model.TransitionArchive, model.TransitionRestore} {
		t.Run(tr.String(), func(t *testing.T) {
			h := &testHandler{responseBody: formJSON}
			c := newTestClient(t, h, Credentials{})

			if _, err := c.Transition(context.Background(), "fm-abc", tr); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.method != "POST" || h.path != "/v1/forms/fm-abc/"+tr.String() {
				t.Errorf("request = %s %s", h.method, h.path)
			}
		})
	}

	h := &testHandler{}
	c := newTestClient(t, h, Credentials{})
	for _, tr := range []model.Transition{model.TransitionDestroy, "bogus"} {
		if _, err := c.Transition(context.Background(), "fm-abc", tr); err == nil {
			t.Errorf("%s: expected error", tr)
		}
	}
	if h.method != "" {
		t.Error("request sent for a rejected transition")
	}
}

func TestHTTPClient_DestroyForm(t *testing.T) {
	h := &testHandler{responseBody: `{"id":"fm-abc","deleted":true}`}
	c := newTestClient(t, h, Credentials{})

	if err := c.DestroyForm(context.Background(), "fm-abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.method != "DELETE" || h.path != "/v1/forms/fm-abc" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
}

func TestHTTPClient_SubscriberCount(t *testing.T) {
	h := &testHandler{responseBody: `{"resourceGroupId":"group:col-1","count":3}`}
	c := newTestClient(t, h, Credentials{})

	n, err := c.SubscriberCount(context.Background(), "col-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || h.path != "/v1/groups/col-1/subscribers" {
		t.Errorf("count = %d, path = %q", n, h.path)
	}
}

func TestHTTPClient_EventPending(t *testing.T) {
	h := &testHandler{responseBody: `{"eventId":"ev-1","pending":true}`}
	c := newTestClient(t, h, Credentials{})

	pending, err := c.EventPending(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pending || h.path != "/v1/events/ev-1/pending" {
		t.Errorf("pending = %v, path = %q", pending, h.path)
	}
}

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok","connections":2,"pending":7}`}
	c := newTestClient(t, h, Credentials{})

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "ok" || resp.Connections != 2 || resp.Pending != 7 {
		t.Errorf("unexpected health: %+v", resp)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"JSONError", http.StatusBadRequest, `{"error":"publish form fm-abc: form is published, must be draft"}`, "form is published, must be draft"},
		{"Forbidden", http.StatusForbidden, `{"error":"archive form fm-abc: caller is not the owner"}`, "caller is not the owner"},
		{"PlainBody", http.StatusBadGateway, `upstream down`, "upstream down"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{statusCode: tc.status, responseBody: tc.body}
			c := newTestClient(t, h, Credentials{})

			_, err := c.Transition(context.Background(), "fm-abc", model.TransitionPublish)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tc.status)
			}
			if !strings.Contains(apiErr.Message, tc.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", apiErr.Message, tc.wantMsg)
			}
		})
	}
}

func TestHTTPClient_DecodeError(t *testing.T) {
	h := &testHandler{responseBody: `not json`}
	c := newTestClient(t, h, Credentials{})

	if _, err := c.GetForm(context.Background(), "fm-abc"); err == nil || !strings.Contains(err.Error(), "decoding response") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
