// Package client talks to the formflow HTTP API and websocket gateway.
package client

import (
	"context"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// FormsClient is the interface the CLI commands use to reach the server.
// It is implemented by HTTPClient.
type FormsClient interface {
	CreateForm(ctx context.Context, req *CreateFormRequest) (*model.Form, error)
	GetForm(ctx context.Context, id string) (*model.Form, error)
	ListForms(ctx context.Context, req *ListFormsRequest) ([]*model.Form, error)
	Transition(ctx context.Context, id string, t model.Transition) (*model.Form, error)
	DestroyForm(ctx context.Context, id string) error

	SubscriberCount(ctx context.Context, groupID string) (int, error)
	EventPending(ctx context.Context, eventID string) (bool, error)
	Health(ctx context.Context) (*HealthResponse, error)

	Close() error
}

// Credentials identify the caller. Token takes precedence over Caller.
type Credentials struct {
	Token  string // sent as "Authorization: Bearer <token>"
	Caller string // sent as X-Caller-Id when the server trusts a proxy header
}

// CreateFormRequest holds parameters for creating a form.
type CreateFormRequest struct {
	GroupID string `json:"group_id"`
	Title   string `json:"title"`
}

// ListFormsRequest holds parameters for listing forms.
type ListFormsRequest struct {
	GroupID string
	OwnerID string
	State   []string
	Limit   int
}

// HealthResponse is the body of GET /v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Pending     int    `json:"pending"`
}
