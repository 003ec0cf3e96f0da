package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// callerHeader mirrors the header the server's proxy authenticator reads.
const callerHeader = "X-Caller-Id"

// HTTPClient implements FormsClient using the formflow HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080").
func NewHTTPClient(baseURL string, creds Credentials) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) CreateForm(ctx context.Context, req *CreateFormRequest) (*model.Form, error) {
	var form model.Form
	if err := c.doJSON(ctx, http.MethodPost, "/v1/forms", req, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *HTTPClient) GetForm(ctx context.Context, id string) (*model.Form, error) {
	var form model.Form
	if err := c.doJSON(ctx, http.MethodGet, "/v1/forms/"+url.PathEscape(id), nil, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *HTTPClient) ListForms(ctx context.Context, req *ListFormsRequest) ([]*model.Form, error) {
	q := url.Values{}
	if req.GroupID != "" {
		q.Set("group", req.GroupID)
	}
	if req.OwnerID != "" {
		q.Set("owner", req.OwnerID)
	}
	if len(req.State) > 0 {
		q.Set("state", strings.Join(req.State, ","))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	path := "/v1/forms"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Forms []*model.Form `json:"forms"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Forms, nil
}

// Transition applies publish, archive or restore. Use DestroyForm for destroy.
func (c *HTTPClient) Transition(ctx context.Context, id string, t model.Transition) (*model.Form, error) {
	if t.Removes() || !t.IsValid() {
		return nil, fmt.Errorf("transition %q is not a state change", t)
	}
	var form model.Form
	path := "/v1/forms/" + url.PathEscape(id) + "/" + t.String()
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *HTTPClient) DestroyForm(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/forms/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) SubscriberCount(ctx context.Context, groupID string) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/groups/"+url.PathEscape(groupID)+"/subscribers", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *HTTPClient) EventPending(ctx context.Context, eventID string) (bool, error) {
	var resp struct {
		Pending bool `json:"pending"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/events/"+url.PathEscape(eventID)+"/pending", nil, &resp); err != nil {
		return false, err
	}
	return resp.Pending, nil
}

func (c *HTTPClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// setAuth applies the caller credentials to an outgoing request.
func (c Credentials) setAuth(h http.Header) {
	switch {
	case c.Token != "":
		h.Set("Authorization", "Bearer "+c.Token)
	case c.Caller != "":
		h.Set(callerHeader, c.Caller)
	}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.creds.setAuth(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
