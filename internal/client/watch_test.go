package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alfredjeanlab/formflow/internal/gateway"
	"github.com/alfredjeanlab/formflow/internal/model"
)

// headerAuth trusts the caller header.
type headerAuth struct{}

func (headerAuth) Authenticate(r *http.Request) (string, error) {
	if c := r.Header.Get(callerHeader); c != "" {
		return c, nil
	}
	return "", errors.New("no caller")
}

func newGatewayServer(t *testing.T) (*gateway.Broadcaster, string) {
	t.Helper()
	b := gateway.New(gateway.Config{})
	srv := httptest.NewServer(gateway.NewHandler(b, headerAuth{}))
	t.Cleanup(func() {
		b.Stop()
		srv.Close()
	})
	// The handler serves every path; Watch appends /v1/ws.
	return b, srv.URL
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatch_DeliversAndAcks(t *testing.T) {
	b, url := newGatewayServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan model.Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, url, Credentials{Caller: "alice"}, []string{"col-1"}, func(ev model.Event) error {
			got <- ev
			return nil
		})
	}()

	g := model.GroupFor("col-1")
	waitUntil(t, "subscription", func() bool { return b.SubscriberCount(g) == 1 })

	ev := model.Event{ID: "ev-1", ResourceGroup: g, EntityID: "fm-1", Type: model.EventFormPublished, Timestamp: time.Now().UTC()}
	if err := b.Broadcast(context.Background(), ev); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case recv := <-got:
		if recv.ID != "ev-1" || recv.Type != model.EventFormPublished {
			t.Fatalf("unexpected event: %+v", recv)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	waitUntil(t, "ack", func() bool { return !b.IsPending("ev-1") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	waitUntil(t, "disconnect", func() bool { return b.ConnectionCount() == 0 })
}

func TestWatch_HandlerErrorStopsWithoutAck(t *testing.T) {
	b, url := newGatewayServer(t)
	stopErr := errors.New("stop")

	done := make(chan error, 1)
	go func() {
		done <- Watch(context.Background(), url, Credentials{Caller: "alice"}, []string{"col-1"}, func(model.Event) error {
			return stopErr
		})
	}()

	g := model.GroupFor("col-1")
	waitUntil(t, "subscription", func() bool { return b.SubscriberCount(g) == 1 })
	ev := model.Event{ID: "ev-2", ResourceGroup: g, EntityID: "fm-1", Type: model.EventFormArchived, Timestamp: time.Now().UTC()}
	if err := b.Broadcast(context.Background(), ev); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, stopErr) {
			t.Fatalf("err = %v, want %v", err, stopErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	if !b.IsPending("ev-2") {
		t.Fatal("event acknowledged despite handler error")
	}
}

func TestWatch_Rejected(t *testing.T) {
	_, url := newGatewayServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := Watch(ctx, url, Credentials{}, []string{"col-1"}, func(model.Event) error { return nil })
	if err == nil {
		t.Fatal("expected dial error without credentials")
	}
}

func TestWatch_InvalidInput(t *testing.T) {
	handle := func(model.Event) error { return nil }
	if err := Watch(context.Background(), "http://localhost", Credentials{}, nil, handle); err == nil {
		t.Error("expected error without groups")
	}
	if err := Watch(context.Background(), "http://localhost", Credentials{}, []string{"a:b"}, handle); err == nil {
		t.Error("expected error for invalid group")
	}
	if err := Watch(context.Background(), "ftp://localhost", Credentials{}, []string{"col-1"}, handle); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestWebsocketURL(t *testing.T) {
	for in, want := range map[string]string{
		"http://localhost:8080":      "ws://localhost:8080/v1/ws",
		"https://forms.example.com/": "wss://forms.example.com/v1/ws",
		"ws://host/prefix":           "ws://host/prefix/v1/ws",
	} {
		got, err := websocketURL(in)
		if err != nil || got != want {
			t.Errorf("websocketURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
