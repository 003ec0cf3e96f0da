package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/alfredjeanlab/formflow/internal/gateway"
	"github.com/alfredjeanlab/formflow/internal/model"
)

// EventHandler receives each event delivered to a watch. Returning an error
// stops the watch without acknowledging the event.
type EventHandler func(model.Event) error

// Watch opens a websocket to the gateway at baseURL, subscribes to each
// form collection in groups, and hands delivered events to handle,
// acknowledging each one after handle returns nil. It returns nil when ctx
// is cancelled.
func Watch(ctx context.Context, baseURL string, creds Credentials, groups []string, handle EventHandler) error {
	if len(groups) == 0 {
		return errors.New("watch: at least one group is required")
	}
	subs := make([]model.ResourceGroup, 0, len(groups))
	for _, id := range groups {
		g := model.GroupFor(id)
		if err := g.Validate(); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		subs = append(subs, g)
	}

	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return err
	}
	cfg, err := websocket.NewConfig(wsURL, baseURL)
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	cfg.Header = http.Header{}
	creds.setAuth(cfg.Header)

	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Unblock the read loop on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for _, g := range subs {
		if err := send(conn, gateway.FrameSubscribe, gateway.GroupPayload{ResourceGroupID: g.String()}); err != nil {
			return fmt.Errorf("subscribe %s: %w", g, err)
		}
	}

	for {
		var f gateway.Frame
		if err := websocket.JSON.Receive(conn, &f); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		switch f.Type {
		case gateway.FrameSubscriptionConfirmed, gateway.FrameSubscriptionRemoved:
			var p gateway.GroupPayload
			_ = json.Unmarshal(f.Payload, &p)
			slog.Debug("subscription changed", "type", f.Type, "group", p.ResourceGroupID)
		case gateway.FrameEvent:
			var ev model.Event
			if err := json.Unmarshal(f.Payload, &ev); err != nil {
				slog.Warn("dropping undecodable event", "error", err)
				continue
			}
			if err := handle(ev); err != nil {
				return err
			}
			if err := send(conn, gateway.FrameAck, gateway.AckPayload{EventID: ev.ID}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("ack %s: %w", ev.ID, err)
			}
		}
	}
}

func send(conn *websocket.Conn, typ string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return websocket.JSON.Send(conn, gateway.Frame{Type: typ, Payload: raw})
}

// websocketURL maps an http(s) base URL to the gateway endpoint.
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += "/v1/ws"
	return u.String(), nil
}
