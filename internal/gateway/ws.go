package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// maxFrameBytes bounds a single client frame.
const maxFrameBytes = 64 << 10

// Authenticator resolves the caller behind a handshake request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

type callerKey struct{}

// Handler serves the websocket endpoint. Callers are authenticated before
// the upgrade; a rejected handshake never creates connection state.
type Handler struct {
	b     *Broadcaster
	authn Authenticator
	ws    websocket.Server
}

// NewHandler returns the websocket endpoint for b.
func NewHandler(b *Broadcaster, authn Authenticator) *Handler {
	h := &Handler{b: b, authn: authn}
	h.ws = websocket.Server{
		// Origin is not checked; identity comes from Authenticate.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serveConn,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, err := h.authn.Authenticate(r)
	if err != nil || strings.TrimSpace(callerID) == "" {
		slog.Warn("gateway: websocket unauthorized", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	r = r.WithContext(context.WithValue(r.Context(), callerKey{}, strings.TrimSpace(callerID)))
	h.ws.ServeHTTP(w, r)
}

func (h *Handler) serveConn(ws *websocket.Conn) {
	ws.MaxPayloadBytes = maxFrameBytes
	callerID, _ := ws.Request().Context().Value(callerKey{}).(string)

	conn, err := h.b.Connect(callerID)
	if err != nil {
		slog.Error("gateway: connect failed", "err", err)
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ws, conn)
	}()

	h.readLoop(ws, conn)

	h.b.Disconnect(conn.ID)
	<-writerDone
}

// writeLoop drains conn's queue until it is disconnected. Closing the socket
// on exit unblocks the reader.
func (h *Handler) writeLoop(ws *websocket.Conn, conn *Conn) {
	defer ws.Close()
	for {
		select {
		case <-conn.Done():
			return
		case f := <-conn.Outbound():
			if err := websocket.JSON.Send(ws, f); err != nil {
				slog.Debug("gateway: write failed", "conn", conn.ID, "err", err)
				return
			}
		}
	}
}

func (h *Handler) readLoop(ws *websocket.Conn, conn *Conn) {
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				// The rest of the frame is discarded by the next Receive.
				slog.Warn("gateway: oversized frame dropped", "conn", conn.ID, "limit", maxFrameBytes)
				continue
			}
			if !errors.Is(err, io.EOF) {
				slog.Debug("gateway: read failed", "conn", conn.ID, "err", err)
			}
			return
		}
		h.handleFrame(conn, data)
	}
}

// handleFrame applies one client frame. Malformed frames are logged and
// dropped; they never close the connection.
func (h *Handler) handleFrame(conn *Conn, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("gateway: malformed frame dropped", "conn", conn.ID, "err", err)
		return
	}

	switch f.Type {
	case FrameSubscribe, FrameUnsubscribe:
		var p GroupPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			slog.Warn("gateway: malformed payload dropped", "conn", conn.ID, "type", f.Type, "err", err)
			return
		}
		g, err := model.ParseResourceGroup(p.ResourceGroupID)
		if err != nil {
			slog.Warn("gateway: invalid resource group dropped", "conn", conn.ID, "type", f.Type, "err", err)
			return
		}
		if f.Type == FrameSubscribe {
			err = h.b.Subscribe(conn.ID, g)
		} else {
			err = h.b.Unsubscribe(conn.ID, g)
		}
		if err != nil {
			slog.Warn("gateway: subscription change failed", "conn", conn.ID, "type", f.Type, "err", err)
		}
	case FrameAck:
		var p AckPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil || p.EventID == "" {
			slog.Warn("gateway: malformed ack dropped", "conn", conn.ID, "err", err)
			return
		}
		h.b.Acknowledge(p.EventID)
	default:
		slog.Warn("gateway: unsupported frame dropped", "conn", conn.ID, "type", f.Type)
	}
}
