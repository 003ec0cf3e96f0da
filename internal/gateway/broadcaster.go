// Package gateway fans form events out to subscribed websocket clients.
//
// A Broadcaster tracks live connections, the resource groups each one has
// joined, and a table of events that have been broadcast but not yet
// acknowledged. Every connection drains its own buffered queue, so a slow
// client loses frames instead of delaying anyone else.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/formflow/internal/idgen"
	"github.com/alfredjeanlab/formflow/internal/model"
)

const (
	// DefaultRetention is how long an unacknowledged event stays pending.
	DefaultRetention = 5 * time.Minute

	// DefaultOutboundBuffer is the per-connection queue length.
	DefaultOutboundBuffer = 64
)

// ErrUnknownConnection is returned for operations on a connection id that
// is not connected.
var ErrUnknownConnection = errors.New("unknown connection")

// Config configures a Broadcaster. Zero fields take defaults.
type Config struct {
	State          StateStore
	Retention      time.Duration
	OutboundBuffer int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Conn is one live client connection.
type Conn struct {
	ID       string
	CallerID string

	out       chan Frame
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// Outbound returns the queue of frames waiting to be written to the client.
func (c *Conn) Outbound() <-chan Frame { return c.out }

// Done is closed when the connection is disconnected.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Dropped returns how many frames were discarded because the queue was full.
func (c *Conn) Dropped() int64 { return c.dropped.Load() }

// enqueue offers f without blocking. It reports false if the frame was
// dropped.
func (c *Conn) enqueue(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- f:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Broadcaster manages connections, subscriptions and pending events.
type Broadcaster struct {
	state     StateStore
	retention time.Duration
	buffer    int
	log       *slog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	conns map[string]*Conn

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates a Broadcaster.
func New(cfg Config) *Broadcaster {
	b := &Broadcaster{
		state:     cfg.State,
		retention: cfg.Retention,
		buffer:    cfg.OutboundBuffer,
		log:       cfg.Logger,
		now:       cfg.Now,
		conns:     make(map[string]*Conn),
	}
	if b.state == nil {
		b.state = NewMemoryState()
	}
	if b.retention <= 0 {
		b.retention = DefaultRetention
	}
	if b.buffer <= 0 {
		b.buffer = DefaultOutboundBuffer
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Connect registers a new connection for an identified caller. The
// connection starts with no subscriptions.
func (b *Broadcaster) Connect(callerID string) (*Conn, error) {
	if callerID == "" {
		return nil, fmt.Errorf("connect: caller id is required")
	}
	id, err := idgen.ConnectionID()
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	c := &Conn{
		ID:       id,
		CallerID: callerID,
		out:      make(chan Frame, b.buffer),
		done:     make(chan struct{}),
	}
	b.mu.Lock()
	b.conns[c.ID] = c
	b.mu.Unlock()
	b.state.AddConnection(c.ID)

	b.log.Debug("gateway: connected", "conn", c.ID, "caller", callerID)
	return c, nil
}

// Disconnect discards the connection and its subscriptions. Unknown ids are
// ignored.
func (b *Broadcaster) Disconnect(connID string) {
	b.mu.Lock()
	c, ok := b.conns[connID]
	delete(b.conns, connID)
	b.mu.Unlock()
	if !ok {
		return
	}
	b.state.RemoveConnection(connID)
	c.close()

	b.log.Debug("gateway: disconnected", "conn", connID, "dropped", c.Dropped())
}

func (b *Broadcaster) conn(connID string) (*Conn, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.conns[connID]
	return c, ok
}

// Subscribe joins connID to g and queues a confirmation. Subscribing twice
// is the same as subscribing once; both are confirmed.
func (b *Broadcaster) Subscribe(connID string, g model.ResourceGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c, ok := b.conn(connID)
	if !ok || !b.state.AddSubscription(connID, g) {
		return fmt.Errorf("subscribe %s: %w", connID, ErrUnknownConnection)
	}
	if !c.enqueue(groupFrame(FrameSubscriptionConfirmed, g)) {
		b.log.Warn("gateway: confirmation dropped", "conn", connID, "group", g.String())
	}
	return nil
}

// Unsubscribe removes g from connID's subscriptions and queues a
// confirmation. Removing a group that was never joined is not an error.
func (b *Broadcaster) Unsubscribe(connID string, g model.ResourceGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c, ok := b.conn(connID)
	if !ok || !b.state.RemoveSubscription(connID, g) {
		return fmt.Errorf("unsubscribe %s: %w", connID, ErrUnknownConnection)
	}
	if !c.enqueue(groupFrame(FrameSubscriptionRemoved, g)) {
		b.log.Warn("gateway: confirmation dropped", "conn", connID, "group", g.String())
	}
	return nil
}

// Broadcast sweeps expired pending events, records ev as pending and queues
// it on every connection subscribed to ev.ResourceGroup. An event whose id
// is still pending is not sent again. Broadcasting to a group with no
// subscribers succeeds. ctx is not consulted; the mutation being reported
// has already committed.
func (b *Broadcaster) Broadcast(_ context.Context, ev model.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("broadcast: event id is required")
	}
	if err := ev.ResourceGroup.Validate(); err != nil {
		return fmt.Errorf("broadcast %s: %w", ev.ID, err)
	}
	now := b.now()
	b.Sweep(now)

	if !b.state.PutPending(ev, now) {
		b.log.Debug("gateway: duplicate event suppressed", "event", ev.ID)
		return nil
	}

	frame, err := eventFrame(ev)
	if err != nil {
		return fmt.Errorf("broadcast %s: encode: %w", ev.ID, err)
	}

	delivered := 0
	for _, id := range b.state.Subscribers(ev.ResourceGroup) {
		c, ok := b.conn(id)
		if !ok {
			continue
		}
		if c.enqueue(frame) {
			delivered++
			continue
		}
		b.log.Warn("gateway: outbound queue full, event dropped",
			"conn", id, "event", ev.ID, "group", ev.ResourceGroup.String())
	}

	b.log.Debug("gateway: broadcast",
		"event", ev.ID,
		"type", ev.Type,
		"group", ev.ResourceGroup.String(),
		"delivered", delivered)
	return nil
}

// Acknowledge removes eventID from the pending table. Unknown ids are
// ignored.
func (b *Broadcaster) Acknowledge(eventID string) {
	if eventID == "" {
		return
	}
	b.state.DeletePending(eventID)
}

// SubscriberCount returns the number of live connections subscribed to g.
func (b *Broadcaster) SubscriberCount(g model.ResourceGroup) int {
	return len(b.state.Subscribers(g))
}

// IsPending reports whether eventID has been broadcast and neither
// acknowledged nor swept.
func (b *Broadcaster) IsPending(eventID string) bool {
	_, ok := b.state.GetPending(eventID)
	return ok
}

// PendingCount returns the number of pending events.
func (b *Broadcaster) PendingCount() int {
	return b.state.PendingCount()
}

// ConnectionCount returns the number of live connections.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// Sweep removes pending events inserted more than the retention window
// before now.
func (b *Broadcaster) Sweep(now time.Time) int {
	removed := b.state.SweepPending(now.Add(-b.retention))
	if removed > 0 {
		b.log.Debug("gateway: swept pending events", "removed", removed)
	}
	return removed
}

// StartSweeper also sweeps on a timer, so a quiet gateway still drops
// expired pending events. Call Stop to shut it down.
func (b *Broadcaster) StartSweeper(interval time.Duration) {
	if interval <= 0 || b.sweepStop != nil {
		return
	}
	b.sweepStop = make(chan struct{})
	b.sweepDone = make(chan struct{})

	go b.sweepLoop(interval)
	b.log.Info("gateway: sweeper started", "interval", interval, "retention", b.retention)
}

// Stop shuts down the sweeper and disconnects every connection.
func (b *Broadcaster) Stop() {
	if b.sweepStop != nil {
		close(b.sweepStop)
		<-b.sweepDone
		b.sweepStop = nil
		b.sweepDone = nil
	}

	b.mu.RLock()
	ids := make([]string, 0, len(b.conns))
	for id := range b.conns {
		ids = append(ids, id)
	}
	b.mu.RUnlock()
	for _, id := range ids {
		b.Disconnect(id)
	}
}

func (b *Broadcaster) sweepLoop(interval time.Duration) {
	defer close(b.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.sweepStop:
			return
		case <-ticker.C:
			b.Sweep(b.now())
		}
	}
}
