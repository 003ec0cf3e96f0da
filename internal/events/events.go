// Package events mirrors form mutations onto a message bus for downstream
// consumers. Gateway fan-out does not depend on it.
package events

import (
	"context"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// SubjectPrefix prefixes every subject; SubjectAll matches all of them.
const (
	SubjectPrefix = "formflow."
	SubjectAll    = SubjectPrefix + ">"
)

// Subject returns the bus subject for an event type, e.g.
// "formflow.form.published".
func Subject(t model.EventType) string {
	return SubjectPrefix + string(t)
}

// Publisher emits events to the bus.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
	Close() error
}

// Subscriber receives events from the bus.
type Subscriber interface {
	// Subscribe delivers decoded events on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(subject string) (<-chan model.Event, func(), error)
	Close() error
}

// NoopPublisher is a Publisher that does nothing (used when NATS is not configured).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, ev model.Event) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
