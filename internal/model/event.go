package model

import (
	"encoding/json"
	"time"
)

// EventType names the mutation an event describes.
type EventType string

const (
	EventFormCreated   EventType = "form.created"
	EventFormPublished EventType = "form.published"
	EventFormArchived  EventType = "form.archived"
	EventFormRestored  EventType = "form.restored"
	EventFormDeleted   EventType = "form.deleted"
)

// Event is a mutation notification fanned out to subscribed clients.
// It is never modified after creation.
type Event struct {
	ID            string          `json:"id"`
	ResourceGroup ResourceGroup   `json:"resourceGroupId"`
	EntityID      string          `json:"entityId"`
	Type          EventType       `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}
