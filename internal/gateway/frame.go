package gateway

import (
	"encoding/json"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// Frame types exchanged on a gateway connection.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameAck         = "ack"

	FrameSubscriptionConfirmed = "subscription.confirmed"
	FrameSubscriptionRemoved   = "subscription.removed"
	FrameEvent                 = "event"
)

// Frame is the JSON envelope for every message in either direction.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GroupPayload is the payload of subscribe, unsubscribe and their
// confirmations.
type GroupPayload struct {
	ResourceGroupID string `json:"resourceGroupId"`
}

// AckPayload is the payload of an ack frame.
type AckPayload struct {
	EventID string `json:"eventId"`
}

func groupFrame(typ string, g model.ResourceGroup) Frame {
	return Frame{Type: typ, Payload: mustJSON(GroupPayload{ResourceGroupID: g.String()})}
}

func eventFrame(ev model.Event) (Frame, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameEvent, Payload: payload}, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
