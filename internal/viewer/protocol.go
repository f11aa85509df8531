package viewer

import (
	"encoding/json"

	"github.com/lakehopper/mapclient/internal/notify"
)

type Message struct {
	Type     string          `json:"type"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      uint64          `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Server -> viewer
	TypeWelcome       = "welcome"
	TypeLayersChanged = "layers.changed"
	TypeNotification  = "notification"
	TypePresenceState = "presence.state"

	// Viewer -> server
	TypeSync         = "sync"
	TypePresenceView = "presence.view"
)

// LayersChanged tells viewers to refetch the map state.
func LayersChanged(seq uint64) *Message {
	return &Message{Type: TypeLayersChanged, Seq: seq}
}

// NotificationMessage forwards an operator notification.
func NotificationMessage(n notify.Notification) *Message {
	payload, _ := json.Marshal(n)
	return &Message{Type: TypeNotification, Payload: payload}
}
