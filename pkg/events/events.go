// Package events defines the typed events pushed to per-user private
// destinations. Events are transport-only: durability always comes from
// the message and membership rows, never from the event stream.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ridgeline-homes/portalchat/pkg/model"
)

// Kind names an event type on the wire.
type Kind string

const (
	KindNewMessage   Kind = "new-message"
	KindMessagesRead Kind = "messages-read"
	KindUserTyping   Kind = "user-typing"

	// Socket-local kinds. These answer a single session's own send over
	// its websocket and are never published to a destination.
	KindSendAck   Kind = "send-ack"
	KindSendError Kind = "send-error"
)

// Envelope is the wire frame published to a destination.
type Envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewMessage announces a freshly persisted message.
type NewMessage struct {
	ChannelID string        `json:"channelId"`
	Message   model.Message `json:"message"`
}

// MessagesRead tells a sender that ReadBy has read the channel up to ReadAt.
type MessagesRead struct {
	ChannelID string    `json:"channelId"`
	ReadBy    string    `json:"readBy"`
	ReadAt    time.Time `json:"readAt"`
}

// UserTyping is the ephemeral typing indicator signal.
type UserTyping struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	IsTyping  bool   `json:"isTyping"`
}

// SendAck returns the persisted message for a send a session just made.
// The session inserts it optimistically; the broadcast copy dedups.
type SendAck struct {
	Message model.Message `json:"message"`
}

// SendError reports a failed send so the UI can offer a retry.
type SendError struct {
	ChannelID string `json:"channelId"`
	Reason    string `json:"reason"`
}

// Marshal wraps a payload in an envelope and encodes it.
func Marshal(kind Kind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Event: kind, Data: data})
}

// Decode parses a raw frame back into an envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("events: decode frame: %w", err)
	}
	return env, nil
}
