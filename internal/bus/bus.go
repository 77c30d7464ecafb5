// Package bus carries best-effort session lifecycle broadcasts between
// contexts (the service analog of a cross-tab BroadcastChannel). Two
// interchangeable backends exist: Redis pub/sub and a store-polling
// fallback. Delivery is fire-and-forget with no acknowledgement;
// consumers must be idempotent under duplicate or out-of-order
// messages.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is the wire envelope for one broadcast.
type Message struct {
	// ID disambiguates messages published within the same millisecond.
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	// TS is the publish time in Unix milliseconds.
	TS int64 `json:"ts"`
}

// Handler consumes one broadcast message.
type Handler func(msg Message)

// Bus is the abstract broadcast transport selected at startup.
type Bus interface {
	// Publish sends a message with the given type and payload.
	// Best-effort: errors mean the message was dropped.
	Publish(ctx context.Context, msgType string, payload any) error
	// Subscribe registers a handler for incoming messages and returns
	// an unsubscribe function.
	Subscribe(handler Handler) (func(), error)
	// Close releases transport resources.
	Close() error
}

// newMessage builds the envelope, marshaling payload to JSON.
func newMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal broadcast payload: %w", err)
	}
	return Message{
		ID:      uuid.NewString(),
		Type:    msgType,
		Payload: raw,
		TS:      time.Now().UnixMilli(),
	}, nil
}
