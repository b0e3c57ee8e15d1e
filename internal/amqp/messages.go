package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

func (t EventType) IsValid() bool {
	return t == EventCreated || t == EventUpdated || t == EventDeleted
}

// TransactionEvent announces a committed change to one transaction.
// It carries only the ID; consumers load the current state themselves.
// Sequence grows with every publish from the same process and lets
// consumers drop events that arrive after a newer one.
type TransactionEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transactionId"`
	Sequence      int64     `json:"sequence"`
	Timestamp     time.Time `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid transaction event")

// NewTransactionEvent creates an event stamped with the current time.
func NewTransactionEvent(eventType EventType, transactionID string, sequence int64) *TransactionEvent {
	return &TransactionEvent{
		Type:          eventType,
		TransactionID: transactionID,
		Sequence:      sequence,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("%w: type %q", ErrInvalidEvent, msg.Type)
	}
	if msg.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction id", ErrInvalidEvent)
	}
	return &msg, nil
}
