package infrastructure

import (
	"encoding/json"
	"fmt"
	"time"

	"rafflehub/domain/events"

	"github.com/google/uuid"
)

// EventEnvelope wraps an encoded event frame for relay between instances
type EventEnvelope struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	InstanceID string          `json:"instanceId"`
	RaffleID   string          `json:"raffleId"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEventEnvelope encodes an event as a client frame and wraps it
func NewEventEnvelope(event events.Event, instanceID string) (*EventEnvelope, error) {
	frame, err := events.EncodeFrame(event)
	if err != nil {
		return nil, err
	}

	return &EventEnvelope{
		EventID:    uuid.New().String(),
		EventType:  string(event.Type()),
		InstanceID: instanceID,
		RaffleID:   event.RaffleKey(),
		Timestamp:  time.Now().UTC(),
		Payload:    frame,
	}, nil
}

// DecodeEventEnvelope parses an envelope received from the bus
func DecodeEventEnvelope(data []byte) (*EventEnvelope, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if envelope.RaffleID == "" || len(envelope.Payload) == 0 {
		return nil, fmt.Errorf("event envelope %s is missing raffle id or payload", envelope.EventID)
	}
	return &envelope, nil
}
