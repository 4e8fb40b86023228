package events

import (
	"encoding/json"
	"fmt"
	"time"

	"rafflehub/domain/entities"

	"github.com/google/uuid"
)

// EventType is the frame type delivered to subscribed connections
type EventType string

const (
	EventTypeParticipantUpdate EventType = "participantUpdate"
	EventTypeRaffleUpdate      EventType = "raffleUpdate"
	EventTypeRaffleConcluded   EventType = "raffleConcluded"
	EventTypeNotification      EventType = "notification"
)

// AllEventTypes lists every event type the lifecycle manager emits
var AllEventTypes = []EventType{
	EventTypeParticipantUpdate,
	EventTypeRaffleUpdate,
	EventTypeRaffleConcluded,
	EventTypeNotification,
}

// Event is the base interface for all raffle events
type Event interface {
	Type() EventType
	// RaffleKey identifies the raffle whose subscribers receive the event
	RaffleKey() string
}

// ParticipantUpdateEvent is emitted after a participant registers
type ParticipantUpdateEvent struct {
	RaffleID         uuid.UUID `json:"raffleId"`
	ParticipantID    string    `json:"participantId"`
	Name             string    `json:"name"`
	Pubkey           string    `json:"pubkey"`
	TicketsSold      int       `json:"ticketsSold"`
	AvailableTickets int       `json:"availableTickets"`
	RegisteredAt     time.Time `json:"registeredAt"`
}

func (e ParticipantUpdateEvent) Type() EventType   { return EventTypeParticipantUpdate }
func (e ParticipantUpdateEvent) RaffleKey() string { return e.RaffleID.String() }

// RaffleUpdateEvent is emitted when sold counts or the end time change
type RaffleUpdateEvent struct {
	RaffleID         uuid.UUID  `json:"raffleId"`
	TicketsSold      int        `json:"ticketsSold"`
	AvailableTickets int        `json:"availableTickets"`
	EndTime          *time.Time `json:"endTime,omitempty"`
}

func (e RaffleUpdateEvent) Type() EventType   { return EventTypeRaffleUpdate }
func (e RaffleUpdateEvent) RaffleKey() string { return e.RaffleID.String() }

// RaffleConcludedEvent is emitted once a winner has been drawn
type RaffleConcludedEvent struct {
	RaffleID    uuid.UUID                  `json:"raffleId"`
	Winner      entities.Winner            `json:"winner"`
	Fulfillment entities.FulfillmentStatus `json:"fulfillment"`
}

func (e RaffleConcludedEvent) Type() EventType   { return EventTypeRaffleConcluded }
func (e RaffleConcludedEvent) RaffleKey() string { return e.RaffleID.String() }

// NotificationEvent carries an informational message for a raffle's subscribers
type NotificationEvent struct {
	RaffleID    uuid.UUID             `json:"raffleId"`
	Message     string                `json:"message"`
	Status      entities.RaffleStatus `json:"status,omitempty"`
	RefundCount int                   `json:"refundCount,omitempty"`
}

func (e NotificationEvent) Type() EventType   { return EventTypeNotification }
func (e NotificationEvent) RaffleKey() string { return e.RaffleID.String() }

// EncodeFrame renders an event as the flat JSON object sent to clients:
// the event's own fields plus a "type" discriminator
func EncodeFrame(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event.Type(), err)
	}

	var frame map[string]json.RawMessage
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("failed to flatten %s event: %w", event.Type(), err)
	}

	eventType, err := json.Marshal(event.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event type: %w", err)
	}
	frame["type"] = eventType

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", event.Type(), err)
	}
	return data, nil
}
