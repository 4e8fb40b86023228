package infrastructure

import (
	"fmt"
	"strings"

	"rafflehub/domain/events"
)

const raffleSubjectRoot = "raffles"

// EventSubjectMapper maps raffle events to NATS subjects of the form
// raffles.<raffleID>.<eventType>
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return fmt.Sprintf("%s.%s.%s", raffleSubjectRoot, event.RaffleKey(), event.Type())
}

// ParseSubject splits a raffle subject into its raffle ID and event type
func (m *EventSubjectMapper) ParseSubject(subject string) (string, events.EventType, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != raffleSubjectRoot || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], events.EventType(parts[2]), true
}

// SubscriptionSubject is the wildcard subject matching every raffle event
func (m *EventSubjectMapper) SubscriptionSubject() string {
	return raffleSubjectRoot + ".*.*"
}

// IsKnownEventType reports whether the event type is one the service emits
func (m *EventSubjectMapper) IsKnownEventType(eventType events.EventType) bool {
	for _, known := range events.AllEventTypes {
		if known == eventType {
			return true
		}
	}
	return false
}
