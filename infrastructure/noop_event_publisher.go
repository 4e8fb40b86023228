package infrastructure

import (
	"rafflehub/domain/events"
)

// NoopEventPublisher drops every event.
// Used by the migrate command and tests that do not observe events.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
