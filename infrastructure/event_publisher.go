package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"rafflehub/domain/events"
	"rafflehub/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// MessageBus publishes raw messages to a subject
type MessageBus interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventHandler handles an event in the publishing process
type EventHandler func(context.Context, events.Event) error

// DomainEventPublisher delivers committed events to in-process handlers and,
// when a bus is attached, to other instances
type DomainEventPublisher struct {
	bus           MessageBus
	subjectMapper *EventSubjectMapper
	instanceID    string
	metrics       *observability.MetricsProvider

	mu            sync.RWMutex
	localHandlers map[events.EventType][]EventHandler
}

// NewDomainEventPublisher creates a publisher. bus may be nil, in which case
// events stay in this process.
func NewDomainEventPublisher(bus MessageBus, instanceID string, metrics *observability.MetricsProvider) *DomainEventPublisher {
	return &DomainEventPublisher{
		bus:           bus,
		subjectMapper: NewEventSubjectMapper(),
		instanceID:    instanceID,
		metrics:       metrics,
		localHandlers: make(map[events.EventType][]EventHandler),
	}
}

// Publish invokes local handlers for the event, then relays it on the bus
func (p *DomainEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()
	eventType := event.Type()

	p.mu.RLock()
	handlers := p.localHandlers[eventType]
	p.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			// Local handler errors do not stop other handlers or the relay
			log.WithFields(log.Fields{
				"eventType": eventType,
				"raffleID":  event.RaffleKey(),
				"error":     err,
			}).Error("Local event handler failed")
		}
	}
	p.metrics.RecordEventPublished(string(eventType))

	if p.bus == nil {
		return nil
	}

	envelope, err := NewEventEnvelope(event, p.instanceID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := p.subjectMapper.MapEventToSubject(event)
	if err := p.bus.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	p.metrics.RecordNATSMessagePublished(string(eventType))

	log.WithFields(log.Fields{
		"eventType": eventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Relayed event to NATS")

	return nil
}

// RegisterLocalHandler registers a handler invoked in this process for
// every published event of the given type
func (p *DomainEventPublisher) RegisterLocalHandler(eventType events.EventType, handler EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.localHandlers[eventType] = append(p.localHandlers[eventType], handler)
	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(p.localHandlers[eventType]),
	}).Debug("Registered local event handler")
}
