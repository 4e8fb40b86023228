package infrastructure

import (
	"fmt"

	"rafflehub/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// FrameBroadcaster delivers an already encoded frame to a raffle's subscribers
type FrameBroadcaster interface {
	BroadcastRaw(raffleID string, frame []byte)
}

// MessageSubscriber subscribes a handler to a subject
type MessageSubscriber interface {
	Subscribe(subject string, handler func(subject string, data []byte) error) error
}

// NATSEventRelay re-broadcasts events published by other instances to the
// local fan-out. Messages from this instance are skipped since they were
// already delivered by the local handler.
type NATSEventRelay struct {
	subscriber    MessageSubscriber
	broadcaster   FrameBroadcaster
	subjectMapper *EventSubjectMapper
	instanceID    string
	metrics       *observability.MetricsProvider
}

// NewNATSEventRelay creates a new relay
func NewNATSEventRelay(subscriber MessageSubscriber, broadcaster FrameBroadcaster, instanceID string, metrics *observability.MetricsProvider) *NATSEventRelay {
	return &NATSEventRelay{
		subscriber:    subscriber,
		broadcaster:   broadcaster,
		subjectMapper: NewEventSubjectMapper(),
		instanceID:    instanceID,
		metrics:       metrics,
	}
}

// Start subscribes to every raffle subject
func (r *NATSEventRelay) Start() error {
	subject := r.subjectMapper.SubscriptionSubject()
	if err := r.subscriber.Subscribe(subject, r.handleMessage); err != nil {
		return fmt.Errorf("failed to start event relay: %w", err)
	}
	log.WithFields(log.Fields{
		"subject":    subject,
		"instanceID": r.instanceID,
	}).Info("Event relay started")
	return nil
}

func (r *NATSEventRelay) handleMessage(subject string, data []byte) error {
	raffleID, eventType, ok := r.subjectMapper.ParseSubject(subject)
	if !ok {
		return fmt.Errorf("unexpected subject %q", subject)
	}
	if !r.subjectMapper.IsKnownEventType(eventType) {
		log.WithField("subject", subject).Debug("Ignoring unknown event type")
		return nil
	}

	envelope, err := DecodeEventEnvelope(data)
	if err != nil {
		return err
	}
	if envelope.InstanceID == r.instanceID {
		return nil
	}
	if envelope.RaffleID != raffleID {
		return fmt.Errorf("envelope raffle %s does not match subject %s", envelope.RaffleID, subject)
	}

	r.metrics.RecordNATSMessageReceived(string(eventType))
	r.broadcaster.BroadcastRaw(raffleID, envelope.Payload)

	log.WithFields(log.Fields{
		"eventType":  eventType,
		"eventId":    envelope.EventID,
		"raffleID":   raffleID,
		"fromOrigin": envelope.InstanceID,
	}).Debug("Relayed remote event to local subscribers")
	return nil
}
