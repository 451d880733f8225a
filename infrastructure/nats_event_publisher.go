package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dareledger/domain/events"
	"dareledger/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SourceService identifies this service in event envelopes
const SourceService = "dare-ledger"

// EventEnvelope is the wire format of every event published to NATS
type EventEnvelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"sourceService"`
	Payload       json.RawMessage `json:"payload"`
}

// messagePublisher is the part of NATSClient the event publisher needs
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher implements the EventPublisher interface using NATS.
// Events are first dispatched to the in-process bus, then published.
type NATSEventPublisher struct {
	client        messagePublisher
	subjectMapper *EventSubjectMapper
	localBus      *events.Bus
}

// NewNATSEventPublisher creates a new NATS event publisher; localBus may be nil
func NewNATSEventPublisher(client messagePublisher, subjectMapper *EventSubjectMapper, localBus *events.Bus) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		localBus:      localBus,
	}
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx := context.Background()

	if p.localBus != nil {
		p.localBus.Emit(ctx, event)
	}

	subject := p.subjectMapper.MapEventToSubject(event)

	envelopeData, err := NewEventEnvelope(event)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, subject, envelopeData); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	observability.GetMetrics().RecordNATSPublished(string(event.Type()))

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureDomainEventStream ensures the ledger event stream exists
func (p *NATSEventPublisher) EnsureDomainEventStream(client *NATSClient) error {
	return client.EnsureStream(DomainEventStream, "Dare ledger domain events", p.subjectMapper.GetAllSubjects())
}

// NewEventEnvelope serializes event inside an envelope with a fresh event ID
func NewEventEnvelope(event events.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: SourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}
