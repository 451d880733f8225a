package infrastructure

import (
	"fmt"

	"dareledger/domain/events"
)

// DomainEventStream is the JetStream stream holding ledger events
const DomainEventStream = "dare_ledger_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var subjectsByEventType = map[events.EventType]string{
	events.EventTypeChallengeCreated:     "dares.challenge.created",
	events.EventTypeChallengeStateChange: "dares.challenge.state_changed",
	events.EventTypeBetPlaced:            "dares.bet.placed",
	events.EventTypeProofSubmitted:       "dares.proof.submitted",
	events.EventTypePayoutCommitted:      "dares.payout.committed",
	events.EventTypePayoutReleased:       "dares.payout.released",
	events.EventTypePayoutUnknown:        "dares.payout.unknown",
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByEventType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("dares.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range subjectsByEventType {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"dares.>"}
}
