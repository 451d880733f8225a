package infrastructure

import (
	"dareledger/domain/events"
)

// NoopEventPublisher is an event publisher that does nothing.
// Used by the migrate and reconcile commands and by integration tests.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
