package infrastructure

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"dareledger/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
}

func (r *recordingPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return nil
}

func TestNATSEventPublisher_PublishesEnvelope(t *testing.T) {
	client := &recordingPublisher{}
	bus := events.NewBus()

	var localCalls atomic.Int32
	bus.Subscribe(events.EventTypePayoutCommitted, func(ctx context.Context, e events.Event) {
		localCalls.Add(1)
	})

	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), bus)
	event := events.PayoutCommittedEvent{ClaimID: 7, ChallengeID: 2, ParticipantID: "alice", Role: "bettor_winnings", Amount: 480, ReceiptRef: "sig"}
	require.NoError(t, publisher.Publish(event))
	bus.Wait()

	require.Len(t, client.subjects, 1)
	assert.Equal(t, "dares.payout.committed", client.subjects[0])
	assert.Equal(t, int32(1), localCalls.Load())

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(client.payloads[0], &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "payout_committed", envelope.EventType)
	assert.Equal(t, SourceService, envelope.SourceService)

	var payload events.PayoutCommittedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)
}

func TestEventSubjectMapper_RoundTrip(t *testing.T) {
	mapper := NewEventSubjectMapper()

	for eventType, subject := range subjectsByEventType {
		assert.Equal(t, eventType, mapper.MapSubjectToEventType(subject))
	}
	assert.Equal(t, "dares.bet.placed", mapper.MapEventToSubject(events.BetPlacedEvent{}))
	assert.Equal(t, events.EventType("other.subject"), mapper.MapSubjectToEventType("other.subject"))
}
