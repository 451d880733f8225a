package observability

import (
	"context"

	"dareledger/domain/events"
)

// SubscribeLedgerMetrics records ledger activity from committed domain events
func SubscribeLedgerMetrics(bus *events.Bus, mp *MetricsProvider) {
	bus.Subscribe(events.EventTypeBetPlaced, func(_ context.Context, e events.Event) {
		if placed, ok := e.(events.BetPlacedEvent); ok {
			mp.RecordBetPlaced(placed.Side, placed.Amount)
		}
	})

	bus.Subscribe(events.EventTypeChallengeStateChange, func(_ context.Context, e events.Event) {
		change, ok := e.(events.ChallengeStateChangeEvent)
		if ok && change.WinningSide != nil {
			mp.RecordChallengeResolved(change.NewStatus)
		}
	})

	bus.Subscribe(events.EventTypePayoutCommitted, func(_ context.Context, e events.Event) {
		if committed, ok := e.(events.PayoutCommittedEvent); ok {
			mp.RecordPayout(committed.Role, OutcomeCommitted, committed.Amount)
		}
	})

	bus.Subscribe(events.EventTypePayoutReleased, func(_ context.Context, e events.Event) {
		if released, ok := e.(events.PayoutReleasedEvent); ok {
			mp.RecordPayout(released.Role, OutcomeReleased, 0)
		}
	})

	bus.Subscribe(events.EventTypePayoutUnknown, func(_ context.Context, e events.Event) {
		if unknown, ok := e.(events.PayoutUnknownEvent); ok {
			mp.RecordPayout(unknown.Role, OutcomeUnknown, 0)
		}
	})
}
