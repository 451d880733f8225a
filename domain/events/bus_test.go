package events

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DispatchesByType(t *testing.T) {
	bus := NewBus()

	var committed, placed atomic.Int32
	bus.Subscribe(EventTypePayoutCommitted, func(ctx context.Context, e Event) {
		committed.Add(1)
	})
	bus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, e Event) {
		placed.Add(1)
	})

	require.NoError(t, bus.Publish(PayoutCommittedEvent{ClaimID: 1}))
	require.NoError(t, bus.Publish(PayoutCommittedEvent{ClaimID: 2}))
	bus.Wait()

	assert.Equal(t, int32(2), committed.Load())
	assert.Equal(t, int32(0), placed.Load())
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()

	var called atomic.Bool
	bus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, e Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeBetPlaced, func(ctx context.Context, e Event) {
		called.Store(true)
	})

	bus.Emit(context.Background(), BetPlacedEvent{BetID: 1})
	bus.Wait()

	assert.True(t, called.Load())
}
