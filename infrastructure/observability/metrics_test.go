package observability

import (
	"context"
	"testing"

	"dareledger/config"
	"dareledger/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	cfg := config.NewTestConfig()
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))

	assert.NotPanics(t, func() {
		mp.RecordBetPlaced("WILL_DO", 10)
		mp.RecordPayout("creator_fee", OutcomeCommitted, 5)
		mp.RecordReconciliation(0, 0)
	})

	var nilProvider *MetricsProvider
	assert.NotPanics(t, func() {
		nilProvider.RecordBetPlaced("WILL_DO", 10)
		nilProvider.RecordReconciliation(3, 1)
	})
}

func TestSubscribeLedgerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(config.NewTestConfig())
	require.NoError(t, mp.InitializeWithReader(reader))

	bus := events.NewBus()
	SubscribeLedgerMetrics(bus, mp)

	winning := "WILL_DO"
	bus.Emit(context.Background(), events.BetPlacedEvent{BetID: 1, Side: "WILL_DO", Amount: 700})
	bus.Emit(context.Background(), events.BetPlacedEvent{BetID: 2, Side: "WONT_DO", Amount: 300})
	bus.Emit(context.Background(), events.ChallengeStateChangeEvent{ChallengeID: 1, OldStatus: "OPEN", NewStatus: "PROOF_PENDING"})
	bus.Emit(context.Background(), events.ChallengeStateChangeEvent{ChallengeID: 1, OldStatus: "PROOF_PENDING", NewStatus: "COMPLETED", WinningSide: &winning})
	bus.Emit(context.Background(), events.PayoutCommittedEvent{ClaimID: 1, Role: "completer_reward", Amount: 500})
	bus.Emit(context.Background(), events.PayoutReleasedEvent{ClaimID: 2, Role: "creator_fee"})
	bus.Wait()

	mp.RecordReconciliation(-25, 2)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, metrics[BetsPlacedTotal]))
	assert.Equal(t, int64(1000), sumValue(t, metrics[StakeVolumeTotal]))
	assert.Equal(t, int64(1), sumValue(t, metrics[ChallengesResolved]))
	assert.Equal(t, int64(2), sumValue(t, metrics[PayoutsTotal]))
	assert.Equal(t, int64(500), sumValue(t, metrics[PayoutVolumeTotal]))

	gauge, ok := metrics[ReconciliationDelta].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(-25), gauge.DataPoints[0].Value)

	pending, ok := metrics[PayoutIntentsPending].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(2), pending.DataPoints[0].Value)
}
