package observability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dareledger/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Values from the last reconciliation, read by observable gauges
	lastDelta       atomic.Int64
	lastOutstanding atomic.Int64

	betsPlacedCounter        metric.Int64Counter
	stakeVolumeCounter       metric.Int64Counter
	challengesResolvedCount  metric.Int64Counter
	payoutsCounter           metric.Int64Counter
	payoutVolumeCounter      metric.Int64Counter
	intentsPendingGauge      metric.Int64ObservableGauge
	custodianCallsCounter    metric.Int64Counter
	custodianCallDuration    metric.Float64Histogram
	natsPublishedCounter     metric.Int64Counter
	reconciliationDeltaGauge metric.Int64ObservableGauge
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("dare-ledger")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// InitializeWithReader wires the provider to an explicit reader. Used by tests
// with sdkmetric.NewManualReader.
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mp.meter = mp.meterProvider.Meter("dare-ledger")
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.initialized = true
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.betsPlacedCounter, err = mp.meter.Int64Counter(
		BetsPlacedTotal,
		metric.WithDescription("Total number of bets credited to a pool"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets placed counter: %w", err)
	}

	mp.stakeVolumeCounter, err = mp.meter.Int64Counter(
		StakeVolumeTotal,
		metric.WithDescription("Total stake credited to pools, in minor units"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stake volume counter: %w", err)
	}

	mp.challengesResolvedCount, err = mp.meter.Int64Counter(
		ChallengesResolved,
		metric.WithDescription("Total number of challenges reaching a terminal status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create challenges resolved counter: %w", err)
	}

	mp.payoutsCounter, err = mp.meter.Int64Counter(
		PayoutsTotal,
		metric.WithDescription("Total number of payout intents by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payouts counter: %w", err)
	}

	mp.payoutVolumeCounter, err = mp.meter.Int64Counter(
		PayoutVolumeTotal,
		metric.WithDescription("Total committed payout volume, in minor units"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payout volume counter: %w", err)
	}

	mp.intentsPendingGauge, err = mp.meter.Int64ObservableGauge(
		PayoutIntentsPending,
		metric.WithDescription("Payout intents still awaiting a definite outcome at the last reconciliation"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(mp.lastOutstanding.Load())
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending intents gauge: %w", err)
	}

	mp.custodianCallsCounter, err = mp.meter.Int64Counter(
		CustodianCallsTotal,
		metric.WithDescription("Total number of custodian calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create custodian calls counter: %w", err)
	}

	mp.custodianCallDuration, err = mp.meter.Float64Histogram(
		CustodianCallDuration,
		metric.WithDescription("Duration of custodian calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create custodian call duration histogram: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.reconciliationDeltaGauge, err = mp.meter.Int64ObservableGauge(
		ReconciliationDelta,
		metric.WithDescription("Custodian balance minus ledger expectation at the last reconciliation"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(mp.lastDelta.Load())
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation delta gauge: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordBetPlaced records a stake entering a pool
func (mp *MetricsProvider) RecordBetPlaced(side string, amount int64) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(attribute.String(LabelSide, side))
	mp.betsPlacedCounter.Add(context.Background(), 1, attrs)
	mp.stakeVolumeCounter.Add(context.Background(), amount, attrs)
}

// RecordChallengeResolved records a terminal transition
func (mp *MetricsProvider) RecordChallengeResolved(status string) {
	if !mp.isEnabled() {
		return
	}
	mp.challengesResolvedCount.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelStatus, status)),
	)
}

// RecordPayout records the outcome of a payout intent
func (mp *MetricsProvider) RecordPayout(role, outcome string, amount int64) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelRole, role),
		attribute.String(LabelOutcome, outcome),
	)
	mp.payoutsCounter.Add(context.Background(), 1, attrs)
	if outcome == OutcomeCommitted {
		mp.payoutVolumeCounter.Add(context.Background(), amount,
			metric.WithAttributes(attribute.String(LabelRole, role)),
		)
	}
}

// RecordCustodianCall records one custodian round trip
func (mp *MetricsProvider) RecordCustodianCall(operation, outcome string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelOperation, operation),
		attribute.String(LabelOutcome, outcome),
	)
	mp.custodianCallsCounter.Add(context.Background(), 1, attrs)
	mp.custodianCallDuration.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureCustodianCall returns a function that records the call when invoked with its error
// Usage:
//
//	done := mp.MeasureCustodianCall(OperationExecuteTransfer)
//	receipt, err := custodian.ExecuteTransfer(ctx, req)
//	done(err)
func (mp *MetricsProvider) MeasureCustodianCall(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		mp.RecordCustodianCall(operation, outcome, time.Since(start))
	}
}

// RecordNATSPublished records an event published to NATS
func (mp *MetricsProvider) RecordNATSPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordReconciliation stores the figures exported by the reconciliation gauges
func (mp *MetricsProvider) RecordReconciliation(delta int64, outstandingIntents int) {
	if mp == nil {
		return
	}
	mp.lastDelta.Store(delta)
	mp.lastOutstanding.Store(int64(outstandingIntents))
}

// isEnabled checks if metrics are initialized with live instruments
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider; nil until initialized.
// All recording methods are safe on a nil provider.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
