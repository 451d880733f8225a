package observability

// Metric name prefixes
const (
	MetricPrefix = "dare_ledger"
)

// Metric names
const (
	// Ledger metrics
	BetsPlacedTotal      = MetricPrefix + ".bets.placed_total"
	StakeVolumeTotal     = MetricPrefix + ".bets.stake_volume_total"
	ChallengesResolved   = MetricPrefix + ".challenges.resolved_total"
	PayoutsTotal         = MetricPrefix + ".payouts.total"
	PayoutVolumeTotal    = MetricPrefix + ".payouts.volume_total"
	PayoutIntentsPending = MetricPrefix + ".payouts.intents_pending"

	// Custodian metrics
	CustodianCallsTotal   = MetricPrefix + ".custodian.calls_total"
	CustodianCallDuration = MetricPrefix + ".custodian.call_duration"

	// Reconciliation metrics
	ReconciliationDelta = MetricPrefix + ".reconciliation.delta"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelRole      = "role"
	LabelOutcome   = "outcome"
	LabelStatus    = "status"
	LabelSide      = "side"
	LabelOperation = "operation"
	LabelEventType = "event_type"
)

// Payout outcomes
const (
	OutcomeCommitted = "committed"
	OutcomeReleased  = "released"
	OutcomeUnknown   = "unknown"
)

// Custodian operations
const (
	OperationExecuteTransfer = "execute_transfer"
	OperationTransferStatus  = "transfer_status"
	OperationVerifyDeposit   = "verify_deposit"
	OperationBalance         = "balance"
)
