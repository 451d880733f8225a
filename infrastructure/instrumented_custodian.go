package infrastructure

import (
	"context"

	"dareledger/domain/entities"
	"dareledger/domain/interfaces"
	"dareledger/infrastructure/observability"
)

// instrumentedCustodian records call counts and latency for every custodian operation
type instrumentedCustodian struct {
	inner   interfaces.FundsCustodian
	metrics *observability.MetricsProvider
}

// NewInstrumentedCustodian wraps a custodian with metrics; a nil provider records nothing
func NewInstrumentedCustodian(inner interfaces.FundsCustodian, metrics *observability.MetricsProvider) interfaces.FundsCustodian {
	return &instrumentedCustodian{inner: inner, metrics: metrics}
}

func (c *instrumentedCustodian) ExecuteTransfer(ctx context.Context, req entities.TransferRequest) (*entities.TransferReceipt, error) {
	done := c.metrics.MeasureCustodianCall(observability.OperationExecuteTransfer)
	receipt, err := c.inner.ExecuteTransfer(ctx, req)
	done(err)
	return receipt, err
}

func (c *instrumentedCustodian) TransferStatus(ctx context.Context, idempotencyKey string) (*entities.TransferStatus, error) {
	done := c.metrics.MeasureCustodianCall(observability.OperationTransferStatus)
	status, err := c.inner.TransferStatus(ctx, idempotencyKey)
	done(err)
	return status, err
}

func (c *instrumentedCustodian) VerifyDeposit(ctx context.Context, txRef, sender string, amount int64) (*entities.Deposit, error) {
	done := c.metrics.MeasureCustodianCall(observability.OperationVerifyDeposit)
	deposit, err := c.inner.VerifyDeposit(ctx, txRef, sender, amount)
	done(err)
	return deposit, err
}

func (c *instrumentedCustodian) Balance(ctx context.Context) (int64, error) {
	done := c.metrics.MeasureCustodianCall(observability.OperationBalance)
	balance, err := c.inner.Balance(ctx)
	done(err)
	return balance, err
}

func (c *instrumentedCustodian) TreasuryAddress() string {
	return c.inner.TreasuryAddress()
}
