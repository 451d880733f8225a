package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/google/uuid"
	"github.com/raulk/clock"
)

// MemoryCustodian keeps custody in process memory. It is the development
// custodian and the fake used by executor tests.
type MemoryCustodian struct {
	mu        sync.Mutex
	clock     clock.Clock
	treasury  string
	balance   int64
	deposits  map[string]*entities.Deposit
	transfers map[string]*entities.TransferReceipt
	failed    map[string]bool

	// executeHook, when set, runs before a transfer executes. Returning
	// ErrTransferRejected refuses the transfer; any other error is raised
	// after the transfer executed, simulating a lost reply.
	executeHook func(req entities.TransferRequest) error
}

// NewMemoryCustodian creates an empty in-memory custodian
func NewMemoryCustodian(treasury string, clk clock.Clock) *MemoryCustodian {
	return &MemoryCustodian{
		clock:     clk,
		treasury:  treasury,
		deposits:  make(map[string]*entities.Deposit),
		transfers: make(map[string]*entities.TransferReceipt),
		failed:    make(map[string]bool),
	}
}

// RecordDeposit simulates an inbound transfer into custody
func (m *MemoryCustodian) RecordDeposit(txRef, sender string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deposits[txRef] = &entities.Deposit{
		TxRef:      txRef,
		Sender:     sender,
		Amount:     amount,
		ReceivedAt: m.clock.Now(),
	}
	m.balance += amount
}

// SetExecuteHook installs a hook run on every ExecuteTransfer call
func (m *MemoryCustodian) SetExecuteHook(hook func(req entities.TransferRequest) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executeHook = hook
}

// Transfers returns the number of executed transfers
func (m *MemoryCustodian) Transfers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transfers)
}

// AdjustBalance moves the balance without a ledger counterpart (test drift)
func (m *MemoryCustodian) AdjustBalance(delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance += delta
}

func (m *MemoryCustodian) ExecuteTransfer(ctx context.Context, req entities.TransferRequest) (*entities.TransferReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	// Repeated keys execute at most once
	if receipt, ok := m.transfers[req.IdempotencyKey]; ok {
		m.mu.Unlock()
		return receipt, nil
	}
	hook := m.executeHook
	m.mu.Unlock()

	// The hook runs unlocked so a slow transfer does not block status checks
	var hookErr error
	if hook != nil {
		hookErr = hook(req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if receipt, ok := m.transfers[req.IdempotencyKey]; ok {
		return receipt, nil
	}
	if hookErr != nil && errors.Is(hookErr, interfaces.ErrTransferRejected) {
		m.failed[req.IdempotencyKey] = true
		return nil, hookErr
	}

	if req.Amount <= 0 {
		m.failed[req.IdempotencyKey] = true
		return nil, fmt.Errorf("%w: non-positive amount %d", interfaces.ErrTransferRejected, req.Amount)
	}
	if req.Amount > m.balance {
		m.failed[req.IdempotencyKey] = true
		return nil, fmt.Errorf("%w: insufficient custody balance", interfaces.ErrTransferRejected)
	}

	m.balance -= req.Amount
	receipt := &entities.TransferReceipt{
		Reference:      uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		Recipient:      req.Recipient,
		Amount:         req.Amount,
		ExecutedAt:     m.clock.Now(),
	}
	m.transfers[req.IdempotencyKey] = receipt
	delete(m.failed, req.IdempotencyKey)

	if hookErr != nil {
		return nil, hookErr
	}
	return receipt, nil
}

func (m *MemoryCustodian) TransferStatus(ctx context.Context, idempotencyKey string) (*entities.TransferStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if receipt, ok := m.transfers[idempotencyKey]; ok {
		return &entities.TransferStatus{State: entities.TransferStateCompleted, Receipt: receipt}, nil
	}
	if m.failed[idempotencyKey] {
		return &entities.TransferStatus{State: entities.TransferStateFailed}, nil
	}
	return &entities.TransferStatus{State: entities.TransferStateNotFound}, nil
}

func (m *MemoryCustodian) VerifyDeposit(ctx context.Context, txRef, sender string, amount int64) (*entities.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deposit, ok := m.deposits[txRef]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrDepositNotFound, txRef)
	}
	if deposit.Sender != sender || deposit.Amount != amount {
		return nil, fmt.Errorf("%w: %s does not match sender %s and amount %d", interfaces.ErrDepositNotFound, txRef, sender, amount)
	}
	return deposit, nil
}

func (m *MemoryCustodian) Balance(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *MemoryCustodian) TreasuryAddress() string {
	return m.treasury
}

var _ interfaces.FundsCustodian = (*MemoryCustodian)(nil)
