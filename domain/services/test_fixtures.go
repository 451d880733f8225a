package services

import (
	"context"
	"testing"

	"dareledger/config"
	"dareledger/domain/interfaces"

	"github.com/raulk/clock"
)

// LedgerTestFixture provides a complete test environment for ledger and settlement tests
type LedgerTestFixture struct {
	T          *testing.T
	Ctx        context.Context
	Clock      *clock.Mock
	Ledger     interfaces.LedgerService
	Settlement interfaces.SettlementService
	Mocks      *TestMocks
	Helper     *MockHelper
}

// NewLedgerTestFixture creates a fixture with the clock set to TestNow
func NewLedgerTestFixture(t *testing.T) *LedgerTestFixture {
	SetupTestConfig(t)
	return newLedgerTestFixture(t)
}

// NewLedgerTestFixtureWithConfig creates a fixture running under cfg
func NewLedgerTestFixtureWithConfig(t *testing.T, cfg *config.Config) *LedgerTestFixture {
	config.SetTestConfig(cfg)
	t.Cleanup(config.ResetConfig)
	return newLedgerTestFixture(t)
}

func newLedgerTestFixture(t *testing.T) *LedgerTestFixture {
	clk := clock.NewMock()
	clk.Set(TestNow)

	f := &LedgerTestFixture{
		T:     t,
		Ctx:   context.Background(),
		Clock: clk,
	}
	f.Reset()
	return f
}

// Reset recreates mocks and services for reuse in sub-tests
func (f *LedgerTestFixture) Reset() {
	f.Mocks = NewTestMocks()
	f.Helper = NewMockHelper(f.Mocks)

	f.Ledger = NewLedgerService(
		f.Mocks.ChallengeRepo,
		f.Mocks.BetRepo,
		f.Mocks.ProofRepo,
		f.Mocks.ClaimRepo,
		f.Mocks.EventPublisher,
		f.Clock,
	)
	f.Settlement = NewSettlementService(
		f.Mocks.ChallengeRepo,
		f.Mocks.ProofRepo,
		f.Ledger,
		f.Mocks.EventPublisher,
		f.Clock,
	)
}

// AssertAllMocks verifies all mock expectations were met
func (f *LedgerTestFixture) AssertAllMocks() {
	f.Mocks.AssertAllExpectations(f.T)
}
