package application_test

import (
	"testing"
	"time"

	"dareledger/domain/entities"
	"dareledger/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationReporter_MissingFunds(t *testing.T) {
	env := newLedgerEnv(t)
	creator := testhelpers.NewTestSigner(t)
	alice := testhelpers.NewTestSigner(t)
	bob := testhelpers.NewTestSigner(t)

	challenge := env.createChallenge(t, creator, 24*time.Hour)
	env.placeBet(t, challenge.ID, alice, entities.BetSideWillDo, oneUnit)
	env.placeBet(t, challenge.ID, bob, entities.BetSideWontDo, 2*oneUnit)

	report, err := env.reporter.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.True(t, report.IsBalanced())

	// Funds leave custody with no ledger counterpart
	env.custodian.AdjustBalance(-250_000)

	report, err = env.reporter.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3*oneUnit, report.PlacedStakes)
	assert.Equal(t, 3*oneUnit, report.ExpectedHeld)
	assert.Equal(t, 3*oneUnit-250_000, report.CustodianBalance)
	assert.Equal(t, int64(-250_000), report.Delta)
	assert.False(t, report.IsBalanced())
	assert.Empty(t, report.OutstandingIntents)
	assert.Equal(t, int64(-250_000), env.recorder.delta.Load())
	assert.Equal(t, int64(2), env.recorder.calls.Load())
}
