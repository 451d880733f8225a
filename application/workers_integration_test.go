package application_test

import (
	"context"
	"testing"
	"time"

	"dareledger/application"
	"dareledger/domain/entities"
	"dareledger/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers_ExpirySweepRunsOnSchedule(t *testing.T) {
	env := newLedgerEnv(t)
	creator := testhelpers.NewTestSigner(t)
	alice := testhelpers.NewTestSigner(t)

	challenge := env.createChallenge(t, creator, time.Hour)
	env.placeBet(t, challenge.ID, alice, entities.BetSideWillDo, 1000)
	env.clock.Add(2 * time.Hour)

	workers, err := application.NewWorkers(env.challenges, env.payouts, env.reporter, application.WorkerIntervals{
		ExpirySweep: 100 * time.Millisecond,
		Reconcile:   100 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, workers.Start(ctx))
	defer func() {
		assert.NoError(t, workers.Shutdown())
	}()

	require.Eventually(t, func() bool {
		detail, err := env.challenges.GetChallenge(env.ctx, challenge.ID)
		return err == nil && detail.Challenge.Status == entities.ChallengeStatusExpired
	}, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return env.recorder.calls.Load() > 0
	}, 10*time.Second, 50*time.Millisecond)
}
