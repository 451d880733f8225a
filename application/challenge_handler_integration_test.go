package application_test

import (
	"testing"
	"time"

	"dareledger/application"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"
	"dareledger/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeHandler_PlaceBetVerifiesDeposit(t *testing.T) {
	env := newLedgerEnv(t)
	creator := testhelpers.NewTestSigner(t)
	alice := testhelpers.NewTestSigner(t)
	bob := testhelpers.NewTestSigner(t)

	challenge := env.createChallenge(t, creator, 24*time.Hour)

	t.Run("missing funding reference", func(t *testing.T) {
		_, err := env.challenges.PlaceBet(env.ctx, interfaces.PlaceBetRequest{
			ChallengeID: challenge.ID,
			BettorID:    alice.Identity,
			Side:        entities.BetSideWillDo,
			Amount:      500,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("deposit never reached custody", func(t *testing.T) {
		txRef := "unknown-deposit"
		_, err := env.challenges.PlaceBet(env.ctx, interfaces.PlaceBetRequest{
			ChallengeID:  challenge.ID,
			BettorID:     alice.Identity,
			Side:         entities.BetSideWillDo,
			Amount:       500,
			FundingTxRef: &txRef,
		})
		assert.ErrorIs(t, err, domain.ErrDepositInvalid)
	})

	t.Run("deposit from someone else", func(t *testing.T) {
		txRef := "bobs-deposit"
		env.custodian.RecordDeposit(txRef, bob.Identity, 500)
		_, err := env.challenges.PlaceBet(env.ctx, interfaces.PlaceBetRequest{
			ChallengeID:  challenge.ID,
			BettorID:     alice.Identity,
			Side:         entities.BetSideWillDo,
			Amount:       500,
			FundingTxRef: &txRef,
		})
		assert.ErrorIs(t, err, domain.ErrDepositInvalid)
	})

	t.Run("reposting the same deposit returns the original bet", func(t *testing.T) {
		txRef := "alices-deposit"
		env.custodian.RecordDeposit(txRef, alice.Identity, 700)
		req := interfaces.PlaceBetRequest{
			ChallengeID:  challenge.ID,
			BettorID:     alice.Identity,
			Side:         entities.BetSideWillDo,
			Amount:       700,
			FundingTxRef: &txRef,
		}

		first, err := env.challenges.PlaceBet(env.ctx, req)
		require.NoError(t, err)
		second, err := env.challenges.PlaceBet(env.ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		detail, err := env.challenges.GetChallenge(env.ctx, challenge.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(700), detail.Challenge.TotalPool)
		assert.Len(t, detail.Bets, 1)
	})

	t.Run("deposit reused for another challenge", func(t *testing.T) {
		other := env.createChallenge(t, creator, 24*time.Hour)
		txRef := "alices-deposit"
		_, err := env.challenges.PlaceBet(env.ctx, interfaces.PlaceBetRequest{
			ChallengeID:  other.ID,
			BettorID:     alice.Identity,
			Side:         entities.BetSideWillDo,
			Amount:       700,
			FundingTxRef: &txRef,
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateDeposit)
	})

	t.Run("below the minimum bet", func(t *testing.T) {
		txRef := "small-deposit"
		env.custodian.RecordDeposit(txRef, bob.Identity, 50)
		_, err := env.challenges.PlaceBet(env.ctx, interfaces.PlaceBetRequest{
			ChallengeID:  challenge.ID,
			BettorID:     bob.Identity,
			Side:         entities.BetSideWontDo,
			Amount:       50,
			FundingTxRef: &txRef,
		})
		assert.ErrorIs(t, err, domain.ErrBetTooLow)
	})
}

func TestChallengeHandler_Lifecycle(t *testing.T) {
	env := newLedgerEnv(t)
	creator := testhelpers.NewTestSigner(t)
	alice := testhelpers.NewTestSigner(t)
	submitter := testhelpers.NewTestSigner(t)

	_, err := env.challenges.CreateChallenge(env.ctx, interfaces.CreateChallengeRequest{
		CreatorID: creator.Identity,
		Title:     "Past deadline",
		Deadline:  env.clock.Now().Add(-time.Minute),
		MinBet:    100,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	challenge := env.createChallenge(t, creator, time.Hour)
	env.placeBet(t, challenge.ID, alice, entities.BetSideWillDo, 1000)

	first, err := env.challenges.SubmitProof(env.ctx, challenge.ID, submitter.Identity, "ipfs://first")
	require.NoError(t, err)
	_, err = env.challenges.SubmitProof(env.ctx, challenge.ID, alice.Identity, "ipfs://second")
	require.NoError(t, err)

	detail, err := env.challenges.GetChallenge(env.ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ChallengeStatusProofPending, detail.Challenge.Status)
	assert.Len(t, detail.Proofs, 2)

	// Bets are only taken while OPEN
	txRef := "late-deposit"
	env.custodian.RecordDeposit(txRef, alice.Identity, 1000)
	_, err = env.challenges.PlaceBet(env.ctx, interfaces.PlaceBetRequest{
		ChallengeID:  challenge.ID,
		BettorID:     alice.Identity,
		Side:         entities.BetSideWillDo,
		Amount:       1000,
		FundingTxRef: &txRef,
	})
	assert.ErrorIs(t, err, domain.ErrWrongStatus)

	completed, err := env.challenges.AcceptProof(env.ctx, challenge.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ChallengeStatusCompleted, completed.Status)
	require.NotNil(t, completed.WinningSide)
	assert.Equal(t, entities.BetSideWillDo, *completed.WinningSide)

	_, err = env.challenges.AcceptProof(env.ctx, challenge.ID, first.ID)
	assert.ErrorIs(t, err, domain.ErrWrongStatus)

	_, err = env.challenges.SubmitProof(env.ctx, challenge.ID, submitter.Identity, "ipfs://third")
	assert.ErrorIs(t, err, domain.ErrWrongStatus)

	_, err = env.challenges.GetChallenge(env.ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChallengeHandler_ExpireDue(t *testing.T) {
	env := newLedgerEnv(t)
	creator := testhelpers.NewTestSigner(t)
	alice := testhelpers.NewTestSigner(t)
	bob := testhelpers.NewTestSigner(t)

	due := env.createChallenge(t, creator, time.Hour)
	env.placeBet(t, due.ID, alice, entities.BetSideWillDo, 1000)
	env.placeBet(t, due.ID, bob, entities.BetSideWontDo, 1000)
	_, err := env.challenges.SubmitProof(env.ctx, due.ID, alice.Identity, "ipfs://unaccepted")
	require.NoError(t, err)

	later := env.createChallenge(t, creator, 48*time.Hour)

	expired, err := env.challenges.ExpireDue(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	env.clock.Add(time.Hour)
	expired, err = env.challenges.ExpireDue(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	detail, err := env.challenges.GetChallenge(env.ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ChallengeStatusExpired, detail.Challenge.Status)
	require.NotNil(t, detail.Challenge.WinningSide)
	assert.Equal(t, entities.BetSideWontDo, *detail.Challenge.WinningSide)

	untouched, err := env.challenges.GetChallenge(env.ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ChallengeStatusOpen, untouched.Challenge.Status)

	// The WONT_DO side wins an expired challenge
	receipt, err := env.payouts.ClaimWinnings(env.ctx, env.signed(bob, interfaces.ActionClaimWinnings, due.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(960), receipt.Amount)

	_, err = env.payouts.ClaimCompleterReward(env.ctx, env.signed(alice, interfaces.ActionClaimCompleterReward, due.ID))
	assert.ErrorIs(t, err, domain.ErrNotTheCompleter)

	expired, err = env.challenges.ExpireDue(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}

func TestChallengeHandler_GetChallengeDetail(t *testing.T) {
	env := newLedgerEnv(t)
	creator := testhelpers.NewTestSigner(t)
	alice := testhelpers.NewTestSigner(t)

	challenge := env.createChallenge(t, creator, 24*time.Hour)
	bet := env.placeBet(t, challenge.ID, alice, entities.BetSideWillDo, 2500)

	var detail *application.ChallengeDetail
	detail, err := env.challenges.GetChallenge(env.ctx, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.ID, detail.Challenge.ID)
	assert.Equal(t, int64(2500), detail.Challenge.WillDoPool)
	require.Len(t, detail.Bets, 1)
	assert.Equal(t, bet.ID, detail.Bets[0].ID)
	assert.Empty(t, detail.Proofs)
	assert.Empty(t, detail.Claims)
}
