package application_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"dareledger/application"
	"dareledger/config"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"
	"dareledger/domain/services"
	"dareledger/domain/testhelpers"
	"dareledger/infrastructure"
	"dareledger/repository/testutil"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"
)

// ledgerEnv wires the application layer to a real database and an in-memory custodian
type ledgerEnv struct {
	ctx        context.Context
	clock      *clock.Mock
	custodian  *infrastructure.MemoryCustodian
	authorizer interfaces.Authorizer
	uowFactory *infrastructure.UnitOfWorkFactory
	challenges *application.ChallengeHandler
	payouts    *application.PayoutExecutor
	reporter   *application.ReconciliationReporter
	recorder   *recordingRecorder

	txCounter atomic.Int64
}

type recordingRecorder struct {
	delta       atomic.Int64
	outstanding atomic.Int64
	calls       atomic.Int64
}

func (r *recordingRecorder) RecordReconciliation(delta int64, outstanding int) {
	r.delta.Store(delta)
	r.outstanding.Store(int64(outstanding))
	r.calls.Add(1)
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)

	cfg := config.Get()
	clk := clock.NewMock()
	// Postgres keeps microseconds; deadlines derived from the clock must round-trip exactly
	clk.Set(time.Now().UTC().Truncate(time.Microsecond))

	custodian := infrastructure.NewMemoryCustodian(cfg.TreasuryAddress, clk)
	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())

	authorizer, err := services.NewSignatureAuthorizer(clk, cfg.SignatureWindow, cfg.PublicKeyCacheSize)
	require.NoError(t, err)

	recorder := &recordingRecorder{}
	return &ledgerEnv{
		ctx:        context.Background(),
		clock:      clk,
		custodian:  custodian,
		authorizer: authorizer,
		uowFactory: uowFactory,
		challenges: application.NewChallengeHandler(uowFactory, custodian, clk),
		payouts:    application.NewPayoutExecutor(uowFactory, custodian, authorizer, clk, cfg.IntentResolveMinAge),
		reporter:   application.NewReconciliationReporter(uowFactory, custodian, clk, recorder),
		recorder:   recorder,
	}
}

func (e *ledgerEnv) createChallenge(t *testing.T, creator *testhelpers.TestSigner, deadline time.Duration) *entities.Challenge {
	t.Helper()
	challenge, err := e.challenges.CreateChallenge(e.ctx, interfaces.CreateChallengeRequest{
		CreatorID: creator.Identity,
		Title:     "Run a marathon in under four hours",
		Deadline:  e.clock.Now().Add(deadline),
		MinBet:    100,
	})
	require.NoError(t, err)
	return challenge
}

// placeBet deposits the stake into custody and credits it to the challenge
func (e *ledgerEnv) placeBet(t *testing.T, challengeID int64, bettor *testhelpers.TestSigner, side entities.BetSide, amount int64) *entities.Bet {
	t.Helper()
	txRef := fmt.Sprintf("deposit-%d", e.txCounter.Add(1))
	e.custodian.RecordDeposit(txRef, bettor.Identity, amount)

	bet, err := e.challenges.PlaceBet(e.ctx, interfaces.PlaceBetRequest{
		ChallengeID:  challengeID,
		BettorID:     bettor.Identity,
		Side:         side,
		Amount:       amount,
		FundingTxRef: &txRef,
	})
	require.NoError(t, err)
	return bet
}

// completeChallenge submits a proof from completer and accepts it
func (e *ledgerEnv) completeChallenge(t *testing.T, challengeID int64, completer *testhelpers.TestSigner) {
	t.Helper()
	proof, err := e.challenges.SubmitProof(e.ctx, challengeID, completer.Identity, "ipfs://proof")
	require.NoError(t, err)

	challenge, err := e.challenges.AcceptProof(e.ctx, challengeID, proof.ID)
	require.NoError(t, err)
	require.Equal(t, entities.ChallengeStatusCompleted, challenge.Status)
}

func (e *ledgerEnv) signed(signer *testhelpers.TestSigner, action interfaces.Action, challengeID int64) application.PayoutRequest {
	req := signer.Request(action, challengeID, e.clock.Now().UnixMilli())
	return application.PayoutRequest{
		ChallengeID: challengeID,
		Participant: req.Identity,
		Signature:   req.Signature,
		TimestampMs: req.TimestampMs,
	}
}

func (e *ledgerEnv) claims(t *testing.T, challengeID int64) []*entities.PayoutClaim {
	t.Helper()
	detail, err := e.challenges.GetChallenge(e.ctx, challengeID)
	require.NoError(t, err)
	return detail.Claims
}
