package services

import (
	"context"
	"testing"
	"time"

	"dareledger/config"
	"dareledger/domain/entities"
	"dareledger/domain/events"
	"dareledger/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestChallengeID = int64(1)
	TestCreatorID   = "CreatorWa11et1111111111111111111111111111111"
	TestBettor1ID   = "Bettor1Wa11et111111111111111111111111111111"
	TestBettor2ID   = "Bettor2Wa11et111111111111111111111111111111"
	TestBettor3ID   = "Bettor3Wa11et111111111111111111111111111111"
	TestProverID    = "ProverWa11et1111111111111111111111111111111"
	TestMinBet      = int64(100)
	TestOneUnit     = int64(1_000_000_000)
)

// TestNow is the fixed instant tests run at
var TestNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	ChallengeRepo  *testhelpers.MockChallengeRepository
	BetRepo        *testhelpers.MockBetRepository
	ProofRepo      *testhelpers.MockProofRepository
	ClaimRepo      *testhelpers.MockPayoutClaimRepository
	EventPublisher *testhelpers.MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		ChallengeRepo:  &testhelpers.MockChallengeRepository{},
		BetRepo:        &testhelpers.MockBetRepository{},
		ProofRepo:      &testhelpers.MockProofRepository{},
		ClaimRepo:      &testhelpers.MockPayoutClaimRepository{},
		EventPublisher: &testhelpers.MockEventPublisher{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.ChallengeRepo.AssertExpectations(t)
	m.BetRepo.AssertExpectations(t)
	m.ProofRepo.AssertExpectations(t)
	m.ClaimRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// MockHelper provides common mock setup patterns
type MockHelper struct {
	mocks *TestMocks
	ctx   context.Context
}

// NewMockHelper creates a new mock helper
func NewMockHelper(mocks *TestMocks) *MockHelper {
	return &MockHelper{
		mocks: mocks,
		ctx:   context.Background(),
	}
}

// ExpectChallengeLock sets up the row lock to return challenge
func (h *MockHelper) ExpectChallengeLock(challenge *entities.Challenge) {
	h.mocks.ChallengeRepo.On("GetForUpdate", mock.Anything, challenge.ID).Return(challenge, nil)
}

// ExpectChallengeNotFound sets up the row lock to find nothing
func (h *MockHelper) ExpectChallengeNotFound(challengeID int64) {
	h.mocks.ChallengeRepo.On("GetForUpdate", mock.Anything, challengeID).Return(nil, nil)
}

// ExpectChallengeUpdate accepts any update of the challenge
func (h *MockHelper) ExpectChallengeUpdate(challengeID int64) {
	h.mocks.ChallengeRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *entities.Challenge) bool {
		return c.ID == challengeID
	})).Return(nil)
}

// ExpectBettorBets sets up the bets a bettor holds on a challenge
func (h *MockHelper) ExpectBettorBets(challengeID int64, bettorID string, bets ...*entities.Bet) {
	h.mocks.BetRepo.On("GetByChallengeAndBettor", mock.Anything, challengeID, bettorID).Return(bets, nil)
}

// ExpectNoActiveClaim sets up the claim lookup to find nothing for any bet
func (h *MockHelper) ExpectNoActiveClaim(challengeID int64, participantID string, role entities.PayoutRole) {
	h.mocks.ClaimRepo.On("GetActive", mock.Anything, challengeID, participantID, role, mock.Anything).Return(nil, nil)
}

// ExpectActiveClaim sets up the claim lookup to find claim
func (h *MockHelper) ExpectActiveClaim(claim *entities.PayoutClaim) {
	h.mocks.ClaimRepo.On("GetActive", mock.Anything, claim.ChallengeID, claim.ParticipantID, claim.Role, mock.Anything).Return(claim, nil)
}

// ExpectClaimCreate accepts a new claim and assigns it id
func (h *MockHelper) ExpectClaimCreate(id int64, role entities.PayoutRole, amount int64) {
	h.mocks.ClaimRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *entities.PayoutClaim) bool {
		return c.Role == role && c.Amount == amount && c.Status == entities.PayoutClaimStatusReserved
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.PayoutClaim).ID = id
	}).Return(nil)
}

// ExpectClaimLookup returns claim for GetByID
func (h *MockHelper) ExpectClaimLookup(claim *entities.PayoutClaim) {
	h.mocks.ClaimRepo.On("GetByID", mock.Anything, claim.ID).Return(claim, nil)
}

// ExpectClaimUpdate accepts an update of the claim
func (h *MockHelper) ExpectClaimUpdate(claimID int64) {
	h.mocks.ClaimRepo.On("Update", mock.Anything, mock.MatchedBy(func(c *entities.PayoutClaim) bool {
		return c.ID == claimID
	})).Return(nil)
}

// ExpectChallengeClaims sets up the claims recorded on a challenge
func (h *MockHelper) ExpectChallengeClaims(challengeID int64, claims ...*entities.PayoutClaim) {
	h.mocks.ClaimRepo.On("GetByChallenge", mock.Anything, challengeID).Return(claims, nil)
}

// ExpectEventPublish sets up event publisher mock expectations
func (h *MockHelper) ExpectEventPublish(eventType events.EventType) {
	h.mocks.EventPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})).Return(nil)
}

// ExpectAnyEventPublish accepts every event
func (h *MockHelper) ExpectAnyEventPublish() {
	h.mocks.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// SetupTestConfig configures the test environment
func SetupTestConfig(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	t.Cleanup(config.ResetConfig)
}

// NewOpenChallenge returns an open challenge with an hour left and empty pools
func NewOpenChallenge() *entities.Challenge {
	return &entities.Challenge{
		ID:            TestChallengeID,
		CreatorID:     TestCreatorID,
		Title:         "Swim across the lake",
		Deadline:      TestNow.Add(time.Hour),
		MinBet:        TestMinBet,
		Status:        entities.ChallengeStatusOpen,
		SchemaVersion: entities.CurrentSchemaVersion,
	}
}

// NewResolvedChallenge returns a challenge resolved with status, with the given pools
func NewResolvedChallenge(status entities.ChallengeStatus, willDo, wontDo int64) *entities.Challenge {
	challenge := NewOpenChallenge()
	challenge.WillDoPool = willDo
	challenge.WontDoPool = wontDo
	challenge.TotalPool = willDo + wontDo
	challenge.Status = status
	side := entities.WinningSideFor(status)
	challenge.WinningSide = &side
	resolvedAt := TestNow
	challenge.ResolvedAt = &resolvedAt
	return challenge
}

// NewPlacedBet returns a PLACED bet
func NewPlacedBet(id int64, bettorID string, side entities.BetSide, amount int64) *entities.Bet {
	return &entities.Bet{
		ID:          id,
		ChallengeID: TestChallengeID,
		BettorID:    bettorID,
		Side:        side,
		Amount:      amount,
		Status:      entities.BetStatusPlaced,
	}
}
