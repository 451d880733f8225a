package testhelpers

import (
	"context"
	"time"

	"dareledger/domain/entities"
	"dareledger/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockChallengeRepository is a mock implementation of ChallengeRepository
type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Create(ctx context.Context, challenge *entities.Challenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *MockChallengeRepository) GetByID(ctx context.Context, id int64) (*entities.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) GetForUpdate(ctx context.Context, id int64) (*entities.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) Update(ctx context.Context, challenge *entities.Challenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *MockChallengeRepository) GetDueForExpiry(ctx context.Context, now time.Time) ([]int64, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockChallengeRepository) List(ctx context.Context, status *entities.ChallengeStatus) ([]*entities.Challenge, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Challenge), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *entities.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByFundingTxRef(ctx context.Context, txRef string) (*entities.Bet, error) {
	args := m.Called(ctx, txRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.Bet, error) {
	args := m.Called(ctx, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByChallengeAndBettor(ctx context.Context, challengeID int64, bettorID string) ([]*entities.Bet, error) {
	args := m.Called(ctx, challengeID, bettorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Bet), args.Error(1)
}

func (m *MockBetRepository) Update(ctx context.Context, bet *entities.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

// MockProofRepository is a mock implementation of ProofRepository
type MockProofRepository struct {
	mock.Mock
}

func (m *MockProofRepository) Create(ctx context.Context, proof *entities.ProofRecord) error {
	args := m.Called(ctx, proof)
	return args.Error(0)
}

func (m *MockProofRepository) GetByID(ctx context.Context, id int64) (*entities.ProofRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProofRecord), args.Error(1)
}

func (m *MockProofRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.ProofRecord, error) {
	args := m.Called(ctx, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProofRecord), args.Error(1)
}

func (m *MockProofRepository) GetWinningProof(ctx context.Context, challengeID int64) (*entities.ProofRecord, error) {
	args := m.Called(ctx, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProofRecord), args.Error(1)
}

func (m *MockProofRepository) Update(ctx context.Context, proof *entities.ProofRecord) error {
	args := m.Called(ctx, proof)
	return args.Error(0)
}

// MockPayoutClaimRepository is a mock implementation of PayoutClaimRepository
type MockPayoutClaimRepository struct {
	mock.Mock
}

func (m *MockPayoutClaimRepository) Create(ctx context.Context, claim *entities.PayoutClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockPayoutClaimRepository) GetByID(ctx context.Context, id int64) (*entities.PayoutClaim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(int64) *entities.PayoutClaim); ok {
		return fn(id), args.Error(1)
	}
	return args.Get(0).(*entities.PayoutClaim), args.Error(1)
}

func (m *MockPayoutClaimRepository) GetActive(ctx context.Context, challengeID int64, participantID string, role entities.PayoutRole, betID *int64) (*entities.PayoutClaim, error) {
	args := m.Called(ctx, challengeID, participantID, role, betID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PayoutClaim), args.Error(1)
}

func (m *MockPayoutClaimRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.PayoutClaim, error) {
	args := m.Called(ctx, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PayoutClaim), args.Error(1)
}

func (m *MockPayoutClaimRepository) GetOutstanding(ctx context.Context, olderThan time.Time) ([]*entities.PayoutClaim, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PayoutClaim), args.Error(1)
}

func (m *MockPayoutClaimRepository) Update(ctx context.Context, claim *entities.PayoutClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockFundsCustodian is a mock implementation of FundsCustodian
type MockFundsCustodian struct {
	mock.Mock
}

func (m *MockFundsCustodian) ExecuteTransfer(ctx context.Context, req entities.TransferRequest) (*entities.TransferReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TransferReceipt), args.Error(1)
}

func (m *MockFundsCustodian) TransferStatus(ctx context.Context, idempotencyKey string) (*entities.TransferStatus, error) {
	args := m.Called(ctx, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TransferStatus), args.Error(1)
}

func (m *MockFundsCustodian) VerifyDeposit(ctx context.Context, txRef, sender string, amount int64) (*entities.Deposit, error) {
	args := m.Called(ctx, txRef, sender, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deposit), args.Error(1)
}

func (m *MockFundsCustodian) Balance(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFundsCustodian) TreasuryAddress() string {
	args := m.Called()
	return args.String(0)
}
