package api

import (
	"context"

	"dareledger/application"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

type MockChallengeService struct {
	mock.Mock
}

func (m *MockChallengeService) CreateChallenge(ctx context.Context, req interfaces.CreateChallengeRequest) (*entities.Challenge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeService) PlaceBet(ctx context.Context, req interfaces.PlaceBetRequest) (*entities.Bet, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Bet), args.Error(1)
}

func (m *MockChallengeService) SubmitProof(ctx context.Context, challengeID int64, submitterID, mediaRef string) (*entities.ProofRecord, error) {
	args := m.Called(ctx, challengeID, submitterID, mediaRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProofRecord), args.Error(1)
}

func (m *MockChallengeService) AcceptProof(ctx context.Context, challengeID, proofID int64) (*entities.Challenge, error) {
	args := m.Called(ctx, challengeID, proofID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Challenge), args.Error(1)
}

func (m *MockChallengeService) GetChallenge(ctx context.Context, challengeID int64) (*application.ChallengeDetail, error) {
	args := m.Called(ctx, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.ChallengeDetail), args.Error(1)
}

type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) receipt(args mock.Arguments) (*entities.PayoutReceipt, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PayoutReceipt), args.Error(1)
}

func (m *MockPayoutService) CashOut(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error) {
	return m.receipt(m.Called(ctx, req))
}

func (m *MockPayoutService) ClaimWinnings(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error) {
	return m.receipt(m.Called(ctx, req))
}

func (m *MockPayoutService) ClaimCreatorFee(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error) {
	return m.receipt(m.Called(ctx, req))
}

func (m *MockPayoutService) ClaimCompleterReward(ctx context.Context, req application.PayoutRequest) (*entities.PayoutReceipt, error) {
	return m.receipt(m.Called(ctx, req))
}

func (m *MockPayoutService) ResolveIntent(ctx context.Context, claimID int64) (*entities.PayoutClaim, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PayoutClaim), args.Error(1)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context) (*entities.ReconciliationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReconciliationReport), args.Error(1)
}
