package application

import (
	"context"
	"errors"
	"fmt"

	"dareledger/config"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"
	"dareledger/domain/services"

	"github.com/hashicorp/go-multierror"
	"github.com/raulk/clock"
	log "github.com/sirupsen/logrus"
)

// ChallengeDetail is a challenge together with everything attached to it
type ChallengeDetail struct {
	Challenge *entities.Challenge
	Bets      []*entities.Bet
	Proofs    []*entities.ProofRecord
	Claims    []*entities.PayoutClaim
}

// ChallengeHandler drives challenge lifecycle and bet placement
type ChallengeHandler struct {
	uowFactory UnitOfWorkFactory
	custodian  interfaces.FundsCustodian
	clock      clock.Clock
	calculator *services.PayoutCalculator
	verify     bool
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(uowFactory UnitOfWorkFactory, custodian interfaces.FundsCustodian, clk clock.Clock) *ChallengeHandler {
	cfg := config.Get()
	return &ChallengeHandler{
		uowFactory: uowFactory,
		custodian:  custodian,
		clock:      clk,
		calculator: services.NewPayoutCalculator(cfg.PayoutRules(), cfg.NativeUnitsPerMinorUnit),
		verify:     cfg.RequireDepositVerification,
	}
}

// CreateChallenge opens a new challenge
func (h *ChallengeHandler) CreateChallenge(ctx context.Context, req interfaces.CreateChallengeRequest) (*entities.Challenge, error) {
	var challenge *entities.Challenge
	err := withTransaction(ctx, h.uowFactory, h.clock, func(tx *txServices) error {
		var err error
		challenge, err = tx.settlement.CreateChallenge(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"challenge_id": challenge.ID,
		"creator":      challenge.CreatorID,
		"deadline":     challenge.Deadline,
		"min_bet":      challenge.MinBet,
	}).Info("Challenge created")

	return challenge, nil
}

// PlaceBet credits a stake after confirming its funding transfer reached custody
func (h *ChallengeHandler) PlaceBet(ctx context.Context, req interfaces.PlaceBetRequest) (*entities.Bet, error) {
	if h.verify {
		if err := h.verifyFunding(ctx, req); err != nil {
			return nil, err
		}
	}

	var bet *entities.Bet
	err := withTransaction(ctx, h.uowFactory, h.clock, func(tx *txServices) error {
		var err error
		bet, err = tx.ledger.PlaceBet(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"challenge_id": bet.ChallengeID,
		"bet_id":       bet.ID,
		"bettor":       bet.BettorID,
		"side":         bet.Side,
		"amount":       bet.Amount,
	}).Info("Bet placed")

	return bet, nil
}

func (h *ChallengeHandler) verifyFunding(ctx context.Context, req interfaces.PlaceBetRequest) error {
	if req.FundingTxRef == nil || *req.FundingTxRef == "" {
		return domain.NewValidationError("funding transaction reference is required")
	}
	if req.Amount <= 0 {
		return domain.NewValidationError("bet amount must be positive")
	}

	_, err := h.custodian.VerifyDeposit(ctx, *req.FundingTxRef, req.BettorID, h.calculator.ToNative(req.Amount))
	if errors.Is(err, interfaces.ErrDepositNotFound) {
		return domain.ErrDepositInvalid.WithMessage("deposit %s of %d from %s not found in custody", *req.FundingTxRef, req.Amount, req.BettorID).Wrap(err)
	}
	if err != nil {
		return domain.ErrCustodianUnhealthy.WithMessage("deposit verification failed").Wrap(err)
	}
	return nil
}

// SubmitProof records a completion proof for a challenge
func (h *ChallengeHandler) SubmitProof(ctx context.Context, challengeID int64, submitterID, mediaRef string) (*entities.ProofRecord, error) {
	var proof *entities.ProofRecord
	err := withTransaction(ctx, h.uowFactory, h.clock, func(tx *txServices) error {
		var err error
		proof, err = tx.settlement.SubmitProof(ctx, challengeID, submitterID, mediaRef)
		return err
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// AcceptProof records the arbitration decision and completes the challenge
func (h *ChallengeHandler) AcceptProof(ctx context.Context, challengeID, proofID int64) (*entities.Challenge, error) {
	var challenge *entities.Challenge
	err := withTransaction(ctx, h.uowFactory, h.clock, func(tx *txServices) error {
		var err error
		challenge, err = tx.settlement.AcceptProof(ctx, challengeID, proofID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"challenge_id": challengeID,
		"proof_id":     proofID,
		"total_pool":   challenge.TotalPool,
	}).Info("Proof accepted")

	return challenge, nil
}

// GetChallenge returns a consistent view of a challenge and its bets, proofs and claims
func (h *ChallengeHandler) GetChallenge(ctx context.Context, challengeID int64) (*ChallengeDetail, error) {
	detail := &ChallengeDetail{}
	err := withSnapshot(ctx, h.uowFactory, func(uow UnitOfWork) error {
		challenge, err := uow.ChallengeRepository().GetByID(ctx, challengeID)
		if err != nil {
			return fmt.Errorf("failed to get challenge: %w", err)
		}
		if challenge == nil {
			return domain.ErrNotFound.WithMessage("challenge %d not found", challengeID)
		}
		detail.Challenge = challenge

		if detail.Bets, err = uow.BetRepository().GetByChallenge(ctx, challengeID); err != nil {
			return fmt.Errorf("failed to get bets: %w", err)
		}
		if detail.Proofs, err = uow.ProofRepository().GetByChallenge(ctx, challengeID); err != nil {
			return fmt.Errorf("failed to get proofs: %w", err)
		}
		if detail.Claims, err = uow.PayoutClaimRepository().GetByChallenge(ctx, challengeID); err != nil {
			return fmt.Errorf("failed to get payout claims: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ExpireDue resolves every challenge whose deadline passed. Each challenge
// expires in its own transaction; one failure does not stop the sweep.
func (h *ChallengeHandler) ExpireDue(ctx context.Context) (int, error) {
	var due []int64
	err := withTransaction(ctx, h.uowFactory, h.clock, func(tx *txServices) error {
		var err error
		due, err = tx.settlement.ListDueForExpiry(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	expired := 0
	for _, id := range due {
		var transitioned bool
		err := withTransaction(ctx, h.uowFactory, h.clock, func(tx *txServices) error {
			var err error
			_, transitioned, err = tx.settlement.Expire(ctx, id)
			return err
		})
		if err != nil {
			// Retried on the next sweep once the cash-out settles
			if errors.Is(err, domain.ErrCashOutPending) {
				log.WithField("challenge_id", id).Warn("Expiry deferred, cash-out still in flight")
				continue
			}
			result = multierror.Append(result, fmt.Errorf("challenge %d: %w", id, err))
			continue
		}
		if transitioned {
			expired++
		}
	}

	return expired, result.ErrorOrNil()
}
