package services

import (
	"context"
	"fmt"
	"strings"

	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/events"
	"dareledger/domain/interfaces"

	"github.com/raulk/clock"
	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	clock          clock.Clock
	challengeRepo  interfaces.ChallengeRepository
	proofRepo      interfaces.ProofRepository
	ledger         interfaces.LedgerService
	eventPublisher interfaces.EventPublisher
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	challengeRepo interfaces.ChallengeRepository,
	proofRepo interfaces.ProofRepository,
	ledger interfaces.LedgerService,
	eventPublisher interfaces.EventPublisher,
	clk clock.Clock,
) interfaces.SettlementService {
	return &settlementService{
		clock:          clk,
		challengeRepo:  challengeRepo,
		proofRepo:      proofRepo,
		ledger:         ledger,
		eventPublisher: eventPublisher,
	}
}

// CreateChallenge opens a new challenge for bets
func (s *settlementService) CreateChallenge(ctx context.Context, req interfaces.CreateChallengeRequest) (*entities.Challenge, error) {
	title := strings.TrimSpace(req.Title)
	if req.CreatorID == "" {
		return nil, domain.NewValidationError("creator is required")
	}
	if title == "" {
		return nil, domain.NewValidationError("title cannot be empty")
	}
	if req.MinBet <= 0 {
		return nil, domain.NewValidationError("minimum bet must be positive")
	}
	if !req.Deadline.After(s.clock.Now()) {
		return nil, domain.NewValidationError("deadline must be in the future")
	}

	challenge := &entities.Challenge{
		CreatorID:     req.CreatorID,
		Title:         title,
		Deadline:      req.Deadline.UTC(),
		MinBet:        req.MinBet,
		Status:        entities.ChallengeStatusOpen,
		SchemaVersion: entities.CurrentSchemaVersion,
	}
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	publishEvent(s.eventPublisher, events.ChallengeCreatedEvent{
		ChallengeID: challenge.ID,
		CreatorID:   challenge.CreatorID,
		MinBet:      challenge.MinBet,
		DeadlineMs:  challenge.Deadline.UnixMilli(),
	})

	return challenge, nil
}

// SubmitProof records a proof; the first one moves the challenge to PROOF_PENDING
func (s *settlementService) SubmitProof(ctx context.Context, challengeID int64, submitterID, mediaRef string) (*entities.ProofRecord, error) {
	if submitterID == "" {
		return nil, domain.NewValidationError("submitter is required")
	}
	if strings.TrimSpace(mediaRef) == "" {
		return nil, domain.NewValidationError("media reference is required")
	}

	challenge, err := s.lockChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	if challenge.Status != entities.ChallengeStatusOpen && challenge.Status != entities.ChallengeStatusProofPending {
		return nil, domain.ErrWrongStatus.WithMessage("challenge %d is %s, proofs are no longer accepted", challenge.ID, challenge.Status)
	}
	if challenge.IsPastDeadline(s.clock.Now()) {
		return nil, domain.ErrDeadlinePassed
	}

	proof := &entities.ProofRecord{
		ChallengeID: challengeID,
		SubmitterID: submitterID,
		MediaRef:    mediaRef,
	}
	if err := s.proofRepo.Create(ctx, proof); err != nil {
		return nil, fmt.Errorf("failed to record proof: %w", err)
	}

	if challenge.Status == entities.ChallengeStatusOpen {
		oldStatus := challenge.Status
		if err := challenge.TransitionTo(entities.ChallengeStatusProofPending, s.clock.Now()); err != nil {
			return nil, domain.ErrWrongStatus.Wrap(err)
		}
		if err := s.challengeRepo.Update(ctx, challenge); err != nil {
			return nil, fmt.Errorf("failed to update challenge: %w", err)
		}
		publishEvent(s.eventPublisher, stateChangeEvent(challenge, oldStatus))
	}

	publishEvent(s.eventPublisher, events.ProofSubmittedEvent{
		ChallengeID: challengeID,
		ProofID:     proof.ID,
		SubmitterID: submitterID,
	})

	return proof, nil
}

// AcceptProof is the arbitration signal: the proof wins and the challenge completes
func (s *settlementService) AcceptProof(ctx context.Context, challengeID, proofID int64) (*entities.Challenge, error) {
	challenge, err := s.lockChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	proof, err := s.proofRepo.GetByID(ctx, proofID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}
	if proof == nil || proof.ChallengeID != challengeID {
		return nil, domain.ErrNotFound.WithMessage("proof %d not found on challenge %d", proofID, challengeID)
	}

	if challenge.Status != entities.ChallengeStatusProofPending {
		return nil, domain.ErrWrongStatus.WithMessage("challenge %d is %s, acceptance requires PROOF_PENDING", challenge.ID, challenge.Status)
	}
	now := s.clock.Now()
	if challenge.IsPastDeadline(now) {
		return nil, domain.ErrDeadlinePassed
	}

	if err := s.ledger.ResolveWinningSide(ctx, challenge, entities.ChallengeStatusCompleted); err != nil {
		return nil, err
	}

	proof.IsWinningProof = true
	proof.AcceptedAt = &now
	if err := s.proofRepo.Update(ctx, proof); err != nil {
		return nil, fmt.Errorf("failed to mark winning proof: %w", err)
	}

	return challenge, nil
}

// Expire resolves a challenge whose deadline passed without an accepted proof
func (s *settlementService) Expire(ctx context.Context, challengeID int64) (*entities.Challenge, bool, error) {
	challenge, err := s.lockChallenge(ctx, challengeID)
	if err != nil {
		return nil, false, err
	}

	if challenge.IsResolved() || !challenge.IsPastDeadline(s.clock.Now()) {
		return challenge, false, nil
	}

	if err := s.ledger.ResolveWinningSide(ctx, challenge, entities.ChallengeStatusExpired); err != nil {
		return nil, false, err
	}

	log.WithFields(log.Fields{
		"challenge_id": challenge.ID,
		"deadline":     challenge.Deadline,
	}).Info("Challenge expired")

	return challenge, true, nil
}

// ListDueForExpiry returns challenges that are past their deadline but unresolved
func (s *settlementService) ListDueForExpiry(ctx context.Context) ([]int64, error) {
	ids, err := s.challengeRepo.GetDueForExpiry(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges due for expiry: %w", err)
	}
	return ids, nil
}

func (s *settlementService) lockChallenge(ctx context.Context, challengeID int64) (*entities.Challenge, error) {
	challenge, err := s.challengeRepo.GetForUpdate(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenge: %w", err)
	}
	if challenge == nil {
		return nil, domain.ErrNotFound.WithMessage("challenge %d not found", challengeID)
	}
	return challenge, nil
}
