package services

import (
	"context"
	"fmt"

	"dareledger/config"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/events"
	"dareledger/domain/interfaces"

	"github.com/google/uuid"
	"github.com/raulk/clock"
	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	config         *config.Config
	clock          clock.Clock
	calculator     *PayoutCalculator
	challengeRepo  interfaces.ChallengeRepository
	betRepo        interfaces.BetRepository
	proofRepo      interfaces.ProofRepository
	claimRepo      interfaces.PayoutClaimRepository
	eventPublisher interfaces.EventPublisher
}

// NewLedgerService creates a new ledger service bound to the given repositories
func NewLedgerService(
	challengeRepo interfaces.ChallengeRepository,
	betRepo interfaces.BetRepository,
	proofRepo interfaces.ProofRepository,
	claimRepo interfaces.PayoutClaimRepository,
	eventPublisher interfaces.EventPublisher,
	clk clock.Clock,
) interfaces.LedgerService {
	cfg := config.Get()
	return &ledgerService{
		config:         cfg,
		clock:          clk,
		calculator:     NewPayoutCalculator(cfg.PayoutRules(), cfg.NativeUnitsPerMinorUnit),
		challengeRepo:  challengeRepo,
		betRepo:        betRepo,
		proofRepo:      proofRepo,
		claimRepo:      claimRepo,
		eventPublisher: eventPublisher,
	}
}

// PlaceBet credits a stake to one side of an open challenge
func (s *ledgerService) PlaceBet(ctx context.Context, req interfaces.PlaceBetRequest) (*entities.Bet, error) {
	if req.BettorID == "" {
		return nil, domain.NewValidationError("bettor is required")
	}
	if !req.Side.Valid() {
		return nil, domain.NewValidationError("invalid side: %s", req.Side)
	}
	if req.Amount <= 0 {
		return nil, domain.NewValidationError("bet amount must be positive")
	}

	challenge, err := s.lockChallenge(ctx, req.ChallengeID)
	if err != nil {
		return nil, err
	}

	// A funding transfer may only ever back one bet
	if req.FundingTxRef != nil {
		existing, err := s.betRepo.GetByFundingTxRef(ctx, *req.FundingTxRef)
		if err != nil {
			return nil, fmt.Errorf("failed to look up funding reference: %w", err)
		}
		if existing != nil {
			if existing.ChallengeID == req.ChallengeID && existing.BettorID == req.BettorID &&
				existing.Side == req.Side && existing.Amount == req.Amount {
				return existing, nil
			}
			return nil, domain.ErrDuplicateDeposit
		}
	}

	if !challenge.CanAcceptBets(s.clock.Now()) {
		if challenge.Status != entities.ChallengeStatusOpen {
			return nil, domain.ErrWrongStatus.WithMessage("challenge %d is %s, bets require OPEN", challenge.ID, challenge.Status)
		}
		return nil, domain.ErrDeadlinePassed
	}
	if req.Amount < challenge.MinBet {
		return nil, domain.ErrBetTooLow.WithMessage("bet of %d is below the minimum of %d", req.Amount, challenge.MinBet)
	}

	challenge.AddStake(req.Side, req.Amount)
	if err := challenge.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("pool invariant violated: %w", err)
	}

	bet := &entities.Bet{
		ChallengeID:  req.ChallengeID,
		BettorID:     req.BettorID,
		Side:         req.Side,
		Amount:       req.Amount,
		Status:       entities.BetStatusPlaced,
		FundingTxRef: req.FundingTxRef,
	}
	if err := s.betRepo.Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}
	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to update challenge pools: %w", err)
	}

	publishEvent(s.eventPublisher, events.BetPlacedEvent{
		ChallengeID: challenge.ID,
		BetID:       bet.ID,
		BettorID:    bet.BettorID,
		Side:        string(bet.Side),
		Amount:      bet.Amount,
		TotalPool:   challenge.TotalPool,
	})

	return bet, nil
}

// ReserveCashOut records the intent to refund an active bet before its transfer
func (s *ledgerService) ReserveCashOut(ctx context.Context, challengeID int64, bettorID string, betID *int64) (*interfaces.ClaimReservation, error) {
	challenge, err := s.lockChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	bet, err := s.selectCashOutBet(ctx, challengeID, bettorID, betID)
	if err != nil {
		return nil, err
	}

	// An intent that already exists is resolved by the caller, even past the cutoff
	existing, err := s.claimRepo.GetActive(ctx, challengeID, bettorID, entities.PayoutRoleEarlyCashOutRefund, &bet.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up cash-out claim: %w", err)
	}
	if existing != nil {
		if existing.IsCommitted() {
			return nil, domain.ErrAlreadyCashedOut
		}
		return &interfaces.ClaimReservation{Claim: existing, Existing: true}, nil
	}

	if !bet.IsActive() {
		if bet.Status == entities.BetStatusCashedOut {
			return nil, domain.ErrAlreadyCashedOut
		}
		return nil, domain.ErrWrongStatus.WithMessage("bet %d is %s", bet.ID, bet.Status)
	}
	if challenge.Status != entities.ChallengeStatusOpen {
		return nil, domain.ErrWrongStatus.WithMessage("challenge %d is %s, cash-out requires OPEN", challenge.ID, challenge.Status)
	}
	if !s.clock.Now().Before(challenge.CashOutCutoff(s.config.CashOutCutoff)) {
		return nil, domain.ErrCutoffPassed
	}

	refund := s.calculator.CashOutRefund(bet.Amount)
	if refund <= 0 {
		return nil, domain.ErrNothingToPay
	}

	claim, err := s.createClaim(ctx, challengeID, bettorID, entities.PayoutRoleEarlyCashOutRefund, &bet.ID, refund)
	if err != nil {
		return nil, err
	}
	return &interfaces.ClaimReservation{Claim: claim}, nil
}

// ReserveClaim records the intent to pay a settlement role of a resolved challenge
func (s *ledgerService) ReserveClaim(ctx context.Context, challengeID int64, participantID string, role entities.PayoutRole) (*interfaces.ClaimReservation, error) {
	if role == entities.PayoutRoleEarlyCashOutRefund {
		return nil, domain.NewValidationError("cash-out refunds are reserved with ReserveCashOut")
	}

	challenge, err := s.lockChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	existing, err := s.claimRepo.GetActive(ctx, challengeID, participantID, role, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s claim: %w", role, err)
	}
	if existing != nil {
		if existing.IsCommitted() {
			return nil, domain.ErrAlreadyClaimed
		}
		return &interfaces.ClaimReservation{Claim: existing, Existing: true}, nil
	}

	if !challenge.IsResolved() {
		return nil, domain.ErrWrongStatus.WithMessage("challenge %d is %s, claims require a resolved challenge", challenge.ID, challenge.Status)
	}

	var amount int64
	switch role {
	case entities.PayoutRoleBettorWinnings:
		amount, err = s.winningsFor(ctx, challenge, participantID)
	case entities.PayoutRoleCreatorFee:
		amount, err = s.creatorFeeFor(challenge, participantID)
	case entities.PayoutRoleCompleterReward:
		amount, err = s.completerRewardFor(ctx, challenge, participantID)
	default:
		return nil, domain.NewValidationError("unknown payout role: %s", role)
	}
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.ErrNothingToPay
	}

	claim, err := s.createClaim(ctx, challengeID, participantID, role, nil, amount)
	if err != nil {
		return nil, err
	}
	return &interfaces.ClaimReservation{Claim: claim}, nil
}

// CommitClaim applies the ledger effects of a successful transfer. Committing twice is a no-op.
func (s *ledgerService) CommitClaim(ctx context.Context, claimID int64, receipt *entities.TransferReceipt) (*entities.PayoutClaim, error) {
	if receipt == nil || receipt.Reference == "" {
		return nil, domain.NewValidationError("transfer receipt is required to commit a claim")
	}

	claim, challenge, err := s.lockClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.IsCommitted() {
		return claim, nil
	}
	if !claim.IsOutstanding() {
		return nil, domain.ErrClaimNotResolving.WithMessage("claim %d is %s", claim.ID, claim.Status)
	}

	switch claim.Role {
	case entities.PayoutRoleEarlyCashOutRefund:
		if err := s.applyCashOut(ctx, challenge, claim, receipt.Reference); err != nil {
			return nil, err
		}
	case entities.PayoutRoleBettorWinnings:
		if err := s.applyWinnings(ctx, challenge, claim, receipt.Reference); err != nil {
			return nil, err
		}
	case entities.PayoutRoleCreatorFee:
		challenge.CreatorFeeClaimed = true
	case entities.PayoutRoleCompleterReward:
		challenge.CompleterFeeClaimed = true
	}

	if err := challenge.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("pool invariant violated: %w", err)
	}
	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}

	claim.Commit(receipt.Reference, s.clock.Now())
	if err := s.claimRepo.Update(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	publishEvent(s.eventPublisher, events.PayoutCommittedEvent{
		ClaimID:       claim.ID,
		ChallengeID:   claim.ChallengeID,
		ParticipantID: claim.ParticipantID,
		Role:          string(claim.Role),
		Amount:        claim.Amount,
		ReceiptRef:    receipt.Reference,
	})

	return claim, nil
}

// ReleaseClaim abandons an intent whose transfer definitely did not happen
func (s *ledgerService) ReleaseClaim(ctx context.Context, claimID int64, reason string) (*entities.PayoutClaim, error) {
	claim, _, err := s.lockClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status == entities.PayoutClaimStatusReleased {
		return claim, nil
	}
	if !claim.IsOutstanding() {
		return nil, domain.ErrClaimNotResolving.WithMessage("claim %d is %s", claim.ID, claim.Status)
	}

	claim.Release(reason)
	if err := s.claimRepo.Update(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to release claim: %w", err)
	}

	publishEvent(s.eventPublisher, events.PayoutReleasedEvent{
		ClaimID:       claim.ID,
		ChallengeID:   claim.ChallengeID,
		ParticipantID: claim.ParticipantID,
		Role:          string(claim.Role),
		Reason:        reason,
	})

	return claim, nil
}

// MarkClaimUnknown keeps an intent whose transfer outcome could not be observed
func (s *ledgerService) MarkClaimUnknown(ctx context.Context, claimID int64, reason string) (*entities.PayoutClaim, error) {
	claim, _, err := s.lockClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !claim.IsOutstanding() {
		return nil, domain.ErrClaimNotResolving.WithMessage("claim %d is %s", claim.ID, claim.Status)
	}

	claim.Attempts++
	claim.MarkUnknown(reason)
	if err := s.claimRepo.Update(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to mark claim unknown: %w", err)
	}

	publishEvent(s.eventPublisher, events.PayoutUnknownEvent{
		ClaimID:       claim.ID,
		ChallengeID:   claim.ChallengeID,
		ParticipantID: claim.ParticipantID,
		Role:          string(claim.Role),
		Amount:        claim.Amount,
		Reason:        reason,
	})

	return claim, nil
}

// ResolveWinningSide moves an already locked challenge to its terminal status
func (s *ledgerService) ResolveWinningSide(ctx context.Context, challenge *entities.Challenge, outcome entities.ChallengeStatus) error {
	if !outcome.IsTerminal() {
		return domain.NewValidationError("%s is not a terminal status", outcome)
	}

	// Pools must be final before winners are fixed
	claims, err := s.claimRepo.GetByChallenge(ctx, challenge.ID)
	if err != nil {
		return fmt.Errorf("failed to get claims: %w", err)
	}
	for _, claim := range claims {
		if claim.Role == entities.PayoutRoleEarlyCashOutRefund && claim.IsOutstanding() {
			return domain.ErrCashOutPending.WithMessage("challenge %d has cash-out claim %d in flight", challenge.ID, claim.ID)
		}
	}

	oldStatus := challenge.Status
	if err := challenge.TransitionTo(outcome, s.clock.Now()); err != nil {
		return domain.ErrWrongStatus.Wrap(err)
	}
	if err := challenge.CheckInvariants(); err != nil {
		return fmt.Errorf("pool invariant violated: %w", err)
	}
	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}

	log.WithFields(log.Fields{
		"challenge_id": challenge.ID,
		"outcome":      outcome,
		"total_pool":   challenge.TotalPool,
	}).Info("Challenge resolved")

	publishEvent(s.eventPublisher, stateChangeEvent(challenge, oldStatus))
	return nil
}

func (s *ledgerService) lockChallenge(ctx context.Context, challengeID int64) (*entities.Challenge, error) {
	challenge, err := s.challengeRepo.GetForUpdate(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock challenge: %w", err)
	}
	if challenge == nil {
		return nil, domain.ErrNotFound.WithMessage("challenge %d not found", challengeID)
	}
	return challenge, nil
}

// lockClaim loads a claim and locks its challenge, re-reading the claim under the lock
func (s *ledgerService) lockClaim(ctx context.Context, claimID int64) (*entities.PayoutClaim, *entities.Challenge, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get claim: %w", err)
	}
	if claim == nil {
		return nil, nil, domain.ErrNotFound.WithMessage("claim %d not found", claimID)
	}

	challenge, err := s.lockChallenge(ctx, claim.ChallengeID)
	if err != nil {
		return nil, nil, err
	}

	claim, err = s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get claim: %w", err)
	}
	if claim == nil {
		return nil, nil, domain.ErrNotFound.WithMessage("claim %d not found", claimID)
	}
	return claim, challenge, nil
}

func (s *ledgerService) selectCashOutBet(ctx context.Context, challengeID int64, bettorID string, betID *int64) (*entities.Bet, error) {
	bets, err := s.betRepo.GetByChallengeAndBettor(ctx, challengeID, bettorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	if betID != nil {
		for _, bet := range bets {
			if bet.ID == *betID {
				return bet, nil
			}
		}
		return nil, domain.ErrNotFound.WithMessage("bet %d not found for %s on challenge %d", *betID, bettorID, challengeID)
	}

	var active []*entities.Bet
	cashedOut := false
	for _, bet := range bets {
		if bet.IsActive() {
			active = append(active, bet)
		} else if bet.Status == entities.BetStatusCashedOut {
			cashedOut = true
		}
	}

	switch {
	case len(active) == 1:
		return active[0], nil
	case len(active) > 1:
		return nil, domain.NewValidationError("bettor has %d active bets on challenge %d, betId is required", len(active), challengeID)
	case cashedOut:
		return nil, domain.ErrAlreadyCashedOut
	default:
		return nil, domain.ErrNotFound.WithMessage("no bet for %s on challenge %d", bettorID, challengeID)
	}
}

func (s *ledgerService) winningsFor(ctx context.Context, challenge *entities.Challenge, participantID string) (int64, error) {
	bets, err := s.betRepo.GetByChallengeAndBettor(ctx, challenge.ID, participantID)
	if err != nil {
		return 0, fmt.Errorf("failed to get bets: %w", err)
	}

	var winning []*entities.Bet
	alreadyPaid := false
	for _, bet := range bets {
		if bet.IsWinner(challenge.WinningSide) {
			winning = append(winning, bet)
		} else if bet.Status == entities.BetStatusWon {
			alreadyPaid = true
		}
	}
	if len(winning) == 0 {
		if alreadyPaid {
			return 0, domain.ErrAlreadyClaimed
		}
		return 0, domain.ErrNotAWinner
	}

	return s.calculator.Winnings(challenge, entities.SumAmounts(winning))
}

func (s *ledgerService) creatorFeeFor(challenge *entities.Challenge, participantID string) (int64, error) {
	if participantID != challenge.CreatorID {
		return 0, domain.ErrNotTheCreator
	}
	if challenge.CreatorFeeClaimed {
		return 0, domain.ErrAlreadyClaimed
	}
	if challenge.TotalPool <= 0 {
		return 0, domain.ErrEmptyPool
	}
	return s.calculator.CreatorFee(challenge), nil
}

func (s *ledgerService) completerRewardFor(ctx context.Context, challenge *entities.Challenge, participantID string) (int64, error) {
	if challenge.Status != entities.ChallengeStatusCompleted {
		return 0, domain.ErrNotTheCompleter.WithMessage("challenge %d was not completed", challenge.ID)
	}
	proof, err := s.proofRepo.GetWinningProof(ctx, challenge.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to get winning proof: %w", err)
	}
	if proof == nil || proof.SubmitterID != participantID {
		return 0, domain.ErrNotTheCompleter
	}
	if challenge.CompleterFeeClaimed {
		return 0, domain.ErrAlreadyClaimed
	}
	if challenge.TotalPool <= 0 {
		return 0, domain.ErrEmptyPool
	}
	return s.calculator.CompleterReward(challenge), nil
}

func (s *ledgerService) createClaim(ctx context.Context, challengeID int64, participantID string, role entities.PayoutRole, betID *int64, amount int64) (*entities.PayoutClaim, error) {
	claim := &entities.PayoutClaim{
		ChallengeID:    challengeID,
		ParticipantID:  participantID,
		Role:           role,
		BetID:          betID,
		Amount:         amount,
		NativeAmount:   s.calculator.ToNative(amount),
		IdempotencyKey: uuid.NewString(),
		Status:         entities.PayoutClaimStatusReserved,
	}
	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to reserve %s claim: %w", role, err)
	}

	log.WithFields(log.Fields{
		"claim_id":     claim.ID,
		"challenge_id": challengeID,
		"participant":  participantID,
		"role":         role,
		"amount":       amount,
	}).Debug("Payout claim reserved")

	return claim, nil
}

func (s *ledgerService) applyCashOut(ctx context.Context, challenge *entities.Challenge, claim *entities.PayoutClaim, receiptRef string) error {
	if claim.BetID == nil {
		return fmt.Errorf("cash-out claim %d has no bet", claim.ID)
	}
	bet, err := s.betRepo.GetByID(ctx, *claim.BetID)
	if err != nil {
		return fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil || !bet.IsActive() {
		return fmt.Errorf("cash-out claim %d refers to bet %d which is no longer active", claim.ID, *claim.BetID)
	}

	// Pools shrink by the original stake; the difference to the refund is the penalty
	if err := challenge.RemoveStake(bet.Side, bet.Amount); err != nil {
		return fmt.Errorf("failed to remove stake: %w", err)
	}
	challenge.PenaltyPool += bet.Amount - claim.Amount

	bet.MarkCashedOut(receiptRef)
	if err := s.betRepo.Update(ctx, bet); err != nil {
		return fmt.Errorf("failed to update bet: %w", err)
	}
	return nil
}

func (s *ledgerService) applyWinnings(ctx context.Context, challenge *entities.Challenge, claim *entities.PayoutClaim, receiptRef string) error {
	bets, err := s.betRepo.GetByChallengeAndBettor(ctx, challenge.ID, claim.ParticipantID)
	if err != nil {
		return fmt.Errorf("failed to get bets: %w", err)
	}
	for _, bet := range bets {
		if !bet.IsWinner(challenge.WinningSide) {
			continue
		}
		bet.MarkWon(receiptRef)
		if err := s.betRepo.Update(ctx, bet); err != nil {
			return fmt.Errorf("failed to update bet %d: %w", bet.ID, err)
		}
	}
	return nil
}

// stateChangeEvent describes a lifecycle transition of challenge from oldStatus
func stateChangeEvent(challenge *entities.Challenge, oldStatus entities.ChallengeStatus) events.ChallengeStateChangeEvent {
	event := events.ChallengeStateChangeEvent{
		ChallengeID: challenge.ID,
		OldStatus:   string(oldStatus),
		NewStatus:   string(challenge.Status),
		TotalPool:   challenge.TotalPool,
	}
	if challenge.WinningSide != nil {
		side := string(*challenge.WinningSide)
		event.WinningSide = &side
	}
	return event
}

// publishEvent never fails the operation; events are telemetry
func publishEvent(publisher interfaces.EventPublisher, event events.Event) {
	if err := publisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish event")
	}
}
