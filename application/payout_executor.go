package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dareledger/config"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/hashicorp/go-multierror"
	"github.com/raulk/clock"
	log "github.com/sirupsen/logrus"
)

// PayoutRequest is a participant's signed request for funds
type PayoutRequest struct {
	ChallengeID int64
	Participant string
	Signature   string
	TimestampMs int64
	// BetID selects the bet to cash out when the bettor holds more than one
	BetID *int64
}

// PayoutExecutor moves funds out of custody with a reserve, transfer, record protocol.
// The custodian is never called while a challenge row is locked.
type PayoutExecutor struct {
	uowFactory UnitOfWorkFactory
	custodian  interfaces.FundsCustodian
	authorizer interfaces.Authorizer
	clock      clock.Clock
	// minIntentAge protects a RESERVED intent whose transfer may still be in flight.
	// It is never shorter than the custodian timeout plus config.IntentAgeMargin.
	minIntentAge time.Duration
}

// NewPayoutExecutor creates a new payout executor
func NewPayoutExecutor(
	uowFactory UnitOfWorkFactory,
	custodian interfaces.FundsCustodian,
	authorizer interfaces.Authorizer,
	clk clock.Clock,
	minIntentAge time.Duration,
) *PayoutExecutor {
	if floor := config.Get().CustodianTimeout + config.IntentAgeMargin; minIntentAge < floor {
		log.WithFields(log.Fields{
			"min_intent_age": minIntentAge,
			"floor":          floor,
		}).Warn("Intent min age is inside the custodian timeout, raising it")
		minIntentAge = floor
	}

	return &PayoutExecutor{
		uowFactory:   uowFactory,
		custodian:    custodian,
		authorizer:   authorizer,
		clock:        clk,
		minIntentAge: minIntentAge,
	}
}

// CashOut refunds an active bet before the cash-out cutoff, minus the penalty
func (e *PayoutExecutor) CashOut(ctx context.Context, req PayoutRequest) (*entities.PayoutReceipt, error) {
	return e.payout(ctx, req, entities.PayoutRoleEarlyCashOutRefund, func(ledger interfaces.LedgerService) (*interfaces.ClaimReservation, error) {
		return ledger.ReserveCashOut(ctx, req.ChallengeID, req.Participant, req.BetID)
	})
}

// ClaimWinnings pays a winning bettor their share of the bettor pool
func (e *PayoutExecutor) ClaimWinnings(ctx context.Context, req PayoutRequest) (*entities.PayoutReceipt, error) {
	return e.claim(ctx, req, entities.PayoutRoleBettorWinnings)
}

// ClaimCreatorFee pays the challenge creator their fee
func (e *PayoutExecutor) ClaimCreatorFee(ctx context.Context, req PayoutRequest) (*entities.PayoutReceipt, error) {
	return e.claim(ctx, req, entities.PayoutRoleCreatorFee)
}

// ClaimCompleterReward pays the submitter of the winning proof
func (e *PayoutExecutor) ClaimCompleterReward(ctx context.Context, req PayoutRequest) (*entities.PayoutReceipt, error) {
	return e.claim(ctx, req, entities.PayoutRoleCompleterReward)
}

func (e *PayoutExecutor) claim(ctx context.Context, req PayoutRequest, role entities.PayoutRole) (*entities.PayoutReceipt, error) {
	return e.payout(ctx, req, role, func(ledger interfaces.LedgerService) (*interfaces.ClaimReservation, error) {
		return ledger.ReserveClaim(ctx, req.ChallengeID, req.Participant, role)
	})
}

func (e *PayoutExecutor) payout(
	ctx context.Context,
	req PayoutRequest,
	role entities.PayoutRole,
	reserve func(ledger interfaces.LedgerService) (*interfaces.ClaimReservation, error),
) (*entities.PayoutReceipt, error) {
	if err := e.authorizer.Authorize(interfaces.AuthorizationRequest{
		Identity:    req.Participant,
		Action:      interfaces.ActionForRole(role),
		ChallengeID: req.ChallengeID,
		Signature:   req.Signature,
		TimestampMs: req.TimestampMs,
	}); err != nil {
		return nil, err
	}

	// A previous intent is settled first; if it turns out released, reserve once more
	for attempt := 0; attempt < 2; attempt++ {
		var reservation *interfaces.ClaimReservation
		err := withTransaction(ctx, e.uowFactory, e.clock, func(tx *txServices) error {
			var err error
			reservation, err = reserve(tx.ledger)
			return err
		})
		if err != nil {
			return nil, err
		}

		if !reservation.Existing {
			claim, err := e.execute(ctx, reservation.Claim)
			if err != nil {
				return nil, err
			}
			return entities.ReceiptFor(claim), nil
		}

		existing := reservation.Claim
		// A young RESERVED intent belongs to a request that may still be waiting on the custodian
		if existing.Status == entities.PayoutClaimStatusReserved && e.clock.Now().Sub(existing.UpdatedAt) < e.minIntentAge {
			return nil, domain.ErrClaimInProgress.WithMessage("claim %d is being paid by another request", existing.ID)
		}

		log.WithFields(log.Fields{
			"claim_id": existing.ID,
			"status":   existing.Status,
			"role":     role,
		}).Info("Retry found an outstanding payout intent, checking custodian")

		settled, err := e.settle(ctx, existing)
		if err != nil {
			return nil, err
		}
		if settled.IsCommitted() {
			return entities.ReceiptFor(settled), nil
		}
	}

	return nil, domain.ErrClaimInProgress
}

// execute performs the transfer for a freshly reserved claim and records its outcome
func (e *PayoutExecutor) execute(ctx context.Context, claim *entities.PayoutClaim) (*entities.PayoutClaim, error) {
	receipt, transferErr := e.custodian.ExecuteTransfer(ctx, entities.TransferRequest{
		IdempotencyKey: claim.IdempotencyKey,
		Recipient:      claim.ParticipantID,
		Amount:         claim.NativeAmount,
		Memo:           fmt.Sprintf("%s:%d", claim.Role, claim.ChallengeID),
	})

	// The outcome must be recorded even if the caller went away
	recordCtx := context.WithoutCancel(ctx)

	if transferErr != nil {
		if errors.Is(transferErr, interfaces.ErrTransferRejected) {
			if _, err := e.release(recordCtx, claim.ID, transferErr.Error()); err != nil {
				log.WithError(err).WithField("claim_id", claim.ID).Error("Failed to release rejected payout intent")
			}
			return nil, domain.ErrTransferFailed.Wrap(transferErr)
		}

		if _, err := e.markUnknown(recordCtx, claim.ID, transferErr.Error()); err != nil {
			log.WithError(err).WithField("claim_id", claim.ID).Error("Failed to mark payout intent unknown")
		}
		return nil, domain.ErrTransferUnknown.Wrap(transferErr)
	}

	committed, err := e.commit(recordCtx, claim.ID, receipt)
	if err != nil {
		log.WithFields(log.Fields{
			"claim_id":    claim.ID,
			"receipt_ref": receipt.Reference,
		}).WithError(err).Error("Transfer executed but payout could not be recorded")
		return nil, domain.ErrPayoutUnrecorded.Wrap(err)
	}

	log.WithFields(log.Fields{
		"claim_id":     committed.ID,
		"challenge_id": committed.ChallengeID,
		"role":         committed.Role,
		"amount":       committed.Amount,
		"receipt_ref":  receipt.Reference,
	}).Info("Payout committed")

	return committed, nil
}

// ResolveIntent checks the custodian for an outstanding claim and commits or
// releases it. Claims that are already settled are returned unchanged.
func (e *PayoutExecutor) ResolveIntent(ctx context.Context, claimID int64) (*entities.PayoutClaim, error) {
	var claim *entities.PayoutClaim
	err := withSnapshot(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		claim, err = uow.PayoutClaimRepository().GetByID(ctx, claimID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get payout claim: %w", err)
	}
	if claim == nil {
		return nil, domain.ErrNotFound.WithMessage("payout claim %d not found", claimID)
	}
	if !claim.IsOutstanding() {
		return claim, nil
	}

	return e.settle(ctx, claim)
}

// ResolveOutstanding settles every intent that has been outstanding for at least
// the minimum intent age. It returns how many intents reached a final status.
func (e *PayoutExecutor) ResolveOutstanding(ctx context.Context) (int, error) {
	var outstanding []*entities.PayoutClaim
	err := withSnapshot(ctx, e.uowFactory, func(uow UnitOfWork) error {
		var err error
		outstanding, err = uow.PayoutClaimRepository().GetOutstanding(ctx, e.clock.Now().Add(-e.minIntentAge))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list outstanding payout intents: %w", err)
	}

	var result *multierror.Error
	resolved := 0
	for _, claim := range outstanding {
		if _, err := e.settle(ctx, claim); err != nil {
			if errors.Is(err, domain.ErrClaimInProgress) {
				continue
			}
			result = multierror.Append(result, fmt.Errorf("claim %d: %w", claim.ID, err))
			continue
		}
		resolved++
	}

	if resolved > 0 || result != nil {
		log.WithFields(log.Fields{
			"outstanding": len(outstanding),
			"resolved":    resolved,
		}).Info("Resolved outstanding payout intents")
	}

	return resolved, result.ErrorOrNil()
}

// settle asks the custodian what happened to an outstanding claim and records it.
// It never executes a transfer.
func (e *PayoutExecutor) settle(ctx context.Context, claim *entities.PayoutClaim) (*entities.PayoutClaim, error) {
	status, err := e.custodian.TransferStatus(ctx, claim.IdempotencyKey)
	if err != nil {
		return nil, domain.ErrCustodianUnhealthy.WithMessage("status check for claim %d failed", claim.ID).Wrap(err)
	}

	switch status.State {
	case entities.TransferStateCompleted:
		if status.Receipt == nil {
			return nil, domain.ErrTransferUnknown.WithMessage("custodian reports claim %d completed without a receipt", claim.ID)
		}
		committed, err := e.commit(ctx, claim.ID, status.Receipt)
		if err != nil {
			return nil, domain.ErrPayoutUnrecorded.Wrap(err)
		}
		log.WithFields(log.Fields{
			"claim_id":    claim.ID,
			"receipt_ref": status.Receipt.Reference,
		}).Info("Outstanding payout intent committed after status check")
		return committed, nil

	case entities.TransferStateFailed:
		return e.release(ctx, claim.ID, "custodian reports the transfer failed")

	case entities.TransferStateNotFound:
		// A young RESERVED intent may belong to a request whose transfer is still on its way
		if e.clock.Now().Sub(claim.UpdatedAt) < e.minIntentAge {
			return nil, domain.ErrClaimInProgress.WithMessage("claim %d is still within its in-flight window", claim.ID)
		}
		return e.release(ctx, claim.ID, "custodian has no record of the transfer")

	default:
		return nil, domain.ErrClaimInProgress.WithMessage("transfer for claim %d is %s", claim.ID, status.State)
	}
}

func (e *PayoutExecutor) commit(ctx context.Context, claimID int64, receipt *entities.TransferReceipt) (*entities.PayoutClaim, error) {
	var claim *entities.PayoutClaim
	err := withTransaction(ctx, e.uowFactory, e.clock, func(tx *txServices) error {
		var err error
		claim, err = tx.ledger.CommitClaim(ctx, claimID, receipt)
		return err
	})
	return claim, err
}

func (e *PayoutExecutor) release(ctx context.Context, claimID int64, reason string) (*entities.PayoutClaim, error) {
	var claim *entities.PayoutClaim
	err := withTransaction(ctx, e.uowFactory, e.clock, func(tx *txServices) error {
		var err error
		claim, err = tx.ledger.ReleaseClaim(ctx, claimID, reason)
		return err
	})
	return claim, err
}

func (e *PayoutExecutor) markUnknown(ctx context.Context, claimID int64, reason string) (*entities.PayoutClaim, error) {
	var claim *entities.PayoutClaim
	err := withTransaction(ctx, e.uowFactory, e.clock, func(tx *txServices) error {
		var err error
		claim, err = tx.ledger.MarkClaimUnknown(ctx, claimID, reason)
		return err
	})
	return claim, err
}
