package interfaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dareledger/domain/entities"
)

// Action names a fund-moving operation; it is the first field of the signed message
type Action string

const (
	ActionCashOut              Action = "CashOut"
	ActionClaimWinnings        Action = "ClaimWinnings"
	ActionClaimCreatorFee      Action = "ClaimCreatorFee"
	ActionClaimCompleterReward Action = "ClaimCompleterReward"
)

// ActionForRole maps a payout role to the action a participant signs for it
func ActionForRole(role entities.PayoutRole) Action {
	switch role {
	case entities.PayoutRoleBettorWinnings:
		return ActionClaimWinnings
	case entities.PayoutRoleCreatorFee:
		return ActionClaimCreatorFee
	case entities.PayoutRoleCompleterReward:
		return ActionClaimCompleterReward
	default:
		return ActionCashOut
	}
}

// AuthorizationRequest carries a participant's signed intent
type AuthorizationRequest struct {
	Identity    string // base58 ed25519 public key
	Action      Action
	ChallengeID int64
	Signature   string // base58 detached signature
	TimestampMs int64
}

// Message is the exact text a participant signs: "<Action>:<challengeId>:<timestampMs>"
func (r AuthorizationRequest) Message() string {
	return fmt.Sprintf("%s:%d:%d", r.Action, r.ChallengeID, r.TimestampMs)
}

// Authorizer verifies that a request was signed by the claimed identity recently
type Authorizer interface {
	Authorize(req AuthorizationRequest) error
}

// PlaceBetRequest is a stake to credit to a challenge pool
type PlaceBetRequest struct {
	ChallengeID  int64
	BettorID     string
	Side         entities.BetSide
	Amount       int64
	FundingTxRef *string
}

// ClaimReservation is the result of reserving a payout. Existing is set when a
// claim for the same key was already in flight; the caller must resolve it
// instead of transferring again.
type ClaimReservation struct {
	Claim    *entities.PayoutClaim
	Existing bool
}

// LedgerService owns challenge pools, bet state and payout claims.
// Every method must run inside a transaction and locks the challenge row first.
type LedgerService interface {
	PlaceBet(ctx context.Context, req PlaceBetRequest) (*entities.Bet, error)

	// ReserveCashOut records the intent to refund an active bet. betID may be nil
	// when the bettor has exactly one active bet on the challenge.
	ReserveCashOut(ctx context.Context, challengeID int64, bettorID string, betID *int64) (*ClaimReservation, error)

	// ReserveClaim records the intent to pay a settlement role
	ReserveClaim(ctx context.Context, challengeID int64, participantID string, role entities.PayoutRole) (*ClaimReservation, error)

	// CommitClaim applies the ledger effects of a transfer that succeeded
	CommitClaim(ctx context.Context, claimID int64, receipt *entities.TransferReceipt) (*entities.PayoutClaim, error)

	// ReleaseClaim drops an intent whose transfer definitely did not happen
	ReleaseClaim(ctx context.Context, claimID int64, reason string) (*entities.PayoutClaim, error)

	// MarkClaimUnknown keeps an intent whose transfer outcome is not known
	MarkClaimUnknown(ctx context.Context, claimID int64, reason string) (*entities.PayoutClaim, error)

	// ResolveWinningSide moves a locked challenge to a terminal status and fixes its winning side
	ResolveWinningSide(ctx context.Context, challenge *entities.Challenge, outcome entities.ChallengeStatus) error
}

// CreateChallengeRequest describes a new challenge
type CreateChallengeRequest struct {
	CreatorID string
	Title     string
	Deadline  time.Time
	MinBet    int64
}

// SettlementService drives the challenge lifecycle
type SettlementService interface {
	CreateChallenge(ctx context.Context, req CreateChallengeRequest) (*entities.Challenge, error)
	SubmitProof(ctx context.Context, challengeID int64, submitterID, mediaRef string) (*entities.ProofRecord, error)
	AcceptProof(ctx context.Context, challengeID, proofID int64) (*entities.Challenge, error)

	// Expire resolves a challenge whose deadline passed. It reports whether a transition happened.
	Expire(ctx context.Context, challengeID int64) (*entities.Challenge, bool, error)

	ListDueForExpiry(ctx context.Context) ([]int64, error)
}

// ErrTransferRejected marks a transfer the custodian definitely did not execute.
// Any other ExecuteTransfer error leaves the outcome unknown.
var ErrTransferRejected = errors.New("transfer rejected by custodian")

// ErrDepositNotFound is returned when a funding transfer cannot be matched
var ErrDepositNotFound = errors.New("deposit not found")

// FundsCustodian is the external system that holds pooled funds. Amounts are in native units.
type FundsCustodian interface {
	// ExecuteTransfer moves funds out of custody. The idempotency key must make
	// repeated calls for the same claim execute at most once.
	ExecuteTransfer(ctx context.Context, req entities.TransferRequest) (*entities.TransferReceipt, error)

	// TransferStatus reports what happened to a transfer with the given idempotency key
	TransferStatus(ctx context.Context, idempotencyKey string) (*entities.TransferStatus, error)

	// VerifyDeposit confirms a transfer of amount from sender into custody
	VerifyDeposit(ctx context.Context, txRef, sender string, amount int64) (*entities.Deposit, error)

	// Balance returns the current custody balance
	Balance(ctx context.Context) (int64, error)

	// TreasuryAddress is where participants send stakes
	TreasuryAddress() string
}
