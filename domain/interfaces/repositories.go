package interfaces

import (
	"context"
	"time"

	"dareledger/domain/entities"
	"dareledger/domain/events"
)

// ChallengeRepository defines the interface for challenge data access.
// Getters return (nil, nil) when the row does not exist.
type ChallengeRepository interface {
	// Create inserts a new challenge and fills in its ID and timestamps
	Create(ctx context.Context, challenge *entities.Challenge) error

	// GetByID reads a challenge without locking it
	GetByID(ctx context.Context, id int64) (*entities.Challenge, error)

	// GetForUpdate reads a challenge and locks its row until the transaction ends.
	// Every balance-affecting operation on a challenge goes through this lock.
	GetForUpdate(ctx context.Context, id int64) (*entities.Challenge, error)

	// Update persists status, pools and claim flags
	Update(ctx context.Context, challenge *entities.Challenge) error

	// GetDueForExpiry returns IDs of unresolved challenges whose deadline is at or before now
	GetDueForExpiry(ctx context.Context, now time.Time) ([]int64, error)

	// List returns challenges, optionally filtered by status
	List(ctx context.Context, status *entities.ChallengeStatus) ([]*entities.Challenge, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	Create(ctx context.Context, bet *entities.Bet) error
	GetByID(ctx context.Context, id int64) (*entities.Bet, error)
	GetByFundingTxRef(ctx context.Context, txRef string) (*entities.Bet, error)
	GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.Bet, error)
	GetByChallengeAndBettor(ctx context.Context, challengeID int64, bettorID string) ([]*entities.Bet, error)
	Update(ctx context.Context, bet *entities.Bet) error
}

// ProofRepository defines the interface for proof data access
type ProofRepository interface {
	Create(ctx context.Context, proof *entities.ProofRecord) error
	GetByID(ctx context.Context, id int64) (*entities.ProofRecord, error)
	GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.ProofRecord, error)
	GetWinningProof(ctx context.Context, challengeID int64) (*entities.ProofRecord, error)
	Update(ctx context.Context, proof *entities.ProofRecord) error
}

// PayoutClaimRepository defines the interface for payout claim data access
type PayoutClaimRepository interface {
	Create(ctx context.Context, claim *entities.PayoutClaim) error
	GetByID(ctx context.Context, id int64) (*entities.PayoutClaim, error)

	// GetActive returns the non-released claim for the key, if any. betID is only
	// part of the key for early cash-out refunds.
	GetActive(ctx context.Context, challengeID int64, participantID string, role entities.PayoutRole, betID *int64) (*entities.PayoutClaim, error)

	GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.PayoutClaim, error)

	// GetOutstanding returns RESERVED and UNKNOWN claims last touched before olderThan
	GetOutstanding(ctx context.Context, olderThan time.Time) ([]*entities.PayoutClaim, error)

	Update(ctx context.Context, claim *entities.PayoutClaim) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes buffered events; call only after a successful commit
	Flush(ctx context.Context) error

	// Discard drops buffered events; call on rollback
	Discard()
}
