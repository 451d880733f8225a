package application

import (
	"context"

	"dareledger/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a read-write transaction
	Begin(ctx context.Context) error

	// BeginReadOnly starts a snapshot transaction for consistent reporting
	BeginReadOnly(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	ChallengeRepository() interfaces.ChallengeRepository
	BetRepository() interfaces.BetRepository
	ProofRepository() interfaces.ProofRepository
	PayoutClaimRepository() interfaces.PayoutClaimRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
