package repository

import (
	"context"
	"errors"
	"fmt"

	"dareledger/application"
	"dareledger/database"
	"dareledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher interfaces.TransactionalEventPublisher
	challengeRepo          interfaces.ChallengeRepository
	betRepo                interfaces.BetRepository
	proofRepo              interfaces.ProofRepository
	claimRepo              interfaces.PayoutClaimRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateWithPublisher creates a new UnitOfWork that flushes the given publisher after commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new read-write transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	return u.begin(ctx, database.ReadWrite)
}

// BeginReadOnly starts a repeatable-read, read-only transaction
func (u *unitOfWork) BeginReadOnly(ctx context.Context) error {
	return u.begin(ctx, database.ReadOnlySnapshot)
}

func (u *unitOfWork) begin(ctx context.Context, opts pgx.TxOptions) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.challengeRepo = newChallengeRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.proofRepo = newProofRepositoryWithTx(tx)
	u.claimRepo = newPayoutClaimRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		_ = u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// ChallengeRepository returns the challenge repository for this unit of work
func (u *unitOfWork) ChallengeRepository() interfaces.ChallengeRepository {
	if u.challengeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.challengeRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() interfaces.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// ProofRepository returns the proof repository for this unit of work
func (u *unitOfWork) ProofRepository() interfaces.ProofRepository {
	if u.proofRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.proofRepo
}

// PayoutClaimRepository returns the payout claim repository for this unit of work
func (u *unitOfWork) PayoutClaimRepository() interfaces.PayoutClaimRepository {
	if u.claimRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.claimRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
