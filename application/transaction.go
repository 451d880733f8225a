package application

import (
	"context"
	"fmt"

	"dareledger/domain/interfaces"
	"dareledger/domain/services"

	"github.com/raulk/clock"
)

// txServices are the domain services bound to one unit of work
type txServices struct {
	uow        UnitOfWork
	ledger     interfaces.LedgerService
	settlement interfaces.SettlementService
}

// withTransaction runs fn inside a read-write unit of work. The transaction
// commits only when fn returns nil; events raised by fn are published after commit.
func withTransaction(ctx context.Context, factory UnitOfWorkFactory, clk clock.Clock, fn func(tx *txServices) error) error {
	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := recover(); err != nil {
			uow.Rollback()
			panic(err)
		}
	}()

	ledger := services.NewLedgerService(
		uow.ChallengeRepository(),
		uow.BetRepository(),
		uow.ProofRepository(),
		uow.PayoutClaimRepository(),
		uow.EventBus(),
		clk,
	)
	tx := &txServices{
		uow:        uow,
		ledger:     ledger,
		settlement: services.NewSettlementService(uow.ChallengeRepository(), uow.ProofRepository(), ledger, uow.EventBus(), clk),
	}

	if err := fn(tx); err != nil {
		uow.Rollback()
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withSnapshot runs fn inside a read-only, repeatable-read unit of work
func withSnapshot(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) error {
	uow := factory.Create()
	if err := uow.BeginReadOnly(ctx); err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer uow.Rollback()

	return fn(uow)
}
