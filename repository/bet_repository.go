package repository

import (
	"context"
	"errors"
	"fmt"

	"dareledger/database"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type betRepository struct {
	q Queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) interfaces.BetRepository {
	return &betRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx Queryable) interfaces.BetRepository {
	return &betRepository{q: tx}
}

const betColumns = `
	id, challenge_id, bettor_id, side, amount, status, is_claimed,
	payout_receipt_ref, funding_tx_ref, created_at, updated_at`

func (r *betRepository) Create(ctx context.Context, bet *entities.Bet) error {
	query := `
		INSERT INTO bets (challenge_id, bettor_id, side, amount, status, funding_tx_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		bet.ChallengeID,
		bet.BettorID,
		bet.Side,
		bet.Amount,
		bet.Status,
		bet.FundingTxRef,
	).Scan(&bet.ID, &bet.CreatedAt, &bet.UpdatedAt)
	if isUniqueViolation(err, "bets_funding_tx_ref_key") {
		return domain.ErrDuplicateDeposit.Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", translateConstraint(err))
	}

	return nil
}

func (r *betRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}

	bet, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.Bet])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bet: %w", err)
	}
	return bet, nil
}

func (r *betRepository) GetByFundingTxRef(ctx context.Context, txRef string) (*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE funding_tx_ref = $1`

	rows, err := r.q.Query(ctx, query, txRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet by funding reference: %w", err)
	}

	bet, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.Bet])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bet: %w", err)
	}
	return bet, nil
}

func (r *betRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE challenge_id = $1 ORDER BY id ASC`
	return r.list(ctx, query, challengeID)
}

func (r *betRepository) GetByChallengeAndBettor(ctx context.Context, challengeID int64, bettorID string) ([]*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE challenge_id = $1 AND bettor_id = $2 ORDER BY id ASC`
	return r.list(ctx, query, challengeID, bettorID)
}

// Update persists the mutable state of a bet; amount and side never change
func (r *betRepository) Update(ctx context.Context, bet *entities.Bet) error {
	query := `
		UPDATE bets
		SET status = $2,
		    is_claimed = $3,
		    payout_receipt_ref = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		bet.ID,
		bet.Status,
		bet.IsClaimed,
		bet.PayoutReceiptRef,
	).Scan(&bet.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bet %d not found", bet.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update bet: %w", translateConstraint(err))
	}

	return nil
}

func (r *betRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}

	bets, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.Bet])
	if err != nil {
		return nil, fmt.Errorf("failed to scan bets: %w", err)
	}
	return bets, nil
}
