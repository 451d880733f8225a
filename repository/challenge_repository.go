package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dareledger/database"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type challengeRepository struct {
	q Queryable
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db *database.DB) interfaces.ChallengeRepository {
	return &challengeRepository{q: db.Pool}
}

// newChallengeRepositoryWithTx creates a new challenge repository with a transaction
func newChallengeRepositoryWithTx(tx Queryable) interfaces.ChallengeRepository {
	return &challengeRepository{q: tx}
}

const challengeColumns = `
	id, creator_id, title, deadline, min_bet, status,
	will_do_pool, wont_do_pool, total_pool, penalty_pool, winning_side,
	creator_fee_claimed, completer_fee_claimed, schema_version,
	created_at, updated_at, resolved_at`

func (r *challengeRepository) Create(ctx context.Context, challenge *entities.Challenge) error {
	if challenge.SchemaVersion == 0 {
		challenge.SchemaVersion = entities.CurrentSchemaVersion
	}

	query := `
		INSERT INTO challenges (creator_id, title, deadline, min_bet, status, schema_version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		challenge.CreatorID,
		challenge.Title,
		challenge.Deadline,
		challenge.MinBet,
		challenge.Status,
		challenge.SchemaVersion,
	).Scan(&challenge.ID, &challenge.CreatedAt, &challenge.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", translateConstraint(err))
	}

	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id int64) (*entities.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetForUpdate locks the challenge row until the surrounding transaction ends
func (r *challengeRepository) GetForUpdate(ctx context.Context, id int64) (*entities.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *challengeRepository) Update(ctx context.Context, challenge *entities.Challenge) error {
	query := `
		UPDATE challenges
		SET status = $2,
		    will_do_pool = $3,
		    wont_do_pool = $4,
		    total_pool = $5,
		    penalty_pool = $6,
		    winning_side = $7,
		    creator_fee_claimed = $8,
		    completer_fee_claimed = $9,
		    resolved_at = $10,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		challenge.ID,
		challenge.Status,
		challenge.WillDoPool,
		challenge.WontDoPool,
		challenge.TotalPool,
		challenge.PenaltyPool,
		challenge.WinningSide,
		challenge.CreatorFeeClaimed,
		challenge.CompleterFeeClaimed,
		challenge.ResolvedAt,
	).Scan(&challenge.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("challenge %d not found", challenge.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", translateConstraint(err))
	}

	return nil
}

// GetDueForExpiry returns unresolved challenges whose deadline is at or before now
func (r *challengeRepository) GetDueForExpiry(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT id
		FROM challenges
		WHERE status IN ('OPEN', 'PROOF_PENDING') AND deadline <= $1
		ORDER BY deadline ASC`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due challenges: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan due challenges: %w", err)
	}
	return ids, nil
}

// List returns challenges, optionally filtered by status, oldest first
func (r *challengeRepository) List(ctx context.Context, status *entities.ChallengeStatus) ([]*entities.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}

	challenges, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.Challenge])
	if err != nil {
		return nil, fmt.Errorf("failed to scan challenges: %w", err)
	}
	return challenges, nil
}

func (r *challengeRepository) getOne(ctx context.Context, query string, id int64) (*entities.Challenge, error) {
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	challenge, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.Challenge])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}
	return challenge, nil
}
