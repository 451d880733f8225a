package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dareledger/database"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type payoutClaimRepository struct {
	q Queryable
}

// NewPayoutClaimRepository creates a new payout claim repository
func NewPayoutClaimRepository(db *database.DB) interfaces.PayoutClaimRepository {
	return &payoutClaimRepository{q: db.Pool}
}

func newPayoutClaimRepositoryWithTx(tx Queryable) interfaces.PayoutClaimRepository {
	return &payoutClaimRepository{q: tx}
}

const claimColumns = `
	id, challenge_id, participant_id, role, bet_id, amount, native_amount,
	idempotency_key, status, receipt_ref, attempts, last_error,
	created_at, updated_at, committed_at`

// Create inserts a RESERVED claim. A second live claim for the same key is
// reported as ErrClaimInProgress.
func (r *payoutClaimRepository) Create(ctx context.Context, claim *entities.PayoutClaim) error {
	query := `
		INSERT INTO payout_claims (challenge_id, participant_id, role, bet_id, amount, native_amount, idempotency_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, attempts, created_at, updated_at`

	err := r.q.QueryRow(ctx, query,
		claim.ChallengeID,
		claim.ParticipantID,
		claim.Role,
		claim.BetID,
		claim.Amount,
		claim.NativeAmount,
		claim.IdempotencyKey,
		claim.Status,
	).Scan(&claim.ID, &claim.Attempts, &claim.CreatedAt, &claim.UpdatedAt)
	if isUniqueViolation(err, "idx_payout_claims_active") {
		return domain.ErrClaimInProgress.Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("failed to create payout claim: %w", translateConstraint(err))
	}

	return nil
}

func (r *payoutClaimRepository) GetByID(ctx context.Context, id int64) (*entities.PayoutClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM payout_claims WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetActive returns the live (not released) claim for the key, if any
func (r *payoutClaimRepository) GetActive(ctx context.Context, challengeID int64, participantID string, role entities.PayoutRole, betID *int64) (*entities.PayoutClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM payout_claims
		WHERE challenge_id = $1
		  AND participant_id = $2
		  AND role = $3
		  AND COALESCE(bet_id, 0) = COALESCE($4::BIGINT, 0)
		  AND status <> 'RELEASED'`
	return r.getOne(ctx, query, challengeID, participantID, role, betID)
}

func (r *payoutClaimRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.PayoutClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM payout_claims WHERE challenge_id = $1 ORDER BY id ASC`
	return r.list(ctx, query, challengeID)
}

// GetOutstanding returns RESERVED and UNKNOWN claims last touched before olderThan
func (r *payoutClaimRepository) GetOutstanding(ctx context.Context, olderThan time.Time) ([]*entities.PayoutClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM payout_claims
		WHERE status IN ('RESERVED', 'UNKNOWN') AND updated_at <= $1
		ORDER BY updated_at ASC`
	return r.list(ctx, query, olderThan)
}

func (r *payoutClaimRepository) Update(ctx context.Context, claim *entities.PayoutClaim) error {
	query := `
		UPDATE payout_claims
		SET status = $2,
		    receipt_ref = $3,
		    attempts = $4,
		    last_error = $5,
		    committed_at = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		claim.ID,
		claim.Status,
		claim.ReceiptRef,
		claim.Attempts,
		claim.LastError,
		claim.CommittedAt,
	).Scan(&claim.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("payout claim %d not found", claim.ID)
	}
	if isUniqueViolation(err, "idx_payout_claims_active") {
		return domain.ErrClaimInProgress.Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("failed to update payout claim: %w", translateConstraint(err))
	}

	return nil
}

func (r *payoutClaimRepository) getOne(ctx context.Context, query string, args ...any) (*entities.PayoutClaim, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get payout claim: %w", err)
	}

	claim, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.PayoutClaim])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan payout claim: %w", err)
	}
	return claim, nil
}

func (r *payoutClaimRepository) list(ctx context.Context, query string, args ...any) ([]*entities.PayoutClaim, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payout claims: %w", err)
	}

	claims, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.PayoutClaim])
	if err != nil {
		return nil, fmt.Errorf("failed to scan payout claims: %w", err)
	}
	return claims, nil
}
