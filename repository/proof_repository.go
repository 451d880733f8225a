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

type proofRepository struct {
	q Queryable
}

// NewProofRepository creates a new proof repository
func NewProofRepository(db *database.DB) interfaces.ProofRepository {
	return &proofRepository{q: db.Pool}
}

func newProofRepositoryWithTx(tx Queryable) interfaces.ProofRepository {
	return &proofRepository{q: tx}
}

const proofColumns = `id, challenge_id, submitter_id, media_ref, is_winning_proof, created_at, accepted_at`

func (r *proofRepository) Create(ctx context.Context, proof *entities.ProofRecord) error {
	query := `
		INSERT INTO proofs (challenge_id, submitter_id, media_ref)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query, proof.ChallengeID, proof.SubmitterID, proof.MediaRef).
		Scan(&proof.ID, &proof.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create proof: %w", translateConstraint(err))
	}
	return nil
}

func (r *proofRepository) GetByID(ctx context.Context, id int64) (*entities.ProofRecord, error) {
	query := `SELECT ` + proofColumns + ` FROM proofs WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *proofRepository) GetByChallenge(ctx context.Context, challengeID int64) ([]*entities.ProofRecord, error) {
	query := `SELECT ` + proofColumns + ` FROM proofs WHERE challenge_id = $1 ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query proofs: %w", err)
	}

	proofs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.ProofRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan proofs: %w", err)
	}
	return proofs, nil
}

func (r *proofRepository) GetWinningProof(ctx context.Context, challengeID int64) (*entities.ProofRecord, error) {
	query := `SELECT ` + proofColumns + ` FROM proofs WHERE challenge_id = $1 AND is_winning_proof`
	return r.getOne(ctx, query, challengeID)
}

func (r *proofRepository) Update(ctx context.Context, proof *entities.ProofRecord) error {
	query := `
		UPDATE proofs
		SET is_winning_proof = $2, accepted_at = $3
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, proof.ID, proof.IsWinningProof, proof.AcceptedAt)
	if isUniqueViolation(err, "idx_proofs_single_winner") {
		return domain.ErrWrongStatus.WithMessage("challenge %d already has a winning proof", proof.ChallengeID).Wrap(err)
	}
	if err != nil {
		return fmt.Errorf("failed to update proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proof %d not found", proof.ID)
	}
	return nil
}

func (r *proofRepository) getOne(ctx context.Context, query string, arg any) (*entities.ProofRecord, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}

	proof, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.ProofRecord])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan proof: %w", err)
	}
	return proof, nil
}
