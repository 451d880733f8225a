package entities

import "time"

// ProofRecord is evidence submitted that a challenge was completed
type ProofRecord struct {
	ID             int64      `db:"id"`
	ChallengeID    int64      `db:"challenge_id"`
	SubmitterID    string     `db:"submitter_id"`
	MediaRef       string     `db:"media_ref"`
	IsWinningProof bool       `db:"is_winning_proof"`
	CreatedAt      time.Time  `db:"created_at"`
	AcceptedAt     *time.Time `db:"accepted_at"`
}
