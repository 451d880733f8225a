package entities

import (
	"fmt"
	"time"
)

// CurrentSchemaVersion is stamped on every challenge row written by this build
const CurrentSchemaVersion = 1

// ChallengeStatus represents the lifecycle state of a challenge
type ChallengeStatus string

const (
	ChallengeStatusOpen         ChallengeStatus = "OPEN"
	ChallengeStatusProofPending ChallengeStatus = "PROOF_PENDING"
	ChallengeStatusCompleted    ChallengeStatus = "COMPLETED"
	ChallengeStatusExpired      ChallengeStatus = "EXPIRED"
)

// IsTerminal reports whether no further transitions are possible
func (s ChallengeStatus) IsTerminal() bool {
	return s == ChallengeStatusCompleted || s == ChallengeStatusExpired
}

// Valid reports whether s is a known status
func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengeStatusOpen, ChallengeStatusProofPending, ChallengeStatusCompleted, ChallengeStatusExpired:
		return true
	}
	return false
}

// allowedTransitions is the full lifecycle graph; anything absent is illegal
var allowedTransitions = map[ChallengeStatus][]ChallengeStatus{
	ChallengeStatusOpen:         {ChallengeStatusProofPending, ChallengeStatusExpired},
	ChallengeStatusProofPending: {ChallengeStatusCompleted, ChallengeStatusExpired},
}

// Challenge is a binary-outcome dare with two opposing stake pools
type Challenge struct {
	ID                  int64           `db:"id"`
	CreatorID           string          `db:"creator_id"`
	Title               string          `db:"title"`
	Deadline            time.Time       `db:"deadline"`
	MinBet              int64           `db:"min_bet"`
	Status              ChallengeStatus `db:"status"`
	WillDoPool          int64           `db:"will_do_pool"`
	WontDoPool          int64           `db:"wont_do_pool"`
	TotalPool           int64           `db:"total_pool"`
	PenaltyPool         int64           `db:"penalty_pool"`
	WinningSide         *BetSide        `db:"winning_side"`
	CreatorFeeClaimed   bool            `db:"creator_fee_claimed"`
	CompleterFeeClaimed bool            `db:"completer_fee_claimed"`
	SchemaVersion       int             `db:"schema_version"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
	ResolvedAt          *time.Time      `db:"resolved_at"`
}

// IsResolved reports whether the outcome has been fixed
func (c *Challenge) IsResolved() bool {
	return c.Status.IsTerminal()
}

// CanAcceptBets reports whether a new stake may be placed at now
func (c *Challenge) CanAcceptBets(now time.Time) bool {
	return c.Status == ChallengeStatusOpen && now.Before(c.Deadline)
}

// CashOutCutoff returns the last instant (exclusive) at which a cash-out is allowed
func (c *Challenge) CashOutCutoff(window time.Duration) time.Time {
	return c.Deadline.Add(-window)
}

// IsPastDeadline reports whether now is at or after the deadline
func (c *Challenge) IsPastDeadline(now time.Time) bool {
	return !now.Before(c.Deadline)
}

// CanTransitionTo reports whether next is a legal successor of the current status
func (c *Challenge) CanTransitionTo(next ChallengeStatus) bool {
	for _, s := range allowedTransitions[c.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the challenge to next, fixing the winning side for terminal states
func (c *Challenge) TransitionTo(next ChallengeStatus, now time.Time) error {
	if !c.CanTransitionTo(next) {
		return fmt.Errorf("illegal transition %s -> %s", c.Status, next)
	}

	c.Status = next
	if next.IsTerminal() {
		side := WinningSideFor(next)
		c.WinningSide = &side
		resolvedAt := now
		c.ResolvedAt = &resolvedAt
	}
	return nil
}

// WinningSideFor maps a terminal status to the side that won
func WinningSideFor(status ChallengeStatus) BetSide {
	if status == ChallengeStatusCompleted {
		return BetSideWillDo
	}
	return BetSideWontDo
}

// PoolFor returns the pool size for one side
func (c *Challenge) PoolFor(side BetSide) int64 {
	if side == BetSideWillDo {
		return c.WillDoPool
	}
	return c.WontDoPool
}

// WinningPool returns the pool of the winning side, or zero if unresolved
func (c *Challenge) WinningPool() int64 {
	if c.WinningSide == nil {
		return 0
	}
	return c.PoolFor(*c.WinningSide)
}

// AddStake credits amount to side and to the total pool
func (c *Challenge) AddStake(side BetSide, amount int64) {
	if side == BetSideWillDo {
		c.WillDoPool += amount
	} else {
		c.WontDoPool += amount
	}
	c.TotalPool += amount
}

// RemoveStake debits amount from side and the total pool; pools never go negative
func (c *Challenge) RemoveStake(side BetSide, amount int64) error {
	if amount > c.PoolFor(side) || amount > c.TotalPool {
		return fmt.Errorf("removing %d from %s pool of %d would make it negative", amount, side, c.PoolFor(side))
	}
	if side == BetSideWillDo {
		c.WillDoPool -= amount
	} else {
		c.WontDoPool -= amount
	}
	c.TotalPool -= amount
	return nil
}

// CheckInvariants verifies pool arithmetic; a failure means the ledger is corrupt
func (c *Challenge) CheckInvariants() error {
	if c.WillDoPool < 0 || c.WontDoPool < 0 || c.TotalPool < 0 || c.PenaltyPool < 0 {
		return fmt.Errorf("challenge %d has a negative pool", c.ID)
	}
	if c.TotalPool != c.WillDoPool+c.WontDoPool {
		return fmt.Errorf("challenge %d total pool %d != %d + %d", c.ID, c.TotalPool, c.WillDoPool, c.WontDoPool)
	}
	if c.IsResolved() != (c.WinningSide != nil) {
		return fmt.Errorf("challenge %d winning side inconsistent with status %s", c.ID, c.Status)
	}
	return nil
}
