package entities

import (
	"time"
)

// BetSide is the outcome a bettor stakes on
type BetSide string

const (
	BetSideWillDo BetSide = "WILL_DO"
	BetSideWontDo BetSide = "WONT_DO"
)

// Valid reports whether s is a known side
func (s BetSide) Valid() bool {
	return s == BetSideWillDo || s == BetSideWontDo
}

// BetStatus is the stored state of a bet. LOST is derived, never persisted.
type BetStatus string

const (
	BetStatusPlaced    BetStatus = "PLACED"
	BetStatusCashedOut BetStatus = "CASHED_OUT"
	BetStatusWon       BetStatus = "WON"
	BetStatusLost      BetStatus = "LOST"
)

// Bet is a single stake on one side of a challenge
type Bet struct {
	ID               int64     `db:"id"`
	ChallengeID      int64     `db:"challenge_id"`
	BettorID         string    `db:"bettor_id"`
	Side             BetSide   `db:"side"`
	Amount           int64     `db:"amount"`
	Status           BetStatus `db:"status"`
	IsClaimed        bool      `db:"is_claimed"`
	PayoutReceiptRef *string   `db:"payout_receipt_ref"`
	FundingTxRef     *string   `db:"funding_tx_ref"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// IsActive reports whether the stake still counts in the pools
func (b *Bet) IsActive() bool {
	return b.Status == BetStatusPlaced
}

// IsWinner reports whether the bet is an unclaimed stake on the winning side
func (b *Bet) IsWinner(winningSide *BetSide) bool {
	return winningSide != nil && b.IsActive() && b.Side == *winningSide
}

// EffectiveStatus derives the externally visible status, including LOST
func (b *Bet) EffectiveStatus(winningSide *BetSide) BetStatus {
	if b.Status != BetStatusPlaced || winningSide == nil {
		return b.Status
	}
	if b.Side != *winningSide {
		return BetStatusLost
	}
	return BetStatusPlaced
}

// MarkCashedOut takes the bet out of the pools
func (b *Bet) MarkCashedOut(receiptRef string) {
	b.Status = BetStatusCashedOut
	b.PayoutReceiptRef = &receiptRef
}

// MarkWon records the winnings payout for the bet
func (b *Bet) MarkWon(receiptRef string) {
	b.Status = BetStatusWon
	b.IsClaimed = true
	b.PayoutReceiptRef = &receiptRef
}

// SumAmounts totals the stake of the given bets
func SumAmounts(bets []*Bet) int64 {
	var total int64
	for _, b := range bets {
		total += b.Amount
	}
	return total
}
