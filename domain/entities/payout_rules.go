package entities

import "fmt"

// BasisPointsDenominator is 100% expressed in basis points
const BasisPointsDenominator = 10000

// PenaltyPolicy decides where forfeited cash-out penalties end up
type PenaltyPolicy string

const (
	// PenaltyPolicyBurn keeps the penalty in custody, assigned to nobody
	PenaltyPolicyBurn PenaltyPolicy = "burn"
	// PenaltyPolicyWinners adds the penalty to the winning bettors' distributable amount
	PenaltyPolicyWinners PenaltyPolicy = "winners"
	// PenaltyPolicyTreasury keeps the penalty as protocol revenue
	PenaltyPolicyTreasury PenaltyPolicy = "treasury"
)

// PayoutRules are the split percentages applied when settling a challenge
type PayoutRules struct {
	BettorShareBps    int64
	CreatorFeeBps     int64
	CompleterShareBps int64
	CashOutPenaltyBps int64
	PenaltyPolicy     PenaltyPolicy
}

// DefaultPayoutRules is the 48/2/50 split with a 10% early-exit penalty
func DefaultPayoutRules() PayoutRules {
	return PayoutRules{
		BettorShareBps:    4800,
		CreatorFeeBps:     200,
		CompleterShareBps: 5000,
		CashOutPenaltyBps: 1000,
		PenaltyPolicy:     PenaltyPolicyBurn,
	}
}

// Validate ensures the shares of a resolved pool never exceed the pool
func (r PayoutRules) Validate() error {
	if r.BettorShareBps < 0 || r.CreatorFeeBps < 0 || r.CompleterShareBps < 0 {
		return fmt.Errorf("payout shares cannot be negative")
	}
	if sum := r.BettorShareBps + r.CreatorFeeBps + r.CompleterShareBps; sum != BasisPointsDenominator {
		return fmt.Errorf("payout shares must sum to %d basis points, got %d", BasisPointsDenominator, sum)
	}
	if r.CashOutPenaltyBps < 0 || r.CashOutPenaltyBps > BasisPointsDenominator {
		return fmt.Errorf("cash-out penalty must be between 0 and %d basis points", BasisPointsDenominator)
	}
	switch r.PenaltyPolicy {
	case PenaltyPolicyBurn, PenaltyPolicyWinners, PenaltyPolicyTreasury:
	default:
		return fmt.Errorf("unknown penalty policy %q", r.PenaltyPolicy)
	}
	return nil
}
