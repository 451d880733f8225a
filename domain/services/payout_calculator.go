package services

import (
	"dareledger/domain"
	"dareledger/domain/entities"

	"github.com/shopspring/decimal"
)

var bpsDenominator = decimal.NewFromInt(entities.BasisPointsDenominator)

// PayoutCalculator applies the payout rules to a challenge. All results are in
// minor units, floored.
type PayoutCalculator struct {
	rules       entities.PayoutRules
	nativeScale int64
}

// NewPayoutCalculator creates a calculator. nativeScale is the number of custodian
// native units per minor unit.
func NewPayoutCalculator(rules entities.PayoutRules, nativeScale int64) *PayoutCalculator {
	if nativeScale <= 0 {
		nativeScale = 1
	}
	return &PayoutCalculator{rules: rules, nativeScale: nativeScale}
}

// Rules returns the rules the calculator applies
func (c *PayoutCalculator) Rules() entities.PayoutRules {
	return c.rules
}

// CashOutRefund is what a bettor receives for exiting early with stake amount
func (c *PayoutCalculator) CashOutRefund(amount int64) int64 {
	keep := entities.BasisPointsDenominator - c.rules.CashOutPenaltyBps
	return floorDiv(decimal.NewFromInt(amount).Mul(decimal.NewFromInt(keep)), bpsDenominator)
}

// CashOutPenalty is the part of amount forfeited on early exit
func (c *PayoutCalculator) CashOutPenalty(amount int64) int64 {
	return amount - c.CashOutRefund(amount)
}

// Winnings is the payout for stake on the winning side of a resolved challenge
func (c *PayoutCalculator) Winnings(ch *entities.Challenge, stake int64) (int64, error) {
	winningPool := ch.WinningPool()
	if winningPool <= 0 {
		return 0, domain.ErrEmptyPool
	}

	stakeD := decimal.NewFromInt(stake)
	numerator := decimal.NewFromInt(ch.TotalPool).
		Mul(decimal.NewFromInt(c.rules.BettorShareBps)).
		Mul(stakeD)

	// Under the winners policy forfeited penalties are shared like the pool
	if c.rules.PenaltyPolicy == entities.PenaltyPolicyWinners && ch.PenaltyPool > 0 {
		numerator = numerator.Add(decimal.NewFromInt(ch.PenaltyPool).Mul(bpsDenominator).Mul(stakeD))
	}

	denominator := bpsDenominator.Mul(decimal.NewFromInt(winningPool))
	return floorDiv(numerator, denominator), nil
}

// CreatorFee is the creator's share of a resolved challenge
func (c *PayoutCalculator) CreatorFee(ch *entities.Challenge) int64 {
	return c.share(ch.TotalPool, c.rules.CreatorFeeBps)
}

// CompleterReward is the share paid to the submitter of the winning proof
func (c *PayoutCalculator) CompleterReward(ch *entities.Challenge) int64 {
	return c.share(ch.TotalPool, c.rules.CompleterShareBps)
}

// BettorShare is the total amount distributable to winning bettors
func (c *PayoutCalculator) BettorShare(ch *entities.Challenge) int64 {
	total := c.share(ch.TotalPool, c.rules.BettorShareBps)
	if c.rules.PenaltyPolicy == entities.PenaltyPolicyWinners {
		total += ch.PenaltyPool
	}
	return total
}

// ToNative converts minor units to custodian native units
func (c *PayoutCalculator) ToNative(amount int64) int64 {
	return amount * c.nativeScale
}

// FromNative converts custodian native units to minor units, flooring
func (c *PayoutCalculator) FromNative(native int64) int64 {
	return floorDiv(decimal.NewFromInt(native), decimal.NewFromInt(c.nativeScale))
}

func (c *PayoutCalculator) share(amount, bps int64) int64 {
	return floorDiv(decimal.NewFromInt(amount).Mul(decimal.NewFromInt(bps)), bpsDenominator)
}

func floorDiv(numerator, denominator decimal.Decimal) int64 {
	q, _ := numerator.QuoRem(denominator, 0)
	if numerator.Sign()*denominator.Sign() < 0 && !numerator.Mod(denominator).IsZero() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.IntPart()
}
