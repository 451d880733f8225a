package services

import (
	"fmt"
	"sort"
	"time"

	"dareledger/domain/entities"
)

// ReconciliationInput is a consistent snapshot of the ledger plus the custodian balance
type ReconciliationInput struct {
	GeneratedAt time.Time
	// CustodianBalance is in native units
	CustodianBalance int64
	Challenges       []*entities.Challenge
	Bets             map[int64][]*entities.Bet
	Claims           map[int64][]*entities.PayoutClaim
	Intents          []entities.IntentReconciliation
}

// BuildReconciliationReport compares what custody holds with what the ledger owes.
// Custody should hold every stake still counted in a pool, every settlement share
// not yet paid, and whatever the rules retain.
func BuildReconciliationReport(input ReconciliationInput, calc *PayoutCalculator) *entities.ReconciliationReport {
	report := &entities.ReconciliationReport{
		GeneratedAt:        input.GeneratedAt,
		CustodianBalance:   calc.FromNative(input.CustodianBalance),
		Challenges:         make([]entities.ChallengeReconciliation, 0, len(input.Challenges)),
		OutstandingIntents: input.Intents,
	}
	if report.OutstandingIntents == nil {
		report.OutstandingIntents = []entities.IntentReconciliation{}
	}

	challenges := append([]*entities.Challenge(nil), input.Challenges...)
	sort.Slice(challenges, func(i, j int) bool { return challenges[i].ID < challenges[j].ID })

	for _, ch := range challenges {
		line := reconcileChallenge(ch, input.Bets[ch.ID], input.Claims[ch.ID], calc)
		report.PlacedStakes += line.PlacedStakes
		report.UnpaidClaimable += line.UnpaidClaimable
		report.Retained += line.Retained
		report.ProtocolRevenue += line.ProtocolRevenue
		report.Challenges = append(report.Challenges, line)
	}

	report.ExpectedHeld = report.PlacedStakes + report.UnpaidClaimable
	report.Delta = report.CustodianBalance - report.ExpectedHeld - report.Retained
	return report
}

func reconcileChallenge(ch *entities.Challenge, bets []*entities.Bet, claims []*entities.PayoutClaim, calc *PayoutCalculator) entities.ChallengeReconciliation {
	line := entities.ChallengeReconciliation{
		ChallengeID: ch.ID,
		Status:      ch.Status,
		TotalPool:   ch.TotalPool,
		PenaltyPool: ch.PenaltyPool,
	}
	// Forfeited penalties stay in custody either way; under treasury they are owed to the protocol
	if calc.Rules().PenaltyPolicy == entities.PenaltyPolicyTreasury {
		line.ProtocolRevenue = ch.PenaltyPool
	}

	// Stakes that still make up the pools: placed bets, plus winners already paid once resolved
	var willDo, wontDo int64
	for _, bet := range bets {
		if bet.Status == entities.BetStatusCashedOut {
			continue
		}
		if bet.Side == entities.BetSideWillDo {
			willDo += bet.Amount
		} else {
			wontDo += bet.Amount
		}
	}
	if willDo != ch.WillDoPool || wontDo != ch.WontDoPool || ch.TotalPool != ch.WillDoPool+ch.WontDoPool {
		line.Inconsistent = true
		line.Note = fmt.Sprintf("pools %d/%d do not match bets %d/%d", ch.WillDoPool, ch.WontDoPool, willDo, wontDo)
	}

	var settlementPaid int64
	for _, claim := range claims {
		if !claim.IsCommitted() {
			continue
		}
		line.Paid += claim.Amount
		if claim.Role != entities.PayoutRoleEarlyCashOutRefund {
			settlementPaid += claim.Amount
		}
	}

	if !ch.IsResolved() {
		line.PlacedStakes = ch.TotalPool
		line.Retained = ch.PenaltyPool
		return line
	}

	line.UnpaidClaimable = unpaidEntitlements(ch, bets, calc)
	line.Retained = ch.TotalPool + ch.PenaltyPool - settlementPaid - line.UnpaidClaimable
	if line.Retained < 0 {
		line.Inconsistent = true
		line.Note = fmt.Sprintf("paid %d exceeds what the challenge held", settlementPaid)
	}
	return line
}

// unpaidEntitlements totals every settlement share of a resolved challenge not yet committed
func unpaidEntitlements(ch *entities.Challenge, bets []*entities.Bet, calc *PayoutCalculator) int64 {
	var owed int64

	stakes := make(map[string]int64)
	for _, bet := range bets {
		if bet.IsWinner(ch.WinningSide) {
			stakes[bet.BettorID] += bet.Amount
		}
	}
	for _, stake := range stakes {
		if amount, err := calc.Winnings(ch, stake); err == nil {
			owed += amount
		}
	}

	if !ch.CreatorFeeClaimed && ch.TotalPool > 0 {
		owed += calc.CreatorFee(ch)
	}
	if ch.Status == entities.ChallengeStatusCompleted && !ch.CompleterFeeClaimed && ch.TotalPool > 0 {
		owed += calc.CompleterReward(ch)
	}
	return owed
}

// AnnotateIntent records the custodian's view of an outstanding claim
func AnnotateIntent(claim *entities.PayoutClaim, status *entities.TransferStatus, checkErr error) entities.IntentReconciliation {
	intent := entities.IntentReconciliation{
		ClaimID:       claim.ID,
		ChallengeID:   claim.ChallengeID,
		ParticipantID: claim.ParticipantID,
		Role:          claim.Role,
		Amount:        claim.Amount,
		Status:        claim.Status,
	}
	if checkErr != nil {
		intent.CheckError = checkErr.Error()
		return intent
	}
	if status != nil {
		intent.CustodianState = status.State
		intent.ExecutedButUnrecorded = status.State == entities.TransferStateCompleted
	}
	return intent
}
