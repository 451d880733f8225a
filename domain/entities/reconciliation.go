package entities

import "time"

// ReconciliationReport compares what custody holds with what the ledger says it should hold.
// All amounts are in minor units.
type ReconciliationReport struct {
	GeneratedAt      time.Time `json:"generatedAt"`
	CustodianBalance int64     `json:"custodianBalance"`
	// PlacedStakes is the sum of stakes still counted in open pools
	PlacedStakes int64 `json:"placedStakes"`
	// UnpaidClaimable is what resolved challenges still owe to participants
	UnpaidClaimable int64 `json:"unpaidClaimable"`
	// ExpectedHeld is PlacedStakes plus UnpaidClaimable
	ExpectedHeld int64 `json:"expectedHeld"`
	// Retained is value that stays in custody but belongs to no participant
	Retained int64 `json:"retained"`
	// ProtocolRevenue is the part of Retained owed to the treasury. It is only
	// non-zero under the treasury penalty policy.
	ProtocolRevenue int64 `json:"protocolRevenue"`
	// Delta is CustodianBalance - ExpectedHeld - Retained
	Delta              int64                     `json:"delta"`
	Challenges         []ChallengeReconciliation `json:"challenges"`
	OutstandingIntents []IntentReconciliation    `json:"outstandingIntents"`
}

// IsBalanced reports whether custody and ledger agree and no intent is in doubt
func (r *ReconciliationReport) IsBalanced() bool {
	if r.Delta != 0 {
		return false
	}
	for _, intent := range r.OutstandingIntents {
		if intent.ExecutedButUnrecorded {
			return false
		}
	}
	for _, c := range r.Challenges {
		if c.Inconsistent {
			return false
		}
	}
	return true
}

// ChallengeReconciliation is the per-challenge part of a report
type ChallengeReconciliation struct {
	ChallengeID     int64           `json:"challengeId"`
	Status          ChallengeStatus `json:"status"`
	TotalPool       int64           `json:"totalPool"`
	PenaltyPool     int64           `json:"penaltyPool"`
	PlacedStakes    int64           `json:"placedStakes"`
	UnpaidClaimable int64           `json:"unpaidClaimable"`
	Paid            int64           `json:"paid"`
	Retained        int64           `json:"retained"`
	ProtocolRevenue int64           `json:"protocolRevenue"`
	// Inconsistent is set when stored pools disagree with the bets that make them up
	Inconsistent bool   `json:"inconsistent"`
	Note         string `json:"note,omitempty"`
}

// IntentReconciliation annotates an outstanding payout intent with the custodian's view
type IntentReconciliation struct {
	ClaimID               int64             `json:"claimId"`
	ChallengeID           int64             `json:"challengeId"`
	ParticipantID         string            `json:"participant"`
	Role                  PayoutRole        `json:"role"`
	Amount                int64             `json:"amount"`
	Status                PayoutClaimStatus `json:"status"`
	CustodianState        TransferState     `json:"custodianState"`
	ExecutedButUnrecorded bool              `json:"executedButUnrecorded"`
	CheckError            string            `json:"checkError,omitempty"`
}
