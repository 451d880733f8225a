package entities

import "time"

// PayoutRole identifies why value is paid out of a challenge
type PayoutRole string

const (
	PayoutRoleBettorWinnings     PayoutRole = "bettor_winnings"
	PayoutRoleCreatorFee         PayoutRole = "creator_fee"
	PayoutRoleCompleterReward    PayoutRole = "completer_reward"
	PayoutRoleEarlyCashOutRefund PayoutRole = "early_cashout_refund"
)

// PayoutClaimStatus tracks a claim through the two-phase transfer protocol
type PayoutClaimStatus string

const (
	// PayoutClaimStatusReserved means the intent is recorded and the transfer may be in flight
	PayoutClaimStatusReserved PayoutClaimStatus = "RESERVED"
	// PayoutClaimStatusUnknown means the custodian call ended without a definite answer
	PayoutClaimStatusUnknown PayoutClaimStatus = "UNKNOWN"
	// PayoutClaimStatusCommitted means the transfer succeeded and the ledger reflects it
	PayoutClaimStatusCommitted PayoutClaimStatus = "COMMITTED"
	// PayoutClaimStatusReleased means the transfer definitely did not happen
	PayoutClaimStatusReleased PayoutClaimStatus = "RELEASED"
)

// PayoutClaim is the durable record of one payout for (challenge, participant, role)
type PayoutClaim struct {
	ID             int64             `db:"id"`
	ChallengeID    int64             `db:"challenge_id"`
	ParticipantID  string            `db:"participant_id"`
	Role           PayoutRole        `db:"role"`
	BetID          *int64            `db:"bet_id"`
	Amount         int64             `db:"amount"`
	NativeAmount   int64             `db:"native_amount"`
	IdempotencyKey string            `db:"idempotency_key"`
	Status         PayoutClaimStatus `db:"status"`
	ReceiptRef     *string           `db:"receipt_ref"`
	Attempts       int               `db:"attempts"`
	LastError      *string           `db:"last_error"`
	CreatedAt      time.Time         `db:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"`
	CommittedAt    *time.Time        `db:"committed_at"`
}

// IsOutstanding reports whether the claim still awaits a definite outcome
func (c *PayoutClaim) IsOutstanding() bool {
	return c.Status == PayoutClaimStatusReserved || c.Status == PayoutClaimStatusUnknown
}

// IsCommitted reports whether the payout has been recorded as sent
func (c *PayoutClaim) IsCommitted() bool {
	return c.Status == PayoutClaimStatusCommitted
}

// Commit records a successful transfer
func (c *PayoutClaim) Commit(receiptRef string, at time.Time) {
	c.Status = PayoutClaimStatusCommitted
	c.ReceiptRef = &receiptRef
	c.CommittedAt = &at
	c.LastError = nil
}

// Release records a transfer that definitely did not happen
func (c *PayoutClaim) Release(reason string) {
	c.Status = PayoutClaimStatusReleased
	c.LastError = &reason
}

// MarkUnknown records a transfer whose outcome could not be observed
func (c *PayoutClaim) MarkUnknown(reason string) {
	c.Status = PayoutClaimStatusUnknown
	c.LastError = &reason
}

// PayoutReceipt is returned to a participant after a successful payout
type PayoutReceipt struct {
	ClaimID       int64      `json:"claimId"`
	ChallengeID   int64      `json:"challengeId"`
	ParticipantID string     `json:"participant"`
	Role          PayoutRole `json:"role"`
	Amount        int64      `json:"amount"`
	NativeAmount  int64      `json:"nativeAmount"`
	ReceiptRef    string     `json:"receiptRef"`
	CommittedAt   time.Time  `json:"committedAt"`
}

// ReceiptFor builds the participant-facing receipt of a committed claim
func ReceiptFor(c *PayoutClaim) *PayoutReceipt {
	r := &PayoutReceipt{
		ClaimID:       c.ID,
		ChallengeID:   c.ChallengeID,
		ParticipantID: c.ParticipantID,
		Role:          c.Role,
		Amount:        c.Amount,
		NativeAmount:  c.NativeAmount,
	}
	if c.ReceiptRef != nil {
		r.ReceiptRef = *c.ReceiptRef
	}
	if c.CommittedAt != nil {
		r.CommittedAt = *c.CommittedAt
	}
	return r
}
