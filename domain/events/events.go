package events

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeChallengeCreated     EventType = "challenge_created"
	EventTypeChallengeStateChange EventType = "challenge_state_change"
	EventTypeBetPlaced            EventType = "bet_placed"
	EventTypeProofSubmitted       EventType = "proof_submitted"
	EventTypePayoutCommitted      EventType = "payout_committed"
	EventTypePayoutReleased       EventType = "payout_released"
	EventTypePayoutUnknown        EventType = "payout_unknown"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ChallengeCreatedEvent is emitted when a new challenge opens for bets
type ChallengeCreatedEvent struct {
	ChallengeID int64  `json:"challengeId"`
	CreatorID   string `json:"creatorId"`
	MinBet      int64  `json:"minBet"`
	DeadlineMs  int64  `json:"deadlineMs"`
}

func (e ChallengeCreatedEvent) Type() EventType {
	return EventTypeChallengeCreated
}

// ChallengeStateChangeEvent represents a lifecycle transition
type ChallengeStateChangeEvent struct {
	ChallengeID int64   `json:"challengeId"`
	OldStatus   string  `json:"oldStatus"`
	NewStatus   string  `json:"newStatus"`
	WinningSide *string `json:"winningSide,omitempty"`
	TotalPool   int64   `json:"totalPool"`
}

func (e ChallengeStateChangeEvent) Type() EventType {
	return EventTypeChallengeStateChange
}

// BetPlacedEvent represents a stake entering a pool
type BetPlacedEvent struct {
	ChallengeID int64  `json:"challengeId"`
	BetID       int64  `json:"betId"`
	BettorID    string `json:"bettorId"`
	Side        string `json:"side"`
	Amount      int64  `json:"amount"`
	TotalPool   int64  `json:"totalPool"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// ProofSubmittedEvent represents a new proof awaiting arbitration
type ProofSubmittedEvent struct {
	ChallengeID int64  `json:"challengeId"`
	ProofID     int64  `json:"proofId"`
	SubmitterID string `json:"submitterId"`
}

func (e ProofSubmittedEvent) Type() EventType {
	return EventTypeProofSubmitted
}

// PayoutCommittedEvent represents a transfer recorded in the ledger
type PayoutCommittedEvent struct {
	ClaimID       int64  `json:"claimId"`
	ChallengeID   int64  `json:"challengeId"`
	ParticipantID string `json:"participantId"`
	Role          string `json:"role"`
	Amount        int64  `json:"amount"`
	ReceiptRef    string `json:"receiptRef"`
}

func (e PayoutCommittedEvent) Type() EventType {
	return EventTypePayoutCommitted
}

// PayoutReleasedEvent represents an intent abandoned after a definite transfer failure
type PayoutReleasedEvent struct {
	ClaimID       int64  `json:"claimId"`
	ChallengeID   int64  `json:"challengeId"`
	ParticipantID string `json:"participantId"`
	Role          string `json:"role"`
	Reason        string `json:"reason"`
}

func (e PayoutReleasedEvent) Type() EventType {
	return EventTypePayoutReleased
}

// PayoutUnknownEvent represents a transfer whose outcome must be checked later
type PayoutUnknownEvent struct {
	ClaimID       int64  `json:"claimId"`
	ChallengeID   int64  `json:"challengeId"`
	ParticipantID string `json:"participantId"`
	Role          string `json:"role"`
	Amount        int64  `json:"amount"`
	Reason        string `json:"reason"`
}

func (e PayoutUnknownEvent) Type() EventType {
	return EventTypePayoutUnknown
}
