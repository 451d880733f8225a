package entities

import "time"

// TransferRequest asks the custodian to move funds out of custody.
// Amount is in the custodian's native units.
type TransferRequest struct {
	IdempotencyKey string `json:"idempotencyKey"`
	Recipient      string `json:"recipient"`
	Amount         int64  `json:"amount"`
	Memo           string `json:"memo,omitempty"`
}

// TransferReceipt is the custodian's proof that a transfer executed
type TransferReceipt struct {
	Reference      string    `json:"reference"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Recipient      string    `json:"recipient"`
	Amount         int64     `json:"amount"`
	ExecutedAt     time.Time `json:"executedAt"`
}

// TransferState is the custodian's view of a transfer identified by idempotency key
type TransferState string

const (
	TransferStateCompleted TransferState = "COMPLETED"
	TransferStateFailed    TransferState = "FAILED"
	TransferStatePending   TransferState = "PENDING"
	TransferStateNotFound  TransferState = "NOT_FOUND"
)

// TransferStatus answers a follow-up status check
type TransferStatus struct {
	State   TransferState    `json:"state"`
	Receipt *TransferReceipt `json:"receipt,omitempty"`
}

// Deposit is a verified inbound transfer into custody
type Deposit struct {
	TxRef      string    `json:"txRef"`
	Sender     string    `json:"sender"`
	Amount     int64     `json:"amount"`
	ReceivedAt time.Time `json:"receivedAt"`
}
