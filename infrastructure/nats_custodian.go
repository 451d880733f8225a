package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Reply codes sent by the custodian service
const (
	custodianCodeRejected = "REJECTED"
	custodianCodeNotFound = "NOT_FOUND"
)

// requester is the request/reply part of NATSClient
type requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// custodianReply is the envelope of every custodian response
type custodianReply struct {
	OK      bool                      `json:"ok"`
	Code    string                    `json:"code,omitempty"`
	Error   string                    `json:"error,omitempty"`
	Receipt *entities.TransferReceipt `json:"receipt,omitempty"`
	Status  *entities.TransferStatus  `json:"status,omitempty"`
	Deposit *entities.Deposit         `json:"deposit,omitempty"`
	Balance *int64                    `json:"balance,omitempty"`
}

type transferStatusRequest struct {
	IdempotencyKey string `json:"idempotencyKey"`
}

type verifyDepositRequest struct {
	TxRef  string `json:"txRef"`
	Sender string `json:"sender"`
	Amount int64  `json:"amount"`
}

// NATSCustodian talks to the custody service over NATS request/reply
type NATSCustodian struct {
	client          requester
	subjectPrefix   string
	timeout         time.Duration
	treasuryAddress string
}

// NewNATSCustodian creates a custodian client publishing under subjectPrefix
func NewNATSCustodian(client requester, subjectPrefix string, timeout time.Duration, treasuryAddress string) *NATSCustodian {
	return &NATSCustodian{
		client:          client,
		subjectPrefix:   subjectPrefix,
		timeout:         timeout,
		treasuryAddress: treasuryAddress,
	}
}

// ExecuteTransfer asks custody to send funds. Only an explicit rejection is
// reported as ErrTransferRejected; timeouts and transport errors leave the outcome unknown.
func (c *NATSCustodian) ExecuteTransfer(ctx context.Context, req entities.TransferRequest) (*entities.TransferReceipt, error) {
	reply, err := c.call(ctx, "transfer.execute", req)
	if err != nil {
		return nil, err
	}
	if !reply.OK {
		if reply.Code == custodianCodeRejected {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrTransferRejected, reply.Error)
		}
		return nil, fmt.Errorf("custodian error %s: %s", reply.Code, reply.Error)
	}
	if reply.Receipt == nil || reply.Receipt.Reference == "" {
		return nil, fmt.Errorf("custodian accepted transfer %s without a receipt", req.IdempotencyKey)
	}
	return reply.Receipt, nil
}

// TransferStatus asks custody what happened to the transfer with the given key
func (c *NATSCustodian) TransferStatus(ctx context.Context, idempotencyKey string) (*entities.TransferStatus, error) {
	reply, err := c.call(ctx, "transfer.status", transferStatusRequest{IdempotencyKey: idempotencyKey})
	if err != nil {
		return nil, err
	}
	if !reply.OK {
		if reply.Code == custodianCodeNotFound {
			return &entities.TransferStatus{State: entities.TransferStateNotFound}, nil
		}
		return nil, fmt.Errorf("custodian error %s: %s", reply.Code, reply.Error)
	}
	if reply.Status == nil {
		return nil, fmt.Errorf("custodian returned no status for %s", idempotencyKey)
	}
	return reply.Status, nil
}

// VerifyDeposit confirms that txRef moved amount from sender into custody
func (c *NATSCustodian) VerifyDeposit(ctx context.Context, txRef, sender string, amount int64) (*entities.Deposit, error) {
	reply, err := c.call(ctx, "deposit.verify", verifyDepositRequest{TxRef: txRef, Sender: sender, Amount: amount})
	if err != nil {
		return nil, err
	}
	if !reply.OK {
		if reply.Code == custodianCodeNotFound {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrDepositNotFound, txRef)
		}
		return nil, fmt.Errorf("custodian error %s: %s", reply.Code, reply.Error)
	}
	if reply.Deposit == nil {
		return nil, fmt.Errorf("custodian returned no deposit for %s", txRef)
	}
	return reply.Deposit, nil
}

// Balance returns the custody balance in native units
func (c *NATSCustodian) Balance(ctx context.Context) (int64, error) {
	reply, err := c.call(ctx, "balance", struct{}{})
	if err != nil {
		return 0, err
	}
	if !reply.OK || reply.Balance == nil {
		return 0, fmt.Errorf("custodian error %s: %s", reply.Code, reply.Error)
	}
	return *reply.Balance, nil
}

// TreasuryAddress is where participants send stakes
func (c *NATSCustodian) TreasuryAddress() string {
	return c.treasuryAddress
}

func (c *NATSCustodian) call(ctx context.Context, operation string, body any) (*custodianReply, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custodian request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	subject := c.subjectPrefix + "." + operation
	raw, err := c.client.Request(ctx, subject, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.WithField("subject", subject).Warn("Custodian request timed out")
		}
		return nil, fmt.Errorf("custodian %s: %w", operation, err)
	}

	var reply custodianReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode custodian reply: %w", err)
	}
	return &reply, nil
}

var _ interfaces.FundsCustodian = (*NATSCustodian)(nil)
