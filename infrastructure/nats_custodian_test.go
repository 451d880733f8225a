package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	args := m.Called(ctx, subject, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func encodeReply(t *testing.T, r custodianReply) []byte {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return data
}

func TestNATSCustodian_ExecuteTransfer(t *testing.T) {
	ctx := context.Background()
	executedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		reply        []byte
		requestErr   error
		wantRejected bool
		wantErr      bool
	}{
		{
			name:  "success",
			reply: encodeReply(t, custodianReply{OK: true, Receipt: &entities.TransferReceipt{Reference: "sig-1", IdempotencyKey: "k", Amount: 5, ExecutedAt: executedAt}}),
		},
		{
			name:         "explicit rejection",
			reply:        encodeReply(t, custodianReply{OK: false, Code: custodianCodeRejected, Error: "insufficient funds"}),
			wantRejected: true,
			wantErr:      true,
		},
		{
			name:       "timeout is not a rejection",
			requestErr: context.DeadlineExceeded,
			wantErr:    true,
		},
		{
			name:    "other custodian error is not a rejection",
			reply:   encodeReply(t, custodianReply{OK: false, Code: "RPC_DOWN", Error: "upstream"}),
			wantErr: true,
		},
		{
			name:    "ok without receipt",
			reply:   encodeReply(t, custodianReply{OK: true}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requester := &MockRequester{}
			if tt.requestErr != nil {
				requester.On("Request", mock.Anything, "custodian.transfer.execute", mock.Anything).Return(nil, tt.requestErr)
			} else {
				requester.On("Request", mock.Anything, "custodian.transfer.execute", mock.Anything).Return(tt.reply, nil)
			}

			custodian := NewNATSCustodian(requester, "custodian", time.Second, "Treasury")
			receipt, err := custodian.ExecuteTransfer(ctx, entities.TransferRequest{IdempotencyKey: "k", Recipient: "alice", Amount: 5})

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantRejected, errors.Is(err, interfaces.ErrTransferRejected))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "sig-1", receipt.Reference)
			}
			requester.AssertExpectations(t)
		})
	}
}

func TestNATSCustodian_StatusAndDeposit(t *testing.T) {
	ctx := context.Background()
	requester := &MockRequester{}
	custodian := NewNATSCustodian(requester, "custodian", time.Second, "Treasury")

	requester.On("Request", mock.Anything, "custodian.transfer.status", mock.Anything).
		Return(encodeReply(t, custodianReply{OK: false, Code: custodianCodeNotFound}), nil).Once()
	status, err := custodian.TransferStatus(ctx, "k-unknown")
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStateNotFound, status.State)

	requester.On("Request", mock.Anything, "custodian.deposit.verify", mock.Anything).
		Return(encodeReply(t, custodianReply{OK: false, Code: custodianCodeNotFound}), nil).Once()
	_, err = custodian.VerifyDeposit(ctx, "tx-9", "alice", 10)
	assert.ErrorIs(t, err, interfaces.ErrDepositNotFound)

	balance := int64(12345)
	requester.On("Request", mock.Anything, "custodian.balance", mock.Anything).
		Return(encodeReply(t, custodianReply{OK: true, Balance: &balance}), nil).Once()
	got, err := custodian.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, balance, got)

	assert.Equal(t, "Treasury", custodian.TreasuryAddress())
	requester.AssertExpectations(t)
}
