package services

import (
	"errors"
	"testing"
	"time"

	"dareledger/domain"
	"dareledger/domain/interfaces"
	"dareledger/domain/testhelpers"

	"github.com/mr-tron/base58"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureAuthorizer_Authorize(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	signer := testhelpers.NewTestSigner(t)
	other := testhelpers.NewTestSigner(t)
	nowMs := now.UnixMilli()

	tests := []struct {
		name    string
		request func() interfaces.AuthorizationRequest
		wantErr error
	}{
		{
			name: "fresh valid signature",
			request: func() interfaces.AuthorizationRequest {
				return signer.Request(interfaces.ActionClaimWinnings, 42, nowMs-1000)
			},
		},
		{
			name: "exactly at the window edge is accepted",
			request: func() interfaces.AuthorizationRequest {
				return signer.Request(interfaces.ActionCashOut, 42, nowMs-(5*time.Minute).Milliseconds())
			},
		},
		{
			name: "one millisecond past the window is expired",
			request: func() interfaces.AuthorizationRequest {
				return signer.Request(interfaces.ActionCashOut, 42, nowMs-(5*time.Minute).Milliseconds()-1)
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "six minutes old is expired",
			request: func() interfaces.AuthorizationRequest {
				return signer.Request(interfaces.ActionClaimCreatorFee, 42, now.Add(-6*time.Minute).UnixMilli())
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "far future timestamp is expired",
			request: func() interfaces.AuthorizationRequest {
				return signer.Request(interfaces.ActionClaimCreatorFee, 42, now.Add(10*time.Minute).UnixMilli())
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "missing timestamp is expired",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionClaimWinnings, 42, nowMs)
				req.TimestampMs = 0
				return req
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "signature by another wallet",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionClaimWinnings, 42, nowMs)
				req.Signature = other.Sign(interfaces.ActionClaimWinnings, 42, nowMs)
				return req
			},
			wantErr: domain.ErrInvalidSignature,
		},
		{
			name: "signature for a different action",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionClaimWinnings, 42, nowMs)
				req.Action = interfaces.ActionClaimCompleterReward
				return req
			},
			wantErr: domain.ErrInvalidSignature,
		},
		{
			name: "signature for a different challenge",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionCashOut, 42, nowMs)
				req.ChallengeID = 43
				return req
			},
			wantErr: domain.ErrInvalidSignature,
		},
		{
			name: "malformed identity",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionCashOut, 42, nowMs)
				req.Identity = "not-base58-0OIl"
				return req
			},
			wantErr: domain.ErrInvalidSignature,
		},
		{
			name: "identity with wrong length",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionCashOut, 42, nowMs)
				req.Identity = base58.Encode([]byte("short"))
				return req
			},
			wantErr: domain.ErrInvalidSignature,
		},
		{
			name: "truncated signature",
			request: func() interfaces.AuthorizationRequest {
				req := signer.Request(interfaces.ActionCashOut, 42, nowMs)
				req.Signature = req.Signature[:20]
				return req
			},
			wantErr: domain.ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewMock()
			clk.Set(now)

			authorizer, err := NewSignatureAuthorizer(clk, 5*time.Minute, 16)
			require.NoError(t, err)

			err = authorizer.Authorize(tt.request())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSignatureAuthorizer_ReplayRejectedOnceStale(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewMock()
	clk.Set(now)

	authorizer, err := NewSignatureAuthorizer(clk, 5*time.Minute, 16)
	require.NoError(t, err)

	signer := testhelpers.NewTestSigner(t)
	req := signer.Request(interfaces.ActionClaimWinnings, 7, now.UnixMilli())

	require.NoError(t, authorizer.Authorize(req))

	clk.Add(5*time.Minute + time.Second)
	err = authorizer.Authorize(req)
	assert.True(t, errors.Is(err, domain.ErrExpired))
}

func TestAuthorizationRequest_Message(t *testing.T) {
	req := interfaces.AuthorizationRequest{Action: interfaces.ActionClaimWinnings, ChallengeID: 12, TimestampMs: 1700000000000}
	assert.Equal(t, "ClaimWinnings:12:1700000000000", req.Message())
}
