package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dareledger/application"
	"dareledger/domain"
	"dareledger/domain/entities"
	"dareledger/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "operator-secret"

type testServer struct {
	server     *Server
	challenges *MockChallengeService
	payouts    *MockPayoutService
	reporter   *MockReconciliationService
}

func newTestServer(t *testing.T) *testServer {
	ts := &testServer{
		challenges: &MockChallengeService{},
		payouts:    &MockPayoutService{},
		reporter:   &MockReconciliationService{},
	}
	ts.server = NewServer(ts.challenges, ts.payouts, ts.reporter, "TreasuryAddr", testAdminToken)
	t.Cleanup(func() {
		ts.challenges.AssertExpectations(t)
		ts.payouts.AssertExpectations(t)
		ts.reporter.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, admin bool) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}

	resp, err := ts.server.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodeError(t *testing.T, raw []byte) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestServer_CreateChallengeRequiresOperator(t *testing.T) {
	ts := newTestServer(t)
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	body := CreateChallengeRequest{Creator: "creator", Title: "Climb it", Deadline: deadline, MinBet: 100}

	resp, raw := ts.do(t, http.MethodPost, "/v1/challenges", body, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, domain.ErrUnauthorized.Code, decodeError(t, raw).Code)

	ts.challenges.On("CreateChallenge", mock.Anything, interfaces.CreateChallengeRequest{
		CreatorID: "creator",
		Title:     "Climb it",
		Deadline:  deadline,
		MinBet:    100,
	}).Return(&entities.Challenge{ID: 7, CreatorID: "creator", Title: "Climb it", Deadline: deadline, MinBet: 100, Status: entities.ChallengeStatusOpen}, nil)

	resp, raw = ts.do(t, http.MethodPost, "/v1/challenges", body, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created ChallengeResponse
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, int64(7), created.ID)
	assert.Equal(t, "OPEN", created.Status)
}

func TestServer_ValidatesRequestBodies(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"bet with unknown side", "/v1/challenges/1/bets", map[string]any{"bettor": "a", "side": "MAYBE", "amount": 100}},
		{"bet with zero amount", "/v1/challenges/1/bets", map[string]any{"bettor": "a", "side": "WILL_DO", "amount": 0}},
		{"claim without signature", "/v1/challenges/1/claims/winnings", map[string]any{"participant": "a", "timestamp": 1}},
		{"cash-out without timestamp", "/v1/challenges/1/cashout", map[string]any{"bettor": "a", "signature": "sig"}},
		{"proof without media", "/v1/challenges/1/proofs", map[string]any{"submitter": "a"}},
		{"non-numeric challenge id", "/v1/challenges/abc/bets", map[string]any{"bettor": "a", "side": "WILL_DO", "amount": 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := ts.do(t, http.MethodPost, tt.path, tt.body, false)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, domain.ErrValidation.Code, decodeError(t, raw).Code)
		})
	}
}

func TestServer_PlaceBet(t *testing.T) {
	ts := newTestServer(t)
	txRef := "tx-9"

	ts.challenges.On("PlaceBet", mock.Anything, interfaces.PlaceBetRequest{
		ChallengeID:  3,
		BettorID:     "alice",
		Side:         entities.BetSideWontDo,
		Amount:       250,
		FundingTxRef: &txRef,
	}).Return(&entities.Bet{ID: 11, ChallengeID: 3, BettorID: "alice", Side: entities.BetSideWontDo, Amount: 250, Status: entities.BetStatusPlaced, FundingTxRef: &txRef}, nil)

	resp, raw := ts.do(t, http.MethodPost, "/v1/challenges/3/bets", PlaceBetRequest{
		Bettor: "alice", Side: "WONT_DO", Amount: 250, FundingTxRef: txRef,
	}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var bet BetResponse
	require.NoError(t, json.Unmarshal(raw, &bet))
	assert.Equal(t, int64(11), bet.ID)
	assert.Equal(t, "PLACED", bet.Status)
}

func TestServer_ClaimRoutes(t *testing.T) {
	ts := newTestServer(t)
	req := application.PayoutRequest{ChallengeID: 5, Participant: "alice", Signature: "sig", TimestampMs: 1700000000000}
	body := ClaimRequest{Participant: "alice", Signature: "sig", Timestamp: 1700000000000}

	ts.payouts.On("ClaimWinnings", mock.Anything, req).
		Return(&entities.PayoutReceipt{ClaimID: 1, ChallengeID: 5, Role: entities.PayoutRoleBettorWinnings, Amount: 960, ReceiptRef: "r-1"}, nil)
	ts.payouts.On("ClaimCreatorFee", mock.Anything, req).Return(nil, domain.ErrNotTheCreator)
	ts.payouts.On("ClaimCompleterReward", mock.Anything, req).Return(nil, domain.ErrAlreadyClaimed)

	resp, raw := ts.do(t, http.MethodPost, "/v1/challenges/5/claims/winnings", body, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var receipt entities.PayoutReceipt
	require.NoError(t, json.Unmarshal(raw, &receipt))
	assert.Equal(t, int64(960), receipt.Amount)
	assert.Equal(t, "r-1", receipt.ReceiptRef)

	resp, raw = ts.do(t, http.MethodPost, "/v1/challenges/5/claims/creator-fee", body, false)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "NOT_THE_CREATOR", decodeError(t, raw).Code)

	resp, raw = ts.do(t, http.MethodPost, "/v1/challenges/5/claims/completer-reward", body, false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_CLAIMED", decodeError(t, raw).Code)
}

func TestServer_CashOutPassesBetID(t *testing.T) {
	ts := newTestServer(t)
	betID := int64(44)

	ts.payouts.On("CashOut", mock.Anything, application.PayoutRequest{
		ChallengeID: 2, Participant: "bob", Signature: "sig", TimestampMs: 99, BetID: &betID,
	}).Return(&entities.PayoutReceipt{ClaimID: 9, Amount: 900, Role: entities.PayoutRoleEarlyCashOutRefund}, nil)

	resp, _ := ts.do(t, http.MethodPost, "/v1/challenges/2/cashout", CashOutRequest{
		Bettor: "bob", Signature: "sig", Timestamp: 99, BetID: &betID,
	}, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrExpired, http.StatusUnauthorized},
		{domain.ErrInvalidSignature, http.StatusUnauthorized},
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{domain.ErrBetTooLow, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrNotAWinner, http.StatusForbidden},
		{domain.ErrCutoffPassed, http.StatusBadRequest},
		{domain.ErrClaimInProgress, http.StatusConflict},
		{domain.ErrTransferFailed, http.StatusBadGateway},
		{domain.ErrTransferUnknown.Wrap(errors.New("timeout")), http.StatusGatewayTimeout},
		{domain.ErrPayoutUnrecorded, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(domain.CodeOf(tt.err), func(t *testing.T) {
			ts := newTestServer(t)
			ts.payouts.On("CashOut", mock.Anything, mock.Anything).Return(nil, tt.err)

			resp, raw := ts.do(t, http.MethodPost, "/v1/challenges/1/cashout", CashOutRequest{
				Bettor: "bob", Signature: "sig", Timestamp: 1,
			}, false)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, domain.CodeOf(tt.err), decodeError(t, raw).Code)
		})
	}
}

func TestServer_GetChallengeReportsLostBets(t *testing.T) {
	ts := newTestServer(t)
	winner := entities.BetSideWillDo

	ts.challenges.On("GetChallenge", mock.Anything, int64(8)).Return(&application.ChallengeDetail{
		Challenge: &entities.Challenge{ID: 8, Status: entities.ChallengeStatusCompleted, WinningSide: &winner, TotalPool: 300, WillDoPool: 100, WontDoPool: 200},
		Bets: []*entities.Bet{
			{ID: 1, ChallengeID: 8, Side: entities.BetSideWillDo, Amount: 100, Status: entities.BetStatusPlaced},
			{ID: 2, ChallengeID: 8, Side: entities.BetSideWontDo, Amount: 200, Status: entities.BetStatusPlaced},
		},
	}, nil)

	resp, raw := ts.do(t, http.MethodGet, "/v1/challenges/8", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail ChallengeResponse
	require.NoError(t, json.Unmarshal(raw, &detail))
	require.Len(t, detail.Bets, 2)
	assert.Equal(t, "PLACED", detail.Bets[0].Status)
	assert.Equal(t, "LOST", detail.Bets[1].Status)
	require.NotNil(t, detail.WinningSide)
	assert.Equal(t, "WILL_DO", *detail.WinningSide)
}

func TestServer_AdminRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/v1/admin/reconcile", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ts.reporter.On("Reconcile", mock.Anything).Return(&entities.ReconciliationReport{CustodianBalance: 10, ExpectedHeld: 10}, nil)
	resp, raw := ts.do(t, http.MethodGet, "/v1/admin/reconcile", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report entities.ReconciliationReport
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, int64(10), report.CustodianBalance)

	ts.payouts.On("ResolveIntent", mock.Anything, int64(12)).
		Return(&entities.PayoutClaim{ID: 12, Status: entities.PayoutClaimStatusReleased, Role: entities.PayoutRoleCreatorFee}, nil)
	resp, raw = ts.do(t, http.MethodPost, "/v1/admin/claims/12/resolve", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var claim ClaimResponse
	require.NoError(t, json.Unmarshal(raw, &claim))
	assert.Equal(t, "RELEASED", claim.Status)

	ts.challenges.On("AcceptProof", mock.Anything, int64(4), int64(2)).Return(nil, domain.ErrDeadlinePassed)
	resp, raw = ts.do(t, http.MethodPost, "/v1/challenges/4/proofs/2/accept", nil, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "DEADLINE_PASSED", decodeError(t, raw).Code)
}

func TestServer_Treasury(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodGet, "/v1/treasury", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"address":"TreasuryAddr"}`, string(raw))
}
