package api

import (
	"time"

	"dareledger/application"
	"dareledger/domain/entities"
)

// CreateChallengeRequest opens a new challenge
type CreateChallengeRequest struct {
	Creator  string    `json:"creator" validate:"required,max=64"`
	Title    string    `json:"title" validate:"required,max=200"`
	Deadline time.Time `json:"deadline" validate:"required"`
	MinBet   int64     `json:"minBet" validate:"required,gt=0"`
}

// PlaceBetRequest credits a verified deposit to one side of a challenge
type PlaceBetRequest struct {
	Bettor       string `json:"bettor" validate:"required,max=64"`
	Side         string `json:"side" validate:"required,oneof=WILL_DO WONT_DO"`
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	FundingTxRef string `json:"fundingTxRef" validate:"omitempty,max=128"`
}

// SubmitProofRequest records evidence of completion
type SubmitProofRequest struct {
	Submitter string `json:"submitter" validate:"required,max=64"`
	MediaRef  string `json:"mediaRef" validate:"required,max=2048"`
}

// ClaimRequest is a signed request for a settlement payout
type ClaimRequest struct {
	Participant string `json:"participant" validate:"required,max=64"`
	Signature   string `json:"signature" validate:"required,max=128"`
	Timestamp   int64  `json:"timestamp" validate:"required,gt=0"`
}

// CashOutRequest is a signed request to leave a challenge early
type CashOutRequest struct {
	Bettor    string `json:"bettor" validate:"required,max=64"`
	Signature string `json:"signature" validate:"required,max=128"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
	BetID     *int64 `json:"betId" validate:"omitempty,gt=0"`
}

// ChallengeResponse is the public view of a challenge and its pools
type ChallengeResponse struct {
	ID                  int64           `json:"id"`
	Creator             string          `json:"creator"`
	Title               string          `json:"title"`
	Deadline            time.Time       `json:"deadline"`
	MinBet              int64           `json:"minBet"`
	Status              string          `json:"status"`
	WillDoPool          int64           `json:"willDoPool"`
	WontDoPool          int64           `json:"wontDoPool"`
	TotalPool           int64           `json:"totalPool"`
	PenaltyPool         int64           `json:"penaltyPool"`
	WinningSide         *string         `json:"winningSide,omitempty"`
	CreatorFeeClaimed   bool            `json:"creatorFeeClaimed"`
	CompleterFeeClaimed bool            `json:"completerFeeClaimed"`
	CreatedAt           time.Time       `json:"createdAt"`
	ResolvedAt          *time.Time      `json:"resolvedAt,omitempty"`
	Bets                []BetResponse   `json:"bets,omitempty"`
	Proofs              []ProofResponse `json:"proofs,omitempty"`
	Claims              []ClaimResponse `json:"claims,omitempty"`
}

// BetResponse is the public view of a bet. LOST is reported once the winner is known.
type BetResponse struct {
	ID               int64     `json:"id"`
	ChallengeID      int64     `json:"challengeId"`
	Bettor           string    `json:"bettor"`
	Side             string    `json:"side"`
	Amount           int64     `json:"amount"`
	Status           string    `json:"status"`
	IsClaimed        bool      `json:"isClaimed"`
	PayoutReceiptRef *string   `json:"payoutReceiptRef,omitempty"`
	FundingTxRef     *string   `json:"fundingTxRef,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ProofResponse is the public view of a proof
type ProofResponse struct {
	ID             int64      `json:"id"`
	ChallengeID    int64      `json:"challengeId"`
	Submitter      string     `json:"submitter"`
	MediaRef       string     `json:"mediaRef"`
	IsWinningProof bool       `json:"isWinningProof"`
	CreatedAt      time.Time  `json:"createdAt"`
	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
}

// ClaimResponse is the operator view of a payout claim
type ClaimResponse struct {
	ID          int64      `json:"id"`
	ChallengeID int64      `json:"challengeId"`
	Participant string     `json:"participant"`
	Role        string     `json:"role"`
	BetID       *int64     `json:"betId,omitempty"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	ReceiptRef  *string    `json:"receiptRef,omitempty"`
	Attempts    int        `json:"attempts"`
	LastError   *string    `json:"lastError,omitempty"`
	CommittedAt *time.Time `json:"committedAt,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func challengeResponse(ch *entities.Challenge) ChallengeResponse {
	resp := ChallengeResponse{
		ID:                  ch.ID,
		Creator:             ch.CreatorID,
		Title:               ch.Title,
		Deadline:            ch.Deadline,
		MinBet:              ch.MinBet,
		Status:              string(ch.Status),
		WillDoPool:          ch.WillDoPool,
		WontDoPool:          ch.WontDoPool,
		TotalPool:           ch.TotalPool,
		PenaltyPool:         ch.PenaltyPool,
		CreatorFeeClaimed:   ch.CreatorFeeClaimed,
		CompleterFeeClaimed: ch.CompleterFeeClaimed,
		CreatedAt:           ch.CreatedAt,
		ResolvedAt:          ch.ResolvedAt,
	}
	if ch.WinningSide != nil {
		side := string(*ch.WinningSide)
		resp.WinningSide = &side
	}
	return resp
}

func challengeDetailResponse(detail *application.ChallengeDetail) ChallengeResponse {
	resp := challengeResponse(detail.Challenge)
	for _, bet := range detail.Bets {
		resp.Bets = append(resp.Bets, betResponse(bet, detail.Challenge.WinningSide))
	}
	for _, proof := range detail.Proofs {
		resp.Proofs = append(resp.Proofs, proofResponse(proof))
	}
	for _, claim := range detail.Claims {
		resp.Claims = append(resp.Claims, claimResponse(claim))
	}
	return resp
}

func betResponse(bet *entities.Bet, winningSide *entities.BetSide) BetResponse {
	return BetResponse{
		ID:               bet.ID,
		ChallengeID:      bet.ChallengeID,
		Bettor:           bet.BettorID,
		Side:             string(bet.Side),
		Amount:           bet.Amount,
		Status:           string(bet.EffectiveStatus(winningSide)),
		IsClaimed:        bet.IsClaimed,
		PayoutReceiptRef: bet.PayoutReceiptRef,
		FundingTxRef:     bet.FundingTxRef,
		CreatedAt:        bet.CreatedAt,
	}
}

func proofResponse(proof *entities.ProofRecord) ProofResponse {
	return ProofResponse{
		ID:             proof.ID,
		ChallengeID:    proof.ChallengeID,
		Submitter:      proof.SubmitterID,
		MediaRef:       proof.MediaRef,
		IsWinningProof: proof.IsWinningProof,
		CreatedAt:      proof.CreatedAt,
		AcceptedAt:     proof.AcceptedAt,
	}
}

func claimResponse(claim *entities.PayoutClaim) ClaimResponse {
	return ClaimResponse{
		ID:          claim.ID,
		ChallengeID: claim.ChallengeID,
		Participant: claim.ParticipantID,
		Role:        string(claim.Role),
		BetID:       claim.BetID,
		Amount:      claim.Amount,
		Status:      string(claim.Status),
		ReceiptRef:  claim.ReceiptRef,
		Attempts:    claim.Attempts,
		LastError:   claim.LastError,
		CommittedAt: claim.CommittedAt,
	}
}
