package testutil

import (
	"time"

	"dareledger/domain/entities"
)

// CreateTestChallenge creates an OPEN challenge with a deadline one day out
func CreateTestChallenge(creatorID string) *entities.Challenge {
	return &entities.Challenge{
		CreatorID:     creatorID,
		Title:         "Swim across the lake",
		Deadline:      time.Now().UTC().Add(24 * time.Hour).Truncate(time.Microsecond),
		MinBet:        100,
		Status:        entities.ChallengeStatusOpen,
		SchemaVersion: entities.CurrentSchemaVersion,
	}
}

// CreateTestChallengeWithDeadline creates an OPEN challenge with a specific deadline
func CreateTestChallengeWithDeadline(creatorID string, deadline time.Time) *entities.Challenge {
	challenge := CreateTestChallenge(creatorID)
	challenge.Deadline = deadline.UTC().Truncate(time.Microsecond)
	return challenge
}

// CreateTestBet creates a PLACED bet
func CreateTestBet(challengeID int64, bettorID string, side entities.BetSide, amount int64) *entities.Bet {
	return &entities.Bet{
		ChallengeID: challengeID,
		BettorID:    bettorID,
		Side:        side,
		Amount:      amount,
		Status:      entities.BetStatusPlaced,
	}
}

// CreateTestBetWithFunding creates a PLACED bet backed by a funding transfer reference
func CreateTestBetWithFunding(challengeID int64, bettorID string, side entities.BetSide, amount int64, txRef string) *entities.Bet {
	bet := CreateTestBet(challengeID, bettorID, side, amount)
	bet.FundingTxRef = &txRef
	return bet
}

// CreateTestClaim creates a RESERVED payout claim
func CreateTestClaim(challengeID int64, participantID string, role entities.PayoutRole, amount int64, key string) *entities.PayoutClaim {
	return &entities.PayoutClaim{
		ChallengeID:    challengeID,
		ParticipantID:  participantID,
		Role:           role,
		Amount:         amount,
		NativeAmount:   amount,
		IdempotencyKey: key,
		Status:         entities.PayoutClaimStatusReserved,
	}
}
