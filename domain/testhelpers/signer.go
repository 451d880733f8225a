package testhelpers

import (
	"crypto/ed25519"
	"testing"

	"dareledger/domain/interfaces"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

// TestSigner is a participant wallet for tests
type TestSigner struct {
	Identity   string
	privateKey ed25519.PrivateKey
}

// NewTestSigner generates a fresh ed25519 wallet
func NewTestSigner(t *testing.T) *TestSigner {
	t.Helper()
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &TestSigner{
		Identity:   base58.Encode(publicKey),
		privateKey: privateKey,
	}
}

// Sign returns the base58 signature over the canonical message of the action
func (s *TestSigner) Sign(action interfaces.Action, challengeID int64, timestampMs int64) string {
	req := interfaces.AuthorizationRequest{Action: action, ChallengeID: challengeID, TimestampMs: timestampMs}
	return base58.Encode(ed25519.Sign(s.privateKey, []byte(req.Message())))
}

// Request builds a complete signed authorization request
func (s *TestSigner) Request(action interfaces.Action, challengeID int64, timestampMs int64) interfaces.AuthorizationRequest {
	return interfaces.AuthorizationRequest{
		Identity:    s.Identity,
		Action:      action,
		ChallengeID: challengeID,
		Signature:   s.Sign(action, challengeID, timestampMs),
		TimestampMs: timestampMs,
	}
}
