package services

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"dareledger/domain"
	"dareledger/domain/interfaces"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mr-tron/base58"
	"github.com/raulk/clock"
)

type signatureAuthorizer struct {
	clock  clock.Clock
	window time.Duration
	keys   *lru.Cache[string, ed25519.PublicKey]
}

// NewSignatureAuthorizer creates an authorizer that accepts ed25519 signatures
// made within window of the current time
func NewSignatureAuthorizer(clk clock.Clock, window time.Duration, keyCacheSize int) (interfaces.Authorizer, error) {
	if window <= 0 {
		return nil, fmt.Errorf("signature window must be positive")
	}
	if keyCacheSize <= 0 {
		keyCacheSize = 1
	}
	keys, err := lru.New[string, ed25519.PublicKey](keyCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create public key cache: %w", err)
	}
	return &signatureAuthorizer{
		clock:  clk,
		window: window,
		keys:   keys,
	}, nil
}

func (a *signatureAuthorizer) Authorize(req interfaces.AuthorizationRequest) error {
	if req.TimestampMs <= 0 {
		return domain.ErrExpired.WithMessage("request timestamp is missing")
	}

	age := a.clock.Now().UnixMilli() - req.TimestampMs
	if age > a.window.Milliseconds() {
		return domain.ErrExpired.WithMessage("request signed %s ago, window is %s", time.Duration(age)*time.Millisecond, a.window)
	}
	if -age > a.window.Milliseconds() {
		return domain.ErrExpired.WithMessage("request timestamp is %s in the future", time.Duration(-age)*time.Millisecond)
	}

	publicKey, err := a.publicKey(req.Identity)
	if err != nil {
		return domain.ErrInvalidSignature.Wrap(err)
	}

	signature, err := base58.Decode(req.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return domain.ErrInvalidSignature.WithMessage("malformed signature")
	}

	if !ed25519.Verify(publicKey, []byte(req.Message()), signature) {
		return domain.ErrInvalidSignature
	}

	return nil
}

// publicKey decodes a base58 identity, caching the result
func (a *signatureAuthorizer) publicKey(identity string) (ed25519.PublicKey, error) {
	if key, ok := a.keys.Get(identity); ok {
		return key, nil
	}

	raw, err := base58.Decode(identity)
	if err != nil {
		return nil, fmt.Errorf("identity is not base58: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("identity decodes to %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}

	key := ed25519.PublicKey(raw)
	a.keys.Add(identity, key)
	return key, nil
}
