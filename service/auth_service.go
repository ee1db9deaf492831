package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/internal/metrics"
	"github.com/layer-3/agentgate/ports"
)

const (
	DefaultNonceWindow = 5 * time.Minute
	DefaultSessionTTL  = 24 * time.Hour

	nonceBytes = 32
)

// Verifier checks a signed message under the scheme it names and
// canonicalizes addresses for that scheme. An empty chain selects the
// default scheme.
type Verifier interface {
	Verify(msg core.SignedMessage) error
	Normalize(chain, address string) (string, error)
}

// AuthConfig tunes the challenge and session lifetimes
type AuthConfig struct {
	NonceWindow time.Duration
	SessionTTL  time.Duration
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	nonces    ports.NonceStore
	revoked   ports.RevocationStore
	verifier  Verifier
	eventPub  ports.EventPublisher
	log       logrus.FieldLogger

	nonceWindow time.Duration
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg AuthConfig,
	tokenizer ports.Tokenizer,
	nonces ports.NonceStore,
	revoked ports.RevocationStore,
	verifier Verifier,
	eventPub ports.EventPublisher,
	log logrus.FieldLogger,
) *AuthService {
	if cfg.NonceWindow == 0 {
		cfg.NonceWindow = DefaultNonceWindow
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		tokenizer:   tokenizer,
		nonces:      nonces,
		revoked:     revoked,
		verifier:    verifier,
		eventPub:    eventPub,
		log:         log.WithField("component", "auth"),
		nonceWindow: cfg.NonceWindow,
		sessionTTL:  cfg.SessionTTL,
		now:         time.Now,
	}
}

// IssueNonce generates a challenge for address under the chain scheme,
// replacing any earlier one. The challenge is keyed by the canonical address,
// so it can be answered with any spelling of it.
func (s *AuthService) IssueNonce(ctx context.Context, address, chain string) (core.Challenge, error) {
	address, err := s.verifier.Normalize(chain, address)
	if err != nil {
		return core.Challenge{}, err
	}

	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	rec := core.NonceRecord{
		Address:  address,
		Nonce:    hex.EncodeToString(buf),
		IssuedAt: s.now(),
	}

	// The record outlives the window so a late attempt is reported as
	// expired rather than missing.
	if err := s.nonces.Put(ctx, rec, 2*s.nonceWindow); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to store nonce: %w", err)
	}

	metrics.NonceIssued()
	s.log.WithField("address", address).Debug("nonce issued")

	return core.Challenge{
		Nonce:   rec.Nonce,
		Message: core.ChallengeMessage(rec.Nonce),
	}, nil
}

// VerifySignature checks a signed challenge and mints a session. Nonce
// checks run before the signature check, in the order: not found, expired,
// replayed, mismatched.
func (s *AuthService) VerifySignature(ctx context.Context, msg core.SignedMessage) (*core.Credential, error) {
	cred, err := s.verify(ctx, msg)

	result := "ok"
	if err != nil {
		result = core.Reason(err)
		s.log.WithFields(logrus.Fields{
			"address": core.NormalizeAddress(msg.Address),
			"chain":   msg.Chain,
			"reason":  result,
		}).Info("signature rejected")
	}
	metrics.Verification(result)

	return cred, err
}

func (s *AuthService) verify(ctx context.Context, msg core.SignedMessage) (*core.Credential, error) {
	if strings.TrimSpace(msg.Address) == "" {
		return nil, core.ErrInvalidAddress
	}
	if msg.Signature == "" || msg.Message == "" {
		return nil, fmt.Errorf("signature and message are required: %w", core.ErrInvalidRequest)
	}
	address, err := s.verifier.Normalize(msg.Chain, msg.Address)
	if err != nil {
		return nil, err
	}
	msg.Address = address

	rec, err := s.nonces.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	if rec.Expired(s.now(), s.nonceWindow) {
		// A fresh challenge issued since the read must survive
		if err := s.nonces.Delete(ctx, address, rec.Nonce); err != nil {
			s.log.WithError(err).WithField("address", address).Warn("failed to delete expired nonce")
		}
		return nil, core.ErrNonceExpired
	}

	if rec.Consumed {
		return nil, core.ErrReplayDetected
	}

	if !strings.Contains(msg.Message, rec.Nonce) {
		return nil, core.ErrNonceMismatch
	}

	if err := s.verifier.Verify(msg); err != nil {
		// Every scheme failure surfaces as the same reason
		if !errors.Is(err, core.ErrInvalidSignature) {
			return nil, fmt.Errorf("%v: %w", err, core.ErrInvalidSignature)
		}
		return nil, err
	}

	// Only one of any concurrent verifications of this nonce gets past here
	if err := s.nonces.Consume(ctx, address, rec.Nonce); err != nil {
		return nil, err
	}

	return s.IssueSession(address)
}

// IssueSession mints a signed session credential for walletAddress
func (s *AuthService) IssueSession(walletAddress string) (*core.Credential, error) {
	now := s.now()
	session := core.Session{
		ID:            uuid.New().String(),
		WalletAddress: core.NormalizeAddress(walletAddress),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(&session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"address":    session.WalletAddress,
		"session_id": session.ID,
	}).Info("session issued")

	return &core.Credential{Session: session, Token: token}, nil
}

// ValidateSession verifies a session token and checks it was not revoked
func (s *AuthService) ValidateSession(ctx context.Context, token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, core.ErrUnauthorized
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return core.Identity{}, err
	}

	// The tokenizer checks expiry against the wall clock; s.now may differ
	if !s.now().Before(session.ExpiresAt) {
		return core.Identity{}, core.ErrTokenExpired
	}

	invalidated, err := s.revoked.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return core.Identity{}, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return core.Identity{}, core.ErrTokenInvalidated
	}

	return core.Identity{
		WalletAddress: session.WalletAddress,
		SessionID:     session.ID,
		ExpiresAt:     session.ExpiresAt,
	}, nil
}

// Logout revokes a session token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return err
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}

	if err := s.revoked.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The token is already revoked in the store; the event only informs
	// other instances
	if err := s.eventPub.PublishLogout(ctx, session.WalletAddress, session.ID); err != nil {
		s.log.WithError(err).Warn("failed to publish logout event")
	}

	s.log.WithFields(logrus.Fields{
		"address":    session.WalletAddress,
		"session_id": session.ID,
	}).Info("session revoked")
	return nil
}
