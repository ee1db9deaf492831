package aptos

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/layer-3/agentgate/adapters/signature"
	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/internal/vault"
)

var errSignerWiped = errors.New("signer key material has been wiped")

// Signer signs with an in-memory Ed25519 key. It is meant to live for a
// single dispatch and be wiped afterwards.
type Signer struct {
	key     ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewSigner derives a signer from a 32-byte seed. The seed is copied; the
// caller remains responsible for zeroing its own slice.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, core.ErrInvalidKey
	}
	key := ed25519.NewKeyFromSeed(seed)
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, key.Public().(ed25519.PublicKey))

	return &Signer{
		key:     key,
		pub:     pub,
		address: signature.AptosAddress(pub),
	}, nil
}

// Address returns the account address controlled by the key
func (s *Signer) Address() string {
	return s.address
}

// PublicKey returns the Ed25519 public key
func (s *Signer) PublicKey() []byte {
	return s.pub
}

// Sign signs message
func (s *Signer) Sign(message []byte) ([]byte, error) {
	if s.key == nil {
		return nil, errSignerWiped
	}
	return ed25519.Sign(s.key, message), nil
}

// Wipe zeroes the private key
func (s *Signer) Wipe() {
	vault.Zero(s.key)
	s.key = nil
}

// ParsePrivateKey decodes a hex Ed25519 private key seed, accepting the
// "0x" and AIP-80 "ed25519-priv-" prefixes
func ParsePrivateKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "ed25519-priv-")
	s = strings.TrimPrefix(s, "0x")

	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not hex: %w", core.ErrInvalidKey)
	}
	if len(seed) != ed25519.SeedSize {
		vault.Zero(seed)
		return nil, fmt.Errorf("expected %d bytes: %w", ed25519.SeedSize, core.ErrInvalidKey)
	}
	return seed, nil
}
