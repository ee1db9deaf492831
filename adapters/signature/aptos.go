package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/layer-3/agentgate/core"
)

// ed25519Scheme is the single-signer authentication key scheme byte
const ed25519Scheme = 0x00

// Aptos verifies Ed25519 signatures and derives account addresses as
// SHA3-256(public key || scheme)
type Aptos struct{}

// NewAptos creates the Aptos scheme
func NewAptos() *Aptos {
	return &Aptos{}
}

// Name returns the scheme name used in verify requests
func (a *Aptos) Name() string {
	return "aptos"
}

// NormalizeAddress pads a 0x-prefixed address to the 64 digit lower-case
// form
func (a *Aptos) NormalizeAddress(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if !core.IsAccountAddress(strings.ToLower(address)) {
		return "", false
	}
	return NormalizeAptosAddress(address)
}

// Verify checks msg.Signature over msg.Message with msg.PublicKey and that
// the key derives msg.Address
func (a *Aptos) Verify(msg core.SignedMessage) error {
	pub, err := decodeHex(strings.TrimPrefix(msg.PublicKey, "ed25519-pub-"))
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("malformed public key: %w", core.ErrInvalidSignature)
	}
	sig, err := decodeHex(msg.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("malformed signature: %w", core.ErrInvalidSignature)
	}

	if !ed25519.Verify(pub, []byte(msg.Message), sig) {
		return core.ErrInvalidSignature
	}

	claimed, ok := NormalizeAptosAddress(msg.Address)
	if !ok || claimed != AptosAddress(pub) {
		return fmt.Errorf("public key does not control address: %w", core.ErrInvalidSignature)
	}
	return nil
}

// AptosAddress derives the account address controlled by an Ed25519 key
func AptosAddress(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, len(pub)+1)
	buf = append(buf, pub...)
	buf = append(buf, ed25519Scheme)
	sum := sha3.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// NormalizeAptosAddress lower-cases and left-pads an address to 64 hex digits
func NormalizeAptosAddress(address string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(address))
	s = strings.TrimPrefix(s, "0x")
	if len(s) == 0 || len(s) > 64 {
		return "", false
	}
	if _, err := hex.DecodeString(strings.Repeat("0", len(s)%2) + s); err != nil {
		return "", false
	}
	return "0x" + strings.Repeat("0", 64-len(s)) + s, true
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return hex.DecodeString(s)
}
