package signature

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/agentgate/core"
)

// Ethereum verifies EIP-191 personal_sign signatures by public key recovery
type Ethereum struct{}

// NewEthereum creates the Ethereum scheme
func NewEthereum() *Ethereum {
	return &Ethereum{}
}

// Name returns the scheme name used in verify requests
func (e *Ethereum) Name() string {
	return "ethereum"
}

// NormalizeAddress lower-cases a 20 byte hex address, dropping any EIP-55
// checksum casing
func (e *Ethereum) NormalizeAddress(address string) (string, bool) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return "", false
	}
	if !common.IsHexAddress(address) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), true
}

// Verify recovers the signer of msg.Message and compares it with msg.Address.
// If msg.PublicKey is set it must belong to the same address.
func (e *Ethereum) Verify(msg core.SignedMessage) error {
	if !common.IsHexAddress(msg.Address) {
		return fmt.Errorf("malformed address: %w", core.ErrInvalidSignature)
	}
	expected := common.HexToAddress(msg.Address)

	sig, err := hexutil.Decode(msg.Signature)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be 65 bytes: %w", core.ErrInvalidSignature)
	}

	// Wallets return v as 27/28
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg.Message)), sig)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", core.ErrInvalidSignature)
	}
	if crypto.PubkeyToAddress(*pub) != expected {
		return core.ErrInvalidSignature
	}

	if strings.TrimSpace(msg.PublicKey) != "" {
		raw, err := hexutil.Decode(msg.PublicKey)
		if err != nil {
			return fmt.Errorf("failed to decode public key: %w", core.ErrInvalidSignature)
		}
		claimed, err := parsePubkey(raw)
		if err != nil || crypto.PubkeyToAddress(*claimed) != expected {
			return fmt.Errorf("public key does not control address: %w", core.ErrInvalidSignature)
		}
	}
	return nil
}

// parsePubkey accepts compressed (33 byte) or uncompressed (65 byte) keys
func parsePubkey(raw []byte) (*ecdsa.PublicKey, error) {
	if len(raw) == 33 {
		return crypto.DecompressPubkey(raw)
	}
	return crypto.UnmarshalPubkey(raw)
}
