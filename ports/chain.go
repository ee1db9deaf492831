package ports

import (
	"context"

	"github.com/layer-3/agentgate/core"
)

// SignatureScheme verifies that a message was signed by the key controlling
// an address under one chain's derivation rules
type SignatureScheme interface {
	Name() string
	Verify(msg core.SignedMessage) error

	// NormalizeAddress returns the canonical form of address, so every
	// spelling of one account maps to a single identity
	NormalizeAddress(address string) (string, bool)
}

// Signer holds ephemeral key material for a single dispatch
type Signer interface {
	Address() string
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)

	// Wipe zeroes the key material. The signer is unusable afterwards.
	Wipe()
}

// TransactionEncoder derives the bytes a signer signs from the envelope
// alone. It must not consult the network.
type TransactionEncoder interface {
	SigningMessage(txn core.RawTransaction) ([]byte, error)
}

// NetworkClient is the subset of a ledger node API the dispatcher needs
type NetworkClient interface {
	SequenceNumber(ctx context.Context, address string) (uint64, error)

	// Submit broadcasts txn. A non-empty hash may accompany an error when
	// the node accepted the transaction but the response was incomplete.
	Submit(ctx context.Context, txn core.SignedTransaction) (string, error)

	// TransactionStatus reports the node's view of a transaction by hash
	TransactionStatus(ctx context.Context, hash string) (core.TransactionResult, error)
}
