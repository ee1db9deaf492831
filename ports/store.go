package ports

import (
	"context"
	"time"

	"github.com/layer-3/agentgate/core"
)

// NonceStore keeps at most one live nonce record per address. Consume must
// be atomic per address: of two concurrent calls with the same nonce exactly
// one succeeds.
type NonceStore interface {
	// Put stores rec, replacing any record for the same address
	Put(ctx context.Context, rec core.NonceRecord, ttl time.Duration) error

	// Get returns the record for address or core.ErrNonceNotFound
	Get(ctx context.Context, address string) (core.NonceRecord, error)

	// Delete removes the record for address if it still holds nonce. A
	// record replaced since it was read is left alone.
	Delete(ctx context.Context, address, nonce string) error

	// Consume marks the record consumed if it still holds nonce and has not
	// been consumed. Returns core.ErrNonceNotFound or core.ErrReplayDetected.
	Consume(ctx context.Context, address, nonce string) error
}

// RevocationStore records session tokens invalidated before their expiry
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// KeyStore holds encrypted agent keys keyed by wallet address
type KeyStore interface {
	SaveKey(ctx context.Context, walletAddress string, key core.AgentKey) error

	// LoadKey returns core.ErrKeyNotFound when nothing is registered
	LoadKey(ctx context.Context, walletAddress string) (core.AgentKey, error)
}
