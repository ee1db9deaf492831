package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/agentgate/core"
)

// RedisRevocationStore shares revoked session ids between instances. Each
// revocation is a key that expires with the session it revokes.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore creates a new Redis revocation store
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: "agentgate:revoked:",
	}
}

// InvalidateToken revokes tokenID for expiry. The stored value is the unix
// time the revocation lapses.
func (s *RedisRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	until := time.Now().Add(expiry).Unix()
	if err := s.client.Set(ctx, s.prefix+tokenID, until, expiry).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", errors.Join(core.ErrStore, err))
	}
	return nil
}

// IsTokenInvalidated reports whether tokenID is currently revoked
func (s *RedisRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", errors.Join(core.ErrStore, err))
	}
	return n > 0, nil
}
