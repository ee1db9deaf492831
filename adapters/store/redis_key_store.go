package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/agentgate/core"
)

// RedisKeyStore keeps encrypted agent keys in Redis as JSON
type RedisKeyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisKeyStore creates a new Redis key store
func NewRedisKeyStore(client *redis.Client) *RedisKeyStore {
	return &RedisKeyStore{
		client: client,
		prefix: "agentgate:key:",
	}
}

// SaveKey stores key for walletAddress without expiry
func (s *RedisKeyStore) SaveKey(ctx context.Context, walletAddress string, key core.AgentKey) error {
	payload, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+walletAddress, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save key: %w", errors.Join(core.ErrStore, err))
	}
	return nil
}

// LoadKey returns the key registered for walletAddress
func (s *RedisKeyStore) LoadKey(ctx context.Context, walletAddress string) (core.AgentKey, error) {
	payload, err := s.client.Get(ctx, s.prefix+walletAddress).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.AgentKey{}, core.ErrKeyNotFound
		}
		return core.AgentKey{}, fmt.Errorf("failed to load key: %w", errors.Join(core.ErrStore, err))
	}

	var key core.AgentKey
	if err := json.Unmarshal(payload, &key); err != nil {
		return core.AgentKey{}, fmt.Errorf("corrupt key record: %w", errors.Join(core.ErrStore, err))
	}
	return key, nil
}
