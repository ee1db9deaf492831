package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/agentgate/core"
)

// consumeScript flips the consumed flag only if the stored nonce matches.
// Returns 1 on success, 0 when the record is missing or holds another nonce,
// 2 when it was already consumed.
var consumeScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'nonce')
if not cur or cur ~= ARGV[1] then
	return 0
end
if redis.call('HGET', KEYS[1], 'consumed') == '1' then
	return 2
end
redis.call('HSET', KEYS[1], 'consumed', '1')
return 1
`)

// deleteScript removes the record only if it still holds the given nonce
var deleteScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'nonce') == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisNonceStore keeps nonce records in Redis hashes so several instances
// share them. Consume runs as a single script, which Redis executes atomically.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a new Redis nonce store
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "agentgate:nonce:",
	}
}

// Put stores rec, replacing any record for the same address
func (s *RedisNonceStore) Put(ctx context.Context, rec core.NonceRecord, ttl time.Duration) error {
	key := s.prefix + rec.Address

	consumed := "0"
	if rec.Consumed {
		consumed = "1"
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"nonce", rec.Nonce,
			"issued_at", strconv.FormatInt(rec.IssuedAt.UnixNano(), 10),
			"consumed", consumed,
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store nonce: %w", errors.Join(core.ErrStore, err))
	}
	return nil
}

// Get returns the record for address
func (s *RedisNonceStore) Get(ctx context.Context, address string) (core.NonceRecord, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+address).Result()
	if err != nil {
		return core.NonceRecord{}, fmt.Errorf("failed to load nonce: %w", errors.Join(core.ErrStore, err))
	}
	if len(vals) == 0 || vals["nonce"] == "" {
		return core.NonceRecord{}, core.ErrNonceNotFound
	}

	issued, err := strconv.ParseInt(vals["issued_at"], 10, 64)
	if err != nil {
		return core.NonceRecord{}, fmt.Errorf("corrupt nonce record: %w", errors.Join(core.ErrStore, err))
	}

	return core.NonceRecord{
		Address:  address,
		Nonce:    vals["nonce"],
		IssuedAt: time.Unix(0, issued),
		Consumed: vals["consumed"] == "1",
	}, nil
}

// Delete removes the record for address if it still holds nonce
func (s *RedisNonceStore) Delete(ctx context.Context, address, nonce string) error {
	if err := deleteScript.Run(ctx, s.client, []string{s.prefix + address}, nonce).Err(); err != nil {
		return fmt.Errorf("failed to delete nonce: %w", errors.Join(core.ErrStore, err))
	}
	return nil
}

// Consume atomically marks the nonce consumed
func (s *RedisNonceStore) Consume(ctx context.Context, address, nonce string) error {
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + address}, nonce).Int()
	if err != nil {
		return fmt.Errorf("failed to consume nonce: %w", errors.Join(core.ErrStore, err))
	}

	switch res {
	case 1:
		return nil
	case 2:
		return core.ErrReplayDetected
	default:
		return core.ErrNonceNotFound
	}
}
