package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/ports"
)

func TestRevocationStores(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisClient(t)

	stores := map[string]ports.RevocationStore{
		"memory": NewMemoryRevocationStore(),
		"redis":  NewRedisRevocationStore(client),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			invalidated, err := s.IsTokenInvalidated(ctx, "jti-1")
			require.NoError(t, err)
			assert.False(t, invalidated)

			require.NoError(t, s.InvalidateToken(ctx, "jti-1", time.Hour))

			invalidated, err = s.IsTokenInvalidated(ctx, "jti-1")
			require.NoError(t, err)
			assert.True(t, invalidated)

			invalidated, err = s.IsTokenInvalidated(ctx, "jti-2")
			require.NoError(t, err)
			assert.False(t, invalidated)
		})
	}

	mr.FastForward(2 * time.Hour)
	invalidated, err := stores["redis"].IsTokenInvalidated(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestMemoryRevocationStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	s := NewMemoryRevocationStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.InvalidateToken(ctx, "jti", time.Minute))
	require.NoError(t, s.InvalidateToken(ctx, "jti", time.Second))
	require.NoError(t, s.InvalidateToken(ctx, "noop", 0))

	invalidated, err := s.IsTokenInvalidated(ctx, "noop")
	require.NoError(t, err)
	assert.False(t, invalidated)

	now = now.Add(30 * time.Second)
	invalidated, err = s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, invalidated, "shorter revocation must not cut the longer one")

	require.NoError(t, s.InvalidateToken(ctx, "other", time.Second))
	now = now.Add(time.Minute)
	assert.Equal(t, 2, s.Sweep())

	invalidated, err = s.IsTokenInvalidated(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestStartJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Unix(1700000000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	nonces := NewMemoryNonceStore()
	nonces.now = clock
	revoked := NewMemoryRevocationStore()
	revoked.now = clock

	require.NoError(t, nonces.Put(ctx, core.NonceRecord{Address: "0xabc", Nonce: "n"}, time.Second))
	require.NoError(t, revoked.InvalidateToken(ctx, "jti", time.Second))

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()

	StartJanitor(ctx, 5*time.Millisecond, nonces, revoked)

	assert.Eventually(t, func() bool {
		revoked.mu.Lock()
		defer revoked.mu.Unlock()
		_, live := nonces.entries.Load("0xabc")
		return len(revoked.revoked) == 0 && !live
	}, time.Second, 5*time.Millisecond)
}

func TestKeyStores(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClient(t)

	stores := map[string]ports.KeyStore{
		"memory": NewMemoryKeyStore(),
		"redis":  NewRedisKeyStore(client),
	}

	key := core.AgentKey{
		AccountAddress: "0x1234",
		EncryptedKey: core.EncryptedKey{
			CipherText: "Y2lwaGVy",
			Salt:       "c2FsdA==",
			IV:         "aXY=",
		},
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadKey(ctx, "0xabc")
			assert.ErrorIs(t, err, core.ErrKeyNotFound)

			require.NoError(t, s.SaveKey(ctx, "0xabc", key))

			got, err := s.LoadKey(ctx, "0xabc")
			require.NoError(t, err)
			assert.Equal(t, key, got)
		})
	}
}
