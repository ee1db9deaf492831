package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/ports"
)

func newRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// nonceStores returns every NonceStore implementation under test
func nonceStores(t *testing.T) map[string]ports.NonceStore {
	_, client := newRedisClient(t)
	return map[string]ports.NonceStore{
		"memory": NewMemoryNonceStore(),
		"redis":  NewRedisNonceStore(client),
	}
}

func record(address, nonce string) core.NonceRecord {
	return core.NonceRecord{
		Address:  address,
		Nonce:    nonce,
		IssuedAt: time.Now().Truncate(time.Millisecond),
	}
}

func TestNonceStore_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range nonceStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "0xabc")
			assert.ErrorIs(t, err, core.ErrNonceNotFound)

			rec := record("0xabc", "n1")
			require.NoError(t, s.Put(ctx, rec, time.Minute))

			got, err := s.Get(ctx, "0xabc")
			require.NoError(t, err)
			assert.Equal(t, rec.Nonce, got.Nonce)
			assert.True(t, rec.IssuedAt.Equal(got.IssuedAt))
			assert.False(t, got.Consumed)
		})
	}
}

func TestNonceStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range nonceStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))
			require.NoError(t, s.Put(ctx, record("0xabc", "n2"), time.Minute))

			got, err := s.Get(ctx, "0xabc")
			require.NoError(t, err)
			assert.Equal(t, "n2", got.Nonce)

			assert.ErrorIs(t, s.Consume(ctx, "0xabc", "n1"), core.ErrNonceNotFound)
			assert.NoError(t, s.Consume(ctx, "0xabc", "n2"))
		})
	}
}

func TestNonceStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range nonceStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))

			require.NoError(t, s.Consume(ctx, "0xabc", "n1"))
			assert.ErrorIs(t, s.Consume(ctx, "0xabc", "n1"), core.ErrReplayDetected)

			got, err := s.Get(ctx, "0xabc")
			require.NoError(t, err)
			assert.True(t, got.Consumed)
		})
	}
}

func TestNonceStore_Delete(t *testing.T) {
	ctx := context.Background()
	for name, s := range nonceStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))
			require.NoError(t, s.Delete(ctx, "0xabc", "n1"))
			require.NoError(t, s.Delete(ctx, "0xabc", "n1"))

			_, err := s.Get(ctx, "0xabc")
			assert.ErrorIs(t, err, core.ErrNonceNotFound)
			assert.ErrorIs(t, s.Consume(ctx, "0xabc", "n1"), core.ErrNonceNotFound)

			// A fresh record can be stored after deletion
			require.NoError(t, s.Put(ctx, record("0xabc", "n2"), time.Minute))
			assert.NoError(t, s.Consume(ctx, "0xabc", "n2"))
		})
	}
}

func TestNonceStore_DeleteKeepsReplacedRecord(t *testing.T) {
	ctx := context.Background()
	for name, s := range nonceStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))
			stale, err := s.Get(ctx, "0xabc")
			require.NoError(t, err)

			// Reissued between the read and the delete
			require.NoError(t, s.Put(ctx, record("0xabc", "n2"), time.Minute))
			require.NoError(t, s.Delete(ctx, "0xabc", stale.Nonce))

			got, err := s.Get(ctx, "0xabc")
			require.NoError(t, err)
			assert.Equal(t, "n2", got.Nonce)
			assert.NoError(t, s.Consume(ctx, "0xabc", "n2"))

			// Missing records are not an error
			require.NoError(t, s.Delete(ctx, "0xdef", "n1"))
		})
	}
}

func TestNonceStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	for name, s := range nonceStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))

			const workers = 16
			var ok, replay atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					switch err := s.Consume(ctx, "0xabc", "n1"); err {
					case nil:
						ok.Add(1)
					case core.ErrReplayDetected:
						replay.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.EqualValues(t, 1, ok.Load())
			assert.EqualValues(t, workers-1, replay.Load())
		})
	}
}

func TestMemoryNonceStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryNonceStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))
	require.NoError(t, s.Put(ctx, record("0xdef", "n2"), time.Hour))

	now = now.Add(2 * time.Minute)
	_, err := s.Get(ctx, "0xabc")
	assert.ErrorIs(t, err, core.ErrNonceNotFound)

	assert.Equal(t, 0, s.Sweep())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, s.Sweep())
	_, err = s.Get(ctx, "0xdef")
	assert.ErrorIs(t, err, core.ErrNonceNotFound)
}

func TestRedisNonceStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedisClient(t)
	s := NewRedisNonceStore(client)

	require.NoError(t, s.Put(ctx, record("0xabc", "n1"), time.Minute))
	assert.True(t, mr.Exists("agentgate:nonce:0xabc"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "0xabc")
	assert.ErrorIs(t, err, core.ErrNonceNotFound)
}

func TestRedisNonceStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	s := NewRedisNonceStore(client)

	err := s.Put(ctx, record("0xabc", "n1"), time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStore)
}
