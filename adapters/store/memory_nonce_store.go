package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/agentgate/core"
)

type nonceEntry struct {
	mu      sync.Mutex
	rec     core.NonceRecord
	expires time.Time
	dead    bool // removed from the map; Put must retry with a fresh entry
}

// MemoryNonceStore keeps nonce records in process. Each address has its own
// lock, so checking and consuming a nonce is serialized per address only.
type MemoryNonceStore struct {
	entries sync.Map // address -> *nonceEntry
	now     func() time.Time
}

// NewMemoryNonceStore creates a new in-memory nonce store
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{now: time.Now}
}

// Put stores rec, replacing any record for the same address
func (s *MemoryNonceStore) Put(ctx context.Context, rec core.NonceRecord, ttl time.Duration) error {
	for {
		v, _ := s.entries.LoadOrStore(rec.Address, &nonceEntry{})
		e := v.(*nonceEntry)

		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		e.rec = rec
		e.expires = s.now().Add(ttl)
		e.mu.Unlock()
		return nil
	}
}

// Get returns the record for address
func (s *MemoryNonceStore) Get(ctx context.Context, address string) (core.NonceRecord, error) {
	e, ok := s.lock(address)
	if !ok {
		return core.NonceRecord{}, core.ErrNonceNotFound
	}
	defer e.mu.Unlock()

	return e.rec, nil
}

// Delete removes the record for address if it still holds nonce
func (s *MemoryNonceStore) Delete(ctx context.Context, address, nonce string) error {
	e, ok := s.lock(address)
	if !ok {
		return nil
	}
	defer e.mu.Unlock()

	if e.rec.Nonce == nonce {
		s.remove(address, e)
	}
	return nil
}

// Consume marks the nonce consumed under the address lock
func (s *MemoryNonceStore) Consume(ctx context.Context, address, nonce string) error {
	e, ok := s.lock(address)
	if !ok {
		return core.ErrNonceNotFound
	}
	defer e.mu.Unlock()

	if e.rec.Nonce != nonce {
		return core.ErrNonceNotFound
	}
	if e.rec.Consumed {
		return core.ErrReplayDetected
	}
	e.rec.Consumed = true
	return nil
}

// Sweep drops records whose TTL has passed
func (s *MemoryNonceStore) Sweep() int {
	removed := 0
	s.entries.Range(func(key, value any) bool {
		e := value.(*nonceEntry)
		e.mu.Lock()
		if !e.dead && !s.now().Before(e.expires) {
			s.remove(key.(string), e)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}

// lock returns the live entry for address with its mutex held
func (s *MemoryNonceStore) lock(address string) (*nonceEntry, bool) {
	v, ok := s.entries.Load(address)
	if !ok {
		return nil, false
	}
	e := v.(*nonceEntry)
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return nil, false
	}
	if !s.now().Before(e.expires) {
		s.remove(address, e)
		e.mu.Unlock()
		return nil, false
	}
	return e, true
}

// remove must be called with e.mu held
func (s *MemoryNonceStore) remove(address string, e *nonceEntry) {
	e.dead = true
	s.entries.CompareAndDelete(address, e)
}
