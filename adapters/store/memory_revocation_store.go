package store

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationStore keeps revoked session ids until the sessions would
// have expired anyway. Expired entries are ignored on read and dropped by
// Sweep.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// InvalidateToken revokes tokenID for expiry. Revoking twice keeps the later
// deadline.
func (s *MemoryRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.now().Add(expiry)
	if cur, ok := s.revoked[tokenID]; !ok || until.After(cur) {
		s.revoked[tokenID] = until
	}
	return nil
}

// IsTokenInvalidated reports whether tokenID is currently revoked
func (s *MemoryRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// Sweep drops revocations whose session has expired
func (s *MemoryRevocationStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
			removed++
		}
	}
	return removed
}
