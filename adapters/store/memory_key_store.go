package store

import (
	"context"
	"sync"

	"github.com/layer-3/agentgate/core"
)

// MemoryKeyStore keeps encrypted agent keys in process
type MemoryKeyStore struct {
	keys map[string]core.AgentKey
	mu   sync.RWMutex
}

// NewMemoryKeyStore creates a new in-memory key store
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]core.AgentKey)}
}

// SaveKey stores key for walletAddress, replacing any previous key
func (s *MemoryKeyStore) SaveKey(ctx context.Context, walletAddress string, key core.AgentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[walletAddress] = key
	return nil
}

// LoadKey returns the key registered for walletAddress
func (s *MemoryKeyStore) LoadKey(ctx context.Context, walletAddress string) (core.AgentKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[walletAddress]
	if !ok {
		return core.AgentKey{}, core.ErrKeyNotFound
	}
	return key, nil
}
