package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the pair in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	pair *CredentialPair
}

// Compile-time check to ensure MemoryStore implements TokenStore
var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns a copy of the stored pair, or nil.
func (m *MemoryStore) Read(ctx context.Context) (*CredentialPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == nil {
		return nil, nil
	}
	pair := *m.pair
	return &pair, nil
}

// Write replaces the stored pair.
func (m *MemoryStore) Write(ctx context.Context, pair CredentialPair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !pair.Complete() {
		return ErrIncompletePair
	}

	m.mu.Lock()
	m.pair = &pair
	m.mu.Unlock()
	return nil
}

// Clear drops the stored pair.
func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.pair = nil
	m.mu.Unlock()
	return nil
}
