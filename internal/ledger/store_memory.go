package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps the counter in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	n     int
	found bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a store that already holds n.
func NewMemoryStoreWith(n int) *MemoryStore {
	return &MemoryStore{n: n, found: true}
}

func (s *MemoryStore) Load(_ context.Context) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n, s.found, nil
}

func (s *MemoryStore) Save(_ context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n, s.found = n, true
	return nil
}

func (s *MemoryStore) Close() error { return nil }
