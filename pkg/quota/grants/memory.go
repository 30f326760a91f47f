package grants

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. Grants do not
// survive restarts; use the SQLite store when persistence matters.
type MemoryStore struct {
	mu     sync.RWMutex
	grants map[string]*Grant

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory grant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		grants: make(map[string]*Grant),
		now:    time.Now,
	}
}

// Put inserts or replaces a grant by ID.
func (s *MemoryStore) Put(ctx context.Context, grant *Grant) error {
	if grant == nil {
		return fmt.Errorf("grant cannot be nil")
	}
	if grant.ID == "" {
		return fmt.Errorf("grant ID cannot be empty")
	}
	if grant.Identity == "" {
		return fmt.Errorf("grant identity cannot be empty")
	}
	if grant.Tokens <= 0 {
		return fmt.Errorf("grant tokens must be positive")
	}

	copied := *grant
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[copied.ID] = &copied
	return nil
}

// Get retrieves a grant by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grant, ok := s.grants[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *grant
	return &copied, nil
}

// Delete removes a grant by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, id)
	return nil
}

// List returns all grants for an identity, expired ones included.
func (s *MemoryStore) List(ctx context.Context, identity string) ([]*Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Grant
	for _, grant := range s.grants {
		if grant.Identity == identity {
			copied := *grant
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Allowance returns the sum of unexpired grant tokens for an identity.
func (s *MemoryStore) Allowance(ctx context.Context, identity string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var total int64
	for _, grant := range s.grants {
		if grant.Identity == identity && !grant.Expired(now) {
			total += grant.Tokens
		}
	}
	return total, nil
}

// DeleteExpired removes grants that expired before the given instant.
func (s *MemoryStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, grant := range s.grants {
		if !grant.ExpiresAt.IsZero() && !before.Before(grant.ExpiresAt) {
			delete(s.grants, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
