package counter

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-process map.
// This is the default backend and provides fast access with no persistence.
// All counters are lost when the process exits.
//
// MemoryStore is thread-safe; a background janitor reaps expired keys so the
// map does not grow without bound under rolling bucket keys.
type MemoryStore struct {
	// entries maps key to counter value and deadline.
	entries map[string]*memoryEntry

	// mu protects access to entries.
	mu sync.Mutex

	// janitorInterval is how often expired keys are reaped.
	janitorInterval time.Duration

	// done signals the janitor goroutine to stop.
	done chan struct{}

	closeOnce sync.Once

	// now is the clock; overridable in tests.
	now func() time.Time
}

type memoryEntry struct {
	value int64

	// deadline is the zero time when the key has no expiry.
	deadline time.Time
}

// MemoryStoreConfig configures the memory store.
type MemoryStoreConfig struct {
	// JanitorInterval is how often to reap expired keys.
	// Default: 1 minute
	JanitorInterval time.Duration
}

// NewMemoryStore creates a new in-memory counter store with default settings.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{})
}

// NewMemoryStoreWithConfig creates a new in-memory counter store with custom
// configuration.
func NewMemoryStoreWithConfig(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}

	store := &MemoryStore{
		entries:         make(map[string]*memoryEntry),
		janitorInterval: cfg.JanitorInterval,
		done:            make(chan struct{}),
		now:             time.Now,
	}

	go store.janitorLoop()

	return store
}

// Incr atomically increments the counter at key, creating it at 1 if absent.
// The ttl is applied only on creation.
func (m *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.liveEntryLocked(key)
	if entry == nil {
		entry = &memoryEntry{}
		if ttl > 0 {
			entry.deadline = m.now().Add(ttl)
		}
		m.entries[key] = entry
	}
	entry.value++
	return entry.value, nil
}

// IncrBy atomically adds n to the counter at key, creating it at n if absent.
func (m *MemoryStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.liveEntryLocked(key)
	if entry == nil {
		entry = &memoryEntry{}
		m.entries[key] = entry
	}
	entry.value += n
	return entry.value, nil
}

// Get returns the counter value at key, or 0 if absent or expired.
func (m *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.liveEntryLocked(key)
	if entry == nil {
		return 0, nil
	}
	return entry.value, nil
}

// Expire sets the expiry of an existing key. No-op if the key is absent.
func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.liveEntryLocked(key)
	if entry == nil {
		return nil
	}
	entry.deadline = m.now().Add(ttl)
	return nil
}

// Ping always succeeds for the in-process store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor goroutine.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

// Size returns the number of live keys. Useful for monitoring and tests.
func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := m.now()
	for _, entry := range m.entries {
		if entry.deadline.IsZero() || entry.deadline.After(now) {
			n++
		}
	}
	return n
}

// liveEntryLocked returns the entry for key, deleting and masking it when
// expired. Caller must hold mu.
func (m *MemoryStore) liveEntryLocked(key string) *memoryEntry {
	entry, ok := m.entries[key]
	if !ok {
		return nil
	}
	if !entry.deadline.IsZero() && !entry.deadline.After(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return entry
}

// janitorLoop periodically reaps expired keys.
func (m *MemoryStore) janitorLoop() {
	ticker := time.NewTicker(m.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reap()
		case <-m.done:
			return
		}
	}
}

// reap deletes all expired keys.
func (m *MemoryStore) reap() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if !entry.deadline.IsZero() && !entry.deadline.After(now) {
			delete(m.entries, key)
		}
	}
}
