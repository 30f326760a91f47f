package counter

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()

	current := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	store := NewMemoryStoreWithConfig(MemoryStoreConfig{JanitorInterval: time.Hour})
	store.now = func() time.Time { return current }
	t.Cleanup(func() { store.Close() })

	return store, &current
}

func TestMemoryStore_IncrCreatesAtOne(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	val, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if val != 1 {
		t.Errorf("Expected 1 after first Incr, got %d", val)
	}

	val, err = store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if val != 2 {
		t.Errorf("Expected 2 after second Incr, got %d", val)
	}
}

func TestMemoryStore_GetAbsentReturnsZero(t *testing.T) {
	store, _ := newTestStore(t)

	val, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != 0 {
		t.Errorf("Expected 0 for absent key, got %d", val)
	}
}

func TestMemoryStore_IncrBy(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.IncrBy(ctx, "tokens", 87); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
	val, err := store.IncrBy(ctx, "tokens", 13)
	if err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
	if val != 100 {
		t.Errorf("Expected 100, got %d", val)
	}
}

func TestMemoryStore_TTLOnlyOnCreation(t *testing.T) {
	store, current := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}

	// 30 seconds later another Incr must not extend the original deadline.
	*current = current.Add(30 * time.Second)
	if _, err := store.Incr(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}

	// 31 more seconds puts us past the creation deadline.
	*current = current.Add(31 * time.Second)
	val, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != 0 {
		t.Errorf("Expected key to expire at creation deadline, got %d", val)
	}
}

func TestMemoryStore_ExpireReappliesTTL(t *testing.T) {
	store, current := newTestStore(t)
	ctx := context.Background()

	if _, err := store.IncrBy(ctx, "k", 5); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
	if err := store.Expire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Expire: %v", err)
	}

	*current = current.Add(59 * time.Second)
	if val, _ := store.Get(ctx, "k"); val != 5 {
		t.Errorf("Expected 5 before expiry, got %d", val)
	}

	*current = current.Add(2 * time.Second)
	if val, _ := store.Get(ctx, "k"); val != 0 {
		t.Errorf("Expected 0 after expiry, got %d", val)
	}
}

func TestMemoryStore_ExpireAbsentKeyIsNoop(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Expire(context.Background(), "missing", time.Minute); err != nil {
		t.Fatalf("Expire on absent key: %v", err)
	}
	if val, _ := store.Get(context.Background(), "missing"); val != 0 {
		t.Errorf("Expected absent key to stay absent, got %d", val)
	}
}

func TestMemoryStore_FreshReadAfterExpiryStartsAtOne(t *testing.T) {
	store, current := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}

	*current = current.Add(2 * time.Minute)

	val, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if val != 1 {
		t.Errorf("Expected counter to restart at 1 after expiry, got %d", val)
	}
}

func TestMemoryStore_ConcurrentIncr(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := store.Incr(ctx, "shared", time.Minute); err != nil {
					t.Errorf("Incr: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	val, err := store.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != workers*perWorker {
		t.Errorf("Lost updates: expected %d, got %d", workers*perWorker, val)
	}
}

func TestMemoryStore_JanitorReapsExpired(t *testing.T) {
	store, current := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "a", time.Minute); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if _, err := store.IncrBy(ctx, "b", 3); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}

	*current = current.Add(2 * time.Minute)
	store.reap()

	if size := store.Size(); size != 1 {
		t.Errorf("Expected 1 live key after reap (no-expiry key survives), got %d", size)
	}
}
