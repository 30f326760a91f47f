package counter

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store is unreachable or erroring.
// All backend failures wrap this sentinel so callers can fail closed with
// errors.Is.
var ErrUnavailable = errors.New("counter store unavailable")

// Store is the atomic counter primitive used by the quota ledger.
//
// Implementations must be safe for concurrent use and must provide per-key
// atomicity: two concurrent Incr calls on the same key return distinct
// values and never lose an update. Keys are opaque strings; the store does
// not interpret them.
type Store interface {
	// Incr atomically increments the counter at key, creating it at 1 if
	// absent. The ttl is applied only when the key is created; an existing
	// key keeps its original expiry. Returns the post-increment value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// IncrBy atomically adds n to the counter at key, creating it at n if
	// absent. No expiry is set; callers that create keys through IncrBy
	// must follow up with Expire.
	IncrBy(ctx context.Context, key string, n int64) (int64, error)

	// Get returns the current value of the counter at key, or 0 if the key
	// is absent or expired.
	Get(ctx context.Context, key string) (int64, error)

	// Expire sets the expiry of an existing key. No-op if the key is
	// absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
