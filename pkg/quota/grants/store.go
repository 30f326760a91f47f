package grants

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a grant does not exist.
var ErrNotFound = errors.New("grant not found")

// Store persists grants and answers allowance queries.
type Store interface {
	// Put inserts or replaces a grant by ID.
	Put(ctx context.Context, grant *Grant) error

	// Get retrieves a grant by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Grant, error)

	// Delete removes a grant by ID. Deleting an absent grant is a no-op.
	Delete(ctx context.Context, id string) error

	// List returns all grants for an identity, expired ones included.
	List(ctx context.Context, identity string) ([]*Grant, error)

	// Allowance returns the sum of unexpired grant tokens for an identity.
	Allowance(ctx context.Context, identity string) (int64, error)

	// DeleteExpired removes grants that expired before the given instant
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
