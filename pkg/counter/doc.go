// Package counter provides the atomic counter primitive backing the quota
// ledger.
//
// # Overview
//
// A counter is a named integer with an optional expiry. The store knows
// nothing about time buckets or limits; it only guarantees per-key atomicity:
// concurrent increments on the same key never lose an update.
//
// Two backends are provided:
//
//   - Memory: mutex-guarded in-process map with a background janitor
//     (default, no persistence)
//   - Redis: go-redis backed store for multi-instance deployments
//
// # Failure semantics
//
// Every backend failure wraps ErrUnavailable. Callers are expected to treat
// an unavailable store as "deny", never as "quota available":
//
//	if _, err := store.Get(ctx, key); errors.Is(err, counter.ErrUnavailable) {
//	    // fail closed
//	}
package counter
