// Package quota implements the dual-layer quota ledger that gates access to
// the completion provider.
//
// # Overview
//
// The ledger tracks two independent limit hierarchies over time-bucketed
// counters:
//
//   - Global limits: requests/min, requests/day, tokens/min, tokens/day,
//     shared across all identities
//   - Per-identity limits: requests/day and tokens/day, scoped to one
//     identity
//
// Counters live in a counter.Store and roll over naturally via key change;
// old buckets expire on their own TTL, so no reset logic exists.
//
// # Admission
//
// Admit evaluates the six limit dimensions in fixed precedence and
// short-circuits on the first violation. On success it increments only the
// request counters; token counters are deliberately untouched, because the
// estimate must not pollute the day-level ledger before the true cost is
// known. Record replaces the estimate with actual consumption after the
// downstream call completes.
//
// # Failure semantics
//
// Any counter store failure during admission fails closed: the request is
// denied, never allowed on uncertainty.
package quota
