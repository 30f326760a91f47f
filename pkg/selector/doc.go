// Package selector chooses the downstream model tier based on current
// global load.
//
// Naive threshold crossing flaps between tiers when usage hovers near the
// boundary. The selector avoids that with hysteresis: tripping the high
// threshold pins the degraded tier for a cooldown window, and the pin can
// only clear after load falls below a separate, lower recovery threshold.
// This guarantees a minimum dwell time in the degraded tier.
//
// The fallback deadline is a single atomically-swapped value. Concurrent
// trips are last-writer-wins; readers always see a committed value, never a
// torn one. The selector is advisory only — quota correctness never depends
// on it.
package selector
