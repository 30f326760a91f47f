package quota

import (
	"fmt"
	"time"
)

// Scope identifies which limit hierarchy a counter belongs to.
type Scope string

const (
	// ScopeGlobal scopes a counter across all identities.
	ScopeGlobal Scope = "global"

	// ScopeIdentity scopes a counter to a single identity.
	ScopeIdentity Scope = "identity"
)

// Granularity is the time window a bucket key covers.
type Granularity string

const (
	// GranularityMinute buckets by wall-clock minute.
	GranularityMinute Granularity = "minute"

	// GranularityDay buckets by wall-clock day.
	GranularityDay Granularity = "day"
)

// Metric is the quantity a counter tracks within its scope and granularity.
type Metric string

const (
	// MetricRequests counts admitted requests.
	MetricRequests Metric = "req"

	// MetricTokens counts consumed tokens.
	MetricTokens Metric = "tok"
)

// TimeBucket returns the bucket segment for now at the given granularity,
// derived from wall-clock UTC. Minute buckets look like "2024-1-1-10-30",
// day buckets like "2024-1-1". Buckets roll over purely via key change.
func TimeBucket(g Granularity, now time.Time) string {
	u := now.UTC()
	if g == GranularityMinute {
		return fmt.Sprintf("%d-%d-%d-%d-%d", u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute())
	}
	return fmt.Sprintf("%d-%d-%d", u.Year(), int(u.Month()), u.Day())
}

// BucketKey derives the counter key for one (scope, metric, identity,
// granularity) combination at time now. The identity segment is empty for
// global scope. Callers must treat the result as an opaque string.
//
// Format: {scope}:{metric}:{identity-or-empty}:{timeBucket}
func BucketKey(scope Scope, metric Metric, identity string, g Granularity, now time.Time) string {
	if scope == ScopeGlobal {
		identity = ""
	}
	return fmt.Sprintf("%s:%s:%s:%s", scope, metric, identity, TimeBucket(g, now))
}
