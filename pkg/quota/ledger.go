package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tollgate-hq/tollgate/pkg/counter"
)

// Counter TTLs. Record re-applies these unconditionally so a key created by
// an earlier bucket-key derivation still expires at its window boundary.
const (
	minuteTTL = 60 * time.Second
	dayTTL    = 86400 * time.Second
)

// AllowanceSource reports extra granted tokens for an identity. The ledger
// adds the allowance to the identity's base tokens-per-day ceiling. An error
// falls back to the base ceiling; grants only ever raise it.
type AllowanceSource interface {
	Allowance(ctx context.Context, identity string) (int64, error)
}

// Ledger performs the admit/record/status operations over a counter store.
//
// The ledger holds no locks of its own: each admission only needs per-key
// atomicity, which the store provides. The reported remaining quota may be
// off by concurrent admissions, but no counter is incremented inconsistently
// and no request bypasses a hard limit.
type Ledger struct {
	store     counter.Store
	global    GlobalLimits
	identity  IdentityLimits
	allowance AllowanceSource
	logger    *slog.Logger
	now       func() time.Time
}

// Config configures a Ledger.
type Config struct {
	// Global are the ceilings shared across all identities.
	Global GlobalLimits

	// Identity are the per-identity ceilings.
	Identity IdentityLimits

	// Allowance optionally raises identity token ceilings by granted
	// tokens. May be nil.
	Allowance AllowanceSource

	// Logger receives allowance-lookup warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewLedger creates a Ledger over the given counter store.
func NewLedger(store counter.Store, cfg Config) *Ledger {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:     store,
		global:    cfg.Global,
		identity:  cfg.Identity,
		allowance: cfg.Allowance,
		logger:    logger,
		now:       time.Now,
	}
}

// bucketKeys holds the six counter keys for one identity at one instant.
type bucketKeys struct {
	globalReqMinute string
	globalReqDay    string
	globalTokMinute string
	globalTokDay    string
	identityReqDay  string
	identityTokDay  string
}

func (l *Ledger) keys(identity string, now time.Time) bucketKeys {
	return bucketKeys{
		globalReqMinute: BucketKey(ScopeGlobal, MetricRequests, "", GranularityMinute, now),
		globalReqDay:    BucketKey(ScopeGlobal, MetricRequests, "", GranularityDay, now),
		globalTokMinute: BucketKey(ScopeGlobal, MetricTokens, "", GranularityMinute, now),
		globalTokDay:    BucketKey(ScopeGlobal, MetricTokens, "", GranularityDay, now),
		identityReqDay:  BucketKey(ScopeIdentity, MetricRequests, identity, GranularityDay, now),
		identityTokDay:  BucketKey(ScopeIdentity, MetricTokens, identity, GranularityDay, now),
	}
}

// admissionCheck pairs a dimension with its violation predicate. The slice
// below is the fixed precedence order; Admit walks it and short-circuits on
// the first violation. A ceiling <= 0 disables its dimension.
type admissionCheck struct {
	dimension Dimension
	exceeded  func(u Usage, lim LimitSet, estimate int64) bool
}

var admissionChecks = []admissionCheck{
	{DimensionGlobalRPM, func(u Usage, lim LimitSet, _ int64) bool {
		return lim.RPM > 0 && u.RPM >= lim.RPM
	}},
	{DimensionGlobalRPD, func(u Usage, lim LimitSet, _ int64) bool {
		return lim.RPD > 0 && u.RPD >= lim.RPD
	}},
	{DimensionGlobalTPM, func(u Usage, lim LimitSet, estimate int64) bool {
		return lim.TPM > 0 && u.TPM+estimate > lim.TPM
	}},
	{DimensionGlobalTPD, func(u Usage, lim LimitSet, estimate int64) bool {
		return lim.TPD > 0 && u.TPD+estimate > lim.TPD
	}},
	{DimensionIdentityRPD, func(u Usage, lim LimitSet, _ int64) bool {
		return lim.IdentityRPD > 0 && u.IdentityRPD >= lim.IdentityRPD
	}},
	{DimensionIdentityTPD, func(u Usage, lim LimitSet, estimate int64) bool {
		return lim.IdentityTPD > 0 && u.IdentityTPD+estimate > lim.IdentityTPD
	}},
}

// Admit decides whether a request from identity with the given token
// estimate may proceed.
//
// On success only the request counters (global req/min, global req/day,
// identity req/day) are incremented; token counters stay untouched until
// Record replaces the estimate with actual consumption.
//
// On rejection no counter is mutated and Decision.Reason names the tripped
// dimension. A store failure returns an error wrapping
// counter.ErrUnavailable and must be treated as a denial.
func (l *Ledger) Admit(ctx context.Context, identity string, estimatedTokens int64) (*Decision, error) {
	now := l.now()
	keys := l.keys(identity, now)

	usage, err := l.readUsage(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("admit %q: %w", identity, err)
	}
	limits := l.limitSet(ctx, identity)

	for _, check := range admissionChecks {
		if check.exceeded(usage, limits, estimatedTokens) {
			return &Decision{
				Allowed: false,
				Reason:  check.dimension,
				Usage:   usage,
				Limits:  limits,
			}, nil
		}
	}

	// Reserve request-count capacity immediately; token accounting is
	// deferred to Record.
	if usage.RPM, err = l.store.Incr(ctx, keys.globalReqMinute, minuteTTL); err != nil {
		return nil, fmt.Errorf("admit %q: %w", identity, err)
	}
	if usage.RPD, err = l.store.Incr(ctx, keys.globalReqDay, dayTTL); err != nil {
		return nil, fmt.Errorf("admit %q: %w", identity, err)
	}
	if usage.IdentityRPD, err = l.store.Incr(ctx, keys.identityReqDay, dayTTL); err != nil {
		return nil, fmt.Errorf("admit %q: %w", identity, err)
	}

	return &Decision{
		Allowed: true,
		Usage:   usage,
		Limits:  limits,
	}, nil
}

// Record replaces the admission-time estimate with actual consumption,
// incrementing the global and identity token counters. Expiries are
// re-applied unconditionally so counters created by this call expire at
// their window boundary.
//
// Record must run exactly once per completed downstream call. Failures are
// for the caller to log; an already-served response is never re-rejected.
func (l *Ledger) Record(ctx context.Context, identity string, actualTokens int64) error {
	now := l.now()
	keys := l.keys(identity, now)

	increments := []struct {
		key string
		ttl time.Duration
	}{
		{keys.globalTokMinute, minuteTTL},
		{keys.globalTokDay, dayTTL},
		{keys.identityTokDay, dayTTL},
	}
	for _, inc := range increments {
		if _, err := l.store.IncrBy(ctx, inc.key, actualTokens); err != nil {
			return fmt.Errorf("record %q: %w", identity, err)
		}
		if err := l.store.Expire(ctx, inc.key, inc.ttl); err != nil {
			return fmt.Errorf("record %q: %w", identity, err)
		}
	}
	return nil
}

// Status returns the current usage and effective limits for identity with
// no side effects.
func (l *Ledger) Status(ctx context.Context, identity string) (*Snapshot, error) {
	usage, err := l.readUsage(ctx, l.keys(identity, l.now()))
	if err != nil {
		return nil, fmt.Errorf("status %q: %w", identity, err)
	}
	return &Snapshot{
		Usage:  usage,
		Limits: l.limitSet(ctx, identity),
	}, nil
}

// LoadFractions reports the global requests-per-minute and tokens-per-day
// usage fractions for model selection. A disabled ceiling reports 0.
func (l *Ledger) LoadFractions(ctx context.Context) (rpmFraction, tpdFraction float64, err error) {
	now := l.now()
	keys := l.keys("", now)

	rpm, err := l.store.Get(ctx, keys.globalReqMinute)
	if err != nil {
		return 0, 0, fmt.Errorf("load fractions: %w", err)
	}
	tpd, err := l.store.Get(ctx, keys.globalTokDay)
	if err != nil {
		return 0, 0, fmt.Errorf("load fractions: %w", err)
	}

	if l.global.RPM > 0 {
		rpmFraction = float64(rpm) / float64(l.global.RPM)
	}
	if l.global.TPD > 0 {
		tpdFraction = float64(tpd) / float64(l.global.TPD)
	}
	return rpmFraction, tpdFraction, nil
}

// readUsage assembles the six-counter snapshot. Any read failure aborts the
// whole snapshot so admission fails closed.
func (l *Ledger) readUsage(ctx context.Context, keys bucketKeys) (Usage, error) {
	var usage Usage
	reads := []struct {
		key  string
		dest *int64
	}{
		{keys.globalReqMinute, &usage.RPM},
		{keys.globalReqDay, &usage.RPD},
		{keys.globalTokMinute, &usage.TPM},
		{keys.globalTokDay, &usage.TPD},
		{keys.identityReqDay, &usage.IdentityRPD},
		{keys.identityTokDay, &usage.IdentityTPD},
	}
	for _, r := range reads {
		val, err := l.store.Get(ctx, r.key)
		if err != nil {
			return Usage{}, err
		}
		*r.dest = val
	}
	return usage, nil
}

// limitSet builds the effective ceilings for identity, raising the identity
// token ceiling by any grant allowance.
func (l *Ledger) limitSet(ctx context.Context, identity string) LimitSet {
	lim := LimitSet{
		RPM:         l.global.RPM,
		RPD:         l.global.RPD,
		TPM:         l.global.TPM,
		TPD:         l.global.TPD,
		IdentityRPD: l.identity.RPD,
		IdentityTPD: l.identity.TPD,
	}
	if l.allowance != nil && identity != "" && lim.IdentityTPD > 0 {
		extra, err := l.allowance.Allowance(ctx, identity)
		if err != nil {
			l.logger.Warn("grant allowance lookup failed, using base limit",
				"identity", identity,
				"error", err,
			)
		} else if extra > 0 {
			lim.IdentityTPD += extra
		}
	}
	return lim
}
