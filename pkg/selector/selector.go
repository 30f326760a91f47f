package selector

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Default hysteresis parameters.
const (
	// DefaultTripThreshold is the load fraction that forces the degraded tier.
	DefaultTripThreshold = 0.70

	// DefaultRecoveryThreshold is the load fraction below which the
	// selector may leave the degraded tier.
	DefaultRecoveryThreshold = 0.50

	// DefaultCooldown is the minimum dwell time in the degraded tier after
	// a trip.
	DefaultCooldown = 5 * time.Minute
)

// LoadReader reports the global usage fractions the selector keys off.
// The quota ledger implements it.
type LoadReader interface {
	LoadFractions(ctx context.Context) (rpmFraction, tpdFraction float64, err error)
}

// Config configures a Selector.
type Config struct {
	// PrimaryTier is the full-capability tier name.
	PrimaryTier string

	// DegradedTier is the cheaper tier used under load.
	DegradedTier string

	// TripThreshold forces the degraded tier when either load fraction
	// exceeds it. Default: 0.70
	TripThreshold float64

	// RecoveryThreshold permits leaving the degraded tier once both load
	// fractions are below it. Must be below TripThreshold. Default: 0.50
	RecoveryThreshold float64

	// Cooldown is the hold window after a trip. Default: 5m
	Cooldown time.Duration

	// Logger receives tier transition logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Selector picks the model tier for each request.
type Selector struct {
	load     LoadReader
	primary  string
	degraded string

	trip     float64
	recovery float64
	cooldown time.Duration

	// holdUntil is the fallback deadline in unix nanoseconds; 0 means no
	// hold. A plain atomic value: last-writer-wins on concurrent trips is
	// acceptable, torn reads are not.
	holdUntil atomic.Int64

	logger *slog.Logger
	now    func() time.Time
}

// New creates a Selector over the given load reader.
func New(load LoadReader, cfg Config) *Selector {
	if cfg.TripThreshold <= 0 {
		cfg.TripThreshold = DefaultTripThreshold
	}
	if cfg.RecoveryThreshold <= 0 {
		cfg.RecoveryThreshold = DefaultRecoveryThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Selector{
		load:     load,
		primary:  cfg.PrimaryTier,
		degraded: cfg.DegradedTier,
		trip:     cfg.TripThreshold,
		recovery: cfg.RecoveryThreshold,
		cooldown: cfg.Cooldown,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Select returns the tier to serve the next request with. preferredTier is
// honored only when no fallback condition applies; pass "" for the default.
//
// A load read failure selects the degraded tier: selection is advisory, so
// on uncertainty the cheaper tier is the conservative answer.
func (s *Selector) Select(ctx context.Context, identity string, preferredTier string) string {
	now := s.now()

	// Hysteresis hold: once tripped, stay degraded for the whole cooldown
	// regardless of instantaneous load.
	if deadline := s.holdUntil.Load(); deadline != 0 && now.UnixNano() < deadline {
		return s.degraded
	}

	rpmFraction, tpdFraction, err := s.load.LoadFractions(ctx)
	if err != nil {
		s.logger.Warn("load read failed, selecting degraded tier",
			"identity", identity,
			"error", err,
		)
		return s.degraded
	}

	if rpmFraction > s.trip || tpdFraction > s.trip {
		deadline := now.Add(s.cooldown)
		s.holdUntil.Store(deadline.UnixNano())
		s.logger.Info("load tripped fallback threshold",
			"rpm_fraction", rpmFraction,
			"tpd_fraction", tpdFraction,
			"hold_until", deadline,
		)
		return s.degraded
	}

	if rpmFraction < s.recovery && tpdFraction < s.recovery {
		if s.holdUntil.Swap(0) != 0 {
			s.logger.Info("load recovered, fallback cleared",
				"rpm_fraction", rpmFraction,
				"tpd_fraction", tpdFraction,
			)
		}
	}

	if preferredTier == s.degraded || preferredTier == s.primary {
		return preferredTier
	}
	return s.primary
}

// Tiers returns the configured primary and degraded tier names.
func (s *Selector) Tiers() (primary, degraded string) {
	return s.primary, s.degraded
}
