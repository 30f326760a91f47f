package config

import (
	"errors"
	"fmt"
	"time"

	"tollgate-hq/tollgate/pkg/quota"
	"tollgate-hq/tollgate/pkg/selector"
	"tollgate-hq/tollgate/pkg/telemetry/logging"
	"tollgate-hq/tollgate/pkg/telemetry/metrics"
)

// ErrMissingCredential is returned when a required credential is absent.
// The process must refuse to start rather than run with an unauthenticated
// provider.
var ErrMissingCredential = errors.New("missing required credential")

// Config is the root configuration for the gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Limits    LimitsConfig    `yaml:"limits"`
	Selector  SelectorConfig  `yaml:"selector"`
	Provider  ProviderConfig  `yaml:"provider"`
	Grants    GrantsConfig    `yaml:"grants"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Logging   logging.Config  `yaml:"logging"`
	Metrics   metrics.Config  `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port to bind. Default: ":8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout caps how long reading a request may take. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout caps how long writing a response may take; it must
	// cover the full downstream call. Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is how long graceful shutdown waits for in-flight
	// requests. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the counter store backend.
type StoreConfig struct {
	// Backend is "memory" or "redis". Default: "memory"
	Backend string `yaml:"backend"`

	// Redis configures the redis backend; ignored for memory.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis counter store.
type RedisConfig struct {
	// Addr is the host:port of the redis server. Default: "localhost:6379"
	Addr string `yaml:"addr"`

	// Password authenticates to redis; empty for none.
	Password string `yaml:"password"`

	// DB is the redis database number.
	DB int `yaml:"db"`

	// KeyPrefix namespaces all counter keys. Default: "tollgate:"
	KeyPrefix string `yaml:"key_prefix"`
}

// LimitsConfig holds the quota ceilings. Zero or negative values disable
// a dimension.
type LimitsConfig struct {
	Global   quota.GlobalLimits   `yaml:"global"`
	Identity quota.IdentityLimits `yaml:"identity"`
}

// SelectorConfig configures tier selection and its hysteresis.
type SelectorConfig struct {
	// PrimaryTier is the full-capability model tier.
	PrimaryTier string `yaml:"primary_tier"`

	// DegradedTier is the cheaper tier used under load.
	DegradedTier string `yaml:"degraded_tier"`

	// TripThreshold forces the degraded tier. Default: 0.70
	TripThreshold float64 `yaml:"trip_threshold"`

	// RecoveryThreshold permits recovery. Default: 0.50
	RecoveryThreshold float64 `yaml:"recovery_threshold"`

	// Cooldown is the post-trip hold window. Default: 5m
	Cooldown time.Duration `yaml:"cooldown"`
}

// ProviderConfig configures the downstream completion provider.
type ProviderConfig struct {
	// BaseURL is the provider's API base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates to the provider. Required; may come from the
	// TOLLGATE_PROVIDER_API_KEY environment variable instead.
	APIKey string `yaml:"api_key"`

	// Timeout caps each downstream call. Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries caps retry attempts for transient failures. Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// GrantsConfig configures the token grant store.
type GrantsConfig struct {
	// Enabled turns grant lookups on.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database file. Empty selects the in-memory
	// store.
	DBPath string `yaml:"db_path"`

	// SweepSchedule is the cron expression for expired-grant cleanup.
	// Default: "0 3 * * *"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// EstimatorConfig configures pre-flight token estimation.
type EstimatorConfig struct {
	// TokensPerWord scales the word count. Default: 0.75
	TokensPerWord float64 `yaml:"tokens_per_word"`
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Redis.Addr == "" {
		cfg.Store.Redis.Addr = "localhost:6379"
	}
	if cfg.Store.Redis.KeyPrefix == "" {
		cfg.Store.Redis.KeyPrefix = "tollgate:"
	}

	if cfg.Selector.TripThreshold == 0 {
		cfg.Selector.TripThreshold = selector.DefaultTripThreshold
	}
	if cfg.Selector.RecoveryThreshold == 0 {
		cfg.Selector.RecoveryThreshold = selector.DefaultRecoveryThreshold
	}
	if cfg.Selector.Cooldown == 0 {
		cfg.Selector.Cooldown = selector.DefaultCooldown
	}

	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 60 * time.Second
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 3
	}

	if cfg.Grants.SweepSchedule == "" {
		cfg.Grants.SweepSchedule = "0 3 * * *"
	}

	if cfg.Estimator.TokensPerWord == 0 {
		cfg.Estimator.TokensPerWord = 0.75
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "tollgate"
	}
}

// Validate checks the configuration for fatal problems. A missing
// provider API key is fatal: the gate must not start half-configured.
func Validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store backend %q (want memory or redis)", cfg.Store.Backend)
	}

	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key: %w", ErrMissingCredential)
	}

	if cfg.Selector.PrimaryTier == "" {
		return fmt.Errorf("selector.primary_tier is required")
	}
	if cfg.Selector.DegradedTier == "" {
		return fmt.Errorf("selector.degraded_tier is required")
	}
	if cfg.Selector.RecoveryThreshold >= cfg.Selector.TripThreshold {
		return fmt.Errorf("selector.recovery_threshold (%.2f) must be below trip_threshold (%.2f)",
			cfg.Selector.RecoveryThreshold, cfg.Selector.TripThreshold)
	}
	if cfg.Selector.TripThreshold > 1.0 {
		return fmt.Errorf("selector.trip_threshold (%.2f) must not exceed 1.0", cfg.Selector.TripThreshold)
	}

	if cfg.Estimator.TokensPerWord < 0 {
		return fmt.Errorf("estimator.tokens_per_word must not be negative")
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}
