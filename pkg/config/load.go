package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// TOLLGATE_* environment variable overrides. Environment variables always
// take precedence over file values.
func LoadWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies TOLLGATE_SECTION_FIELD environment overrides.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.ListenAddress, "TOLLGATE_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "TOLLGATE_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "TOLLGATE_SERVER_WRITE_TIMEOUT")

	setString(&cfg.Store.Backend, "TOLLGATE_STORE_BACKEND")
	setString(&cfg.Store.Redis.Addr, "TOLLGATE_REDIS_ADDR")
	setString(&cfg.Store.Redis.Password, "TOLLGATE_REDIS_PASSWORD")
	setInt(&cfg.Store.Redis.DB, "TOLLGATE_REDIS_DB")

	setInt64(&cfg.Limits.Global.RPM, "TOLLGATE_LIMITS_GLOBAL_RPM")
	setInt64(&cfg.Limits.Global.RPD, "TOLLGATE_LIMITS_GLOBAL_RPD")
	setInt64(&cfg.Limits.Global.TPM, "TOLLGATE_LIMITS_GLOBAL_TPM")
	setInt64(&cfg.Limits.Global.TPD, "TOLLGATE_LIMITS_GLOBAL_TPD")
	setInt64(&cfg.Limits.Identity.RPD, "TOLLGATE_LIMITS_IDENTITY_RPD")
	setInt64(&cfg.Limits.Identity.TPD, "TOLLGATE_LIMITS_IDENTITY_TPD")

	setString(&cfg.Provider.BaseURL, "TOLLGATE_PROVIDER_BASE_URL")
	setString(&cfg.Provider.APIKey, "TOLLGATE_PROVIDER_API_KEY")
	setDuration(&cfg.Provider.Timeout, "TOLLGATE_PROVIDER_TIMEOUT")

	setString(&cfg.Selector.PrimaryTier, "TOLLGATE_SELECTOR_PRIMARY_TIER")
	setString(&cfg.Selector.DegradedTier, "TOLLGATE_SELECTOR_DEGRADED_TIER")

	setString(&cfg.Grants.DBPath, "TOLLGATE_GRANTS_DB_PATH")

	setString(&cfg.Logging.Level, "TOLLGATE_LOG_LEVEL")
	setString(&cfg.Logging.Format, "TOLLGATE_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setInt64(dst *int64, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
