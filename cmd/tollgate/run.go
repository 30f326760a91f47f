package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/counter"
	"tollgate-hq/tollgate/pkg/gateway"
	"tollgate-hq/tollgate/pkg/processing/tokens"
	"tollgate-hq/tollgate/pkg/providers"
	"tollgate-hq/tollgate/pkg/providers/openai"
	"tollgate-hq/tollgate/pkg/quota"
	"tollgate-hq/tollgate/pkg/quota/grants"
	"tollgate-hq/tollgate/pkg/selector"
	"tollgate-hq/tollgate/pkg/server"
	"tollgate-hq/tollgate/pkg/telemetry/logging"
	"tollgate-hq/tollgate/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watchConfig   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Tollgate gateway server",
	Long: `Start the Tollgate gateway with the specified configuration.

The server admits completion requests against the configured global and
per-identity quotas, selects a model tier based on load, forwards to the
downstream provider and reconciles actual token usage.

Examples:
  # Start with default config
  tollgate run

  # Start with custom config
  tollgate run --config /etc/tollgate/config.yaml

  # Override listen address
  tollgate run --listen 0.0.0.0:8080

  # Validate config without starting the server
  tollgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
	runCmd.Flags().BoolVar(&runFlags.watchConfig, "watch-config", true, "warn when the config file changes on disk")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	// Flag overrides beat both file and environment.
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Counter store
	var store counter.Store
	switch cfg.Store.Backend {
	case "redis":
		store = counter.NewRedisStore(counter.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		})
	default:
		store = counter.NewMemoryStore()
	}
	defer store.Close()
	logger.Info("counter store initialized", "backend", cfg.Store.Backend)

	// Grant store and expiry sweep
	var allowance quota.AllowanceSource
	if cfg.Grants.Enabled {
		var grantStore grants.Store
		if cfg.Grants.DBPath != "" {
			grantStore, err = grants.NewSQLiteStore(cfg.Grants.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open grant store: %w", err)
			}
		} else {
			grantStore = grants.NewMemoryStore()
		}
		defer grantStore.Close()

		sweeper := grants.NewSweeper(grantStore, cfg.Grants.SweepSchedule, logger)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start grant sweeper: %w", err)
		}
		allowance = grantStore
		logger.Info("grant store initialized", "db_path", cfg.Grants.DBPath)
	}

	// Quota ledger and tier selector
	ledger := quota.NewLedger(store, quota.Config{
		Global:    cfg.Limits.Global,
		Identity:  cfg.Limits.Identity,
		Allowance: allowance,
		Logger:    logger,
	})
	sel := selector.New(ledger, selector.Config{
		PrimaryTier:       cfg.Selector.PrimaryTier,
		DegradedTier:      cfg.Selector.DegradedTier,
		TripThreshold:     cfg.Selector.TripThreshold,
		RecoveryThreshold: cfg.Selector.RecoveryThreshold,
		Cooldown:          cfg.Selector.Cooldown,
		Logger:            logger,
	})

	// Downstream provider
	provider, err := openai.NewProvider(providers.ProviderConfig{
		BaseURL:    cfg.Provider.BaseURL,
		APIKey:     cfg.Provider.APIKey,
		Timeout:    cfg.Provider.Timeout,
		MaxRetries: cfg.Provider.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	defer provider.Close()

	collector := metrics.NewCollector(cfg.Metrics, nil)

	router, err := gateway.NewRouter(gateway.RouterConfig{
		Ledger:    ledger,
		Selector:  sel,
		Estimator: tokens.NewWordEstimator(cfg.Estimator.TokensPerWord),
		Provider:  provider,
		Metrics:   collector,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// Advisory config watcher: limits stay fixed for the process lifetime,
	// the watcher only announces that a restart is needed.
	if runFlags.watchConfig {
		go func() {
			if err := config.Watch(ctx, cfgFile, logger); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(cfg.Server, router, store, collector, logger)
	logger.Info("tollgate starting",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"primary_tier", cfg.Selector.PrimaryTier,
		"degraded_tier", cfg.Selector.DegradedTier,
	)
	return srv.Start(ctx)
}
