package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without starting the server.

Checks YAML syntax, required fields (provider credentials, tier names)
and threshold ordering. Environment variable overrides are applied before
validation, matching what "tollgate run" would see.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Configuration valid (%s)\n", cfgFile)
		if verbose {
			fmt.Printf("  store backend:  %s\n", cfg.Store.Backend)
			fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
			fmt.Printf("  primary tier:   %s\n", cfg.Selector.PrimaryTier)
			fmt.Printf("  degraded tier:  %s\n", cfg.Selector.DegradedTier)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
