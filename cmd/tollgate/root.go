package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tollgate",
	Short: "Tollgate - quota and rate-limit gateway for completion APIs",
	Long: `Tollgate is a quota and rate-limiting gateway that sits in front of an
OpenAI-compatible completion API.

It gates every request through two layers of admission control:
  - Global ceilings shared across all callers (requests and tokens,
    per minute and per day)
  - Per-identity daily ceilings, optionally raised by token grants

Under load it degrades to a cheaper model tier with hysteresis, and it
fails closed when quota state is unavailable.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
