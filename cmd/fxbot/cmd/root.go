package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxbot/logx"
)

var rootCmd = &cobra.Command{
	Use:   "fxbot",
	Short: "An automated currency-pair trading core",
	Long: `Fxbot is an automated trading core for currency pairs.

It provides:
  - Indicator-based signal generation (moving averages, RSI, Bollinger bands, channels)
  - Strategy evaluation with trend-following, mean-reversion and breakout strategies
  - Risk gating with confidence, sizing, exposure and daily-loss controls
  - A position ledger with idempotent order submission and retry on transient failures
  - A SQLite trade journal with equity snapshots and lifecycle events`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.SetLevel(logLevel)
	},
}

var logLevel string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
