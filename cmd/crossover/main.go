package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "crossover",
	Short: "crossover - SMA crossover signal and backtest engine",
	Long: `crossover computes fast and slow simple moving averages over daily closes,
derives Long/Flat signals and Enter/Exit transitions, and backtests them.
It runs one-off backtests from the command line or serves them over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
