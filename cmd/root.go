// Package cmd holds the CLI surface of the engine.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "opinion-arb",
	Short: "Cross-venue prediction market arbitrage engine",
	Long: `Arbitrage engine between Opinion and Polymarket prediction markets.

The engine scans paired markets for YES/NO price dislocations, fires
taker leg pairs when the combined cost clears the threshold, and can
run a maker mode that rests improving bids on Opinion hedged against
Polymarket liquidity.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; the environment may be set directly.
		_ = godotenv.Load()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
