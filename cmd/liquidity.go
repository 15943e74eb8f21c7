package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var liquidityCmd = &cobra.Command{
	Use:   "liquidity",
	Short: "Run the maker provision loop",
	Long: `Rests improving YES/NO bids on Opinion wherever a profitable hedge is
visible on Polymarket. Fills are hedged immediately by walking the
Polymarket ask; quotes are repriced or cancelled as books move.

The loop repeats every LIQUIDITY_LOOP_INTERVAL; use --once for a single
reconciliation pass.`,
	RunE: runLiquidity,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(liquidityCmd)
	liquidityCmd.Flags().StringP("matches-file", "m", "matches.json",
		"comma-separated list of market match files")
	liquidityCmd.Flags().Bool("once", false, "run a single reconciliation pass and exit")
	liquidityCmd.Flags().Duration("interval", 0, "override LIQUIDITY_LOOP_INTERVAL")
}

func runLiquidity(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.LiquidityLoopInterval = interval
	}

	matchesFile, _ := cmd.Flags().GetString("matches-file")
	once, _ := cmd.Flags().GetBool("once")

	application, err := app.New(cfg, logger, &app.Options{
		Mode:        app.ModeLiquidity,
		MatchesFile: matchesFile,
		Once:        once,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		logger.Error("engine-stopped-on-fatal-error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	return nil
}
