package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/app"
	"github.com/crossvenue/opinion-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var proCmd = &cobra.Command{
	Use:   "pro",
	Short: "Run the taker scan loop",
	Long: `Scans the configured market matches for immediate arbitrage: when the
effective YES cost on one venue plus the NO cost on the other stays
below the threshold, both legs are fired as taker orders.

The loop repeats every PRO_LOOP_INTERVAL; use --once for a single scan.`,
	RunE: runPro,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(proCmd)
	proCmd.Flags().StringP("matches-file", "m", "matches.json",
		"comma-separated list of market match files")
	proCmd.Flags().Bool("once", false, "run a single scan cycle and exit")
	proCmd.Flags().Duration("interval", 0, "override PRO_LOOP_INTERVAL")
}

func runPro(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.ProLoopInterval = interval
	}

	matchesFile, _ := cmd.Flags().GetString("matches-file")
	once, _ := cmd.Flags().GetBool("once")

	application, err := app.New(cfg, logger, &app.Options{
		Mode:        app.ModePro,
		MatchesFile: matchesFile,
		Once:        once,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		// Balance exhaustion and other fail-stops exit non-zero.
		logger.Error("engine-stopped-on-fatal-error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	return nil
}

func loadConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LiquidityDebug)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}
