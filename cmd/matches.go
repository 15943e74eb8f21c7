package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crossvenue/opinion-arb/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Validate and print the configured market matches",
	RunE:  runMatches,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(matchesCmd)
	matchesCmd.Flags().StringP("matches-file", "m", "matches.json",
		"comma-separated list of market match files")
}

func runMatches(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	matchesFile, _ := cmd.Flags().GetString("matches-file")
	matches, err := app.LoadMatches(matchesFile, logger)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}

	now := time.Now()
	for i := range matches {
		m := &matches[i]
		cutoff := "none"
		if remaining, ok := m.SecondsToCutoff(now); ok {
			cutoff = (time.Duration(remaining) * time.Second).String()
		} else if m.CutoffAt != 0 {
			cutoff = "passed"
		}
		fmt.Printf("%3d  opinion=%d  polymarket=%s  cutoff=%s  %q\n",
			i+1, m.MarketIDA, m.SlugB, cutoff, m.Question)
	}
	fmt.Printf("\n%d matches OK\n", len(matches))

	return nil
}
