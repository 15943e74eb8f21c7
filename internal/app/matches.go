package app

import (
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

// LoadMatches reads market matches from a comma-separated list of JSON
// files. Each file holds an array of matches. Duplicate Opinion market
// ids across files are rejected.
func LoadMatches(paths string, logger *zap.Logger) ([]types.MarketMatch, error) {
	if strings.TrimSpace(paths) == "" {
		return nil, fmt.Errorf("no matches file given")
	}

	seen := make(map[int64]string)
	var matches []types.MarketMatch

	for _, path := range strings.Split(paths, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read matches file %s: %w", path, err)
		}

		var fileMatches []types.MarketMatch
		if err := json.Unmarshal(data, &fileMatches); err != nil {
			return nil, fmt.Errorf("parse matches file %s: %w", path, err)
		}

		for i := range fileMatches {
			m := &fileMatches[i]
			if err := validateMatch(m); err != nil {
				return nil, fmt.Errorf("matches file %s entry %d: %w", path, i, err)
			}
			if prev, dup := seen[m.MarketIDA]; dup {
				return nil, fmt.Errorf("matches file %s: opinion market %d already defined in %s",
					path, m.MarketIDA, prev)
			}
			seen[m.MarketIDA] = path
		}

		matches = append(matches, fileMatches...)
		logger.Info("matches-file-loaded",
			zap.String("path", path),
			zap.Int("count", len(fileMatches)))
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no matches loaded from %q", paths)
	}

	return matches, nil
}

func validateMatch(m *types.MarketMatch) error {
	switch {
	case m.Question == "":
		return fmt.Errorf("question missing")
	case m.MarketIDA <= 0:
		return fmt.Errorf("opinion_market_id missing for %q", m.Question)
	case m.YesTokenA == "" || m.NoTokenA == "":
		return fmt.Errorf("opinion tokens missing for %q", m.Question)
	case m.YesTokenB == "" || m.NoTokenB == "":
		return fmt.Errorf("polymarket tokens missing for %q", m.Question)
	case m.SlugB == "":
		return fmt.Errorf("polymarket_slug missing for %q", m.Question)
	}
	return nil
}
