package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeMatches(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validMatches = `[
  {
    "question": "will it rain",
    "opinion_market_id": 101,
    "opinion_yes_token": "op-yes",
    "opinion_no_token": "op-no",
    "polymarket_condition_id": "0xabc",
    "polymarket_yes_token": "pm-yes",
    "polymarket_no_token": "pm-no",
    "polymarket_slug": "will-it-rain",
    "cutoff_at": 1924992000,
    "polymarket_neg_risk": true
  }
]`

func TestLoadMatches(t *testing.T) {
	path := writeMatches(t, "matches.json", validMatches)

	matches, err := LoadMatches(path, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "will it rain", m.Question)
	assert.Equal(t, int64(101), m.MarketIDA)
	assert.Equal(t, "op-yes", m.YesTokenA)
	assert.Equal(t, "pm-no", m.NoTokenB)
	assert.Equal(t, "will-it-rain", m.SlugB)
	assert.True(t, m.NegRiskB)
}

func TestLoadMatchesMultipleFiles(t *testing.T) {
	first := writeMatches(t, "a.json", validMatches)
	second := writeMatches(t, "b.json", `[
	  {
	    "question": "will it snow",
	    "opinion_market_id": 102,
	    "opinion_yes_token": "op2-yes",
	    "opinion_no_token": "op2-no",
	    "polymarket_yes_token": "pm2-yes",
	    "polymarket_no_token": "pm2-no",
	    "polymarket_slug": "will-it-snow"
	  }
	]`)

	matches, err := LoadMatches(first+","+second, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestLoadMatchesRejectsDuplicates(t *testing.T) {
	first := writeMatches(t, "a.json", validMatches)
	second := writeMatches(t, "b.json", validMatches)

	_, err := LoadMatches(first+","+second, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestLoadMatchesRejectsIncompleteEntry(t *testing.T) {
	path := writeMatches(t, "bad.json", `[
	  {
	    "question": "missing tokens",
	    "opinion_market_id": 103,
	    "polymarket_slug": "missing-tokens"
	  }
	]`)

	_, err := LoadMatches(path, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadMatchesMissingFile(t *testing.T) {
	_, err := LoadMatches(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop())
	assert.Error(t, err)
}

func TestLoadMatchesEmptyPath(t *testing.T) {
	_, err := LoadMatches("  ", zap.NewNop())
	assert.Error(t, err)
}
