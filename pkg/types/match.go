package types

import "time"

// MarketMatch pairs one Opinion market with one Polymarket market covering
// the same proposition. Matches are immutable for the lifetime of a run and
// loaded once from file.
type MarketMatch struct {
	Question     string `json:"question"`
	MarketIDA    int64  `json:"opinion_market_id"`
	YesTokenA    string `json:"opinion_yes_token"`
	NoTokenA     string `json:"opinion_no_token"`
	ConditionIDB string `json:"polymarket_condition_id"`
	YesTokenB    string `json:"polymarket_yes_token"`
	NoTokenB     string `json:"polymarket_no_token"`
	SlugB        string `json:"polymarket_slug"`
	CutoffAt     int64  `json:"cutoff_at,omitempty"` // unix seconds, 0 = no cutoff
	FeeRateBpsB  int    `json:"polymarket_fee_rate_bps"`
	NegRiskB     bool   `json:"polymarket_neg_risk"`
}

// SecondsToCutoff returns the remaining time to cutoff in seconds,
// or false when the match carries no cutoff or the cutoff has passed.
func (m *MarketMatch) SecondsToCutoff(now time.Time) (float64, bool) {
	if m.CutoffAt == 0 {
		return 0, false
	}
	remaining := float64(m.CutoffAt) - float64(now.Unix())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}
