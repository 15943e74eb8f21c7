package liquidity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stats aggregates maker-side counters for the periodic summary log and
// the ops endpoint.
type Stats struct {
	mu sync.Mutex

	fills      int64
	fillVolume float64

	hedges      int64
	hedgeVolume float64
	hedgeFails  int64

	startedAt time.Time
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Fills         int64   `json:"fills"`
	FillVolume    float64 `json:"fill_volume"`
	Hedges        int64   `json:"hedges"`
	HedgeVolume   float64 `json:"hedge_volume"`
	HedgeFailures int64   `json:"hedge_failures"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewStats creates a stats aggregator with uptime starting now.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// RecordFill counts one observed fill delta.
func (s *Stats) RecordFill(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills++
	s.fillVolume += volume
}

// RecordHedge counts one placed hedge step.
func (s *Stats) RecordHedge(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hedges++
	s.hedgeVolume += volume
}

// RecordHedgeFailure counts one hedge loop that stopped short.
func (s *Stats) RecordHedgeFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hedgeFails++
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Fills:         s.fills,
		FillVolume:    s.fillVolume,
		Hedges:        s.hedges,
		HedgeVolume:   s.hedgeVolume,
		HedgeFailures: s.hedgeFails,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
}

// LogSummary emits the periodic counters line.
func (s *Stats) LogSummary(logger *zap.Logger) {
	snap := s.Snapshot()
	logger.Info("liquidity-stats",
		zap.Int64("fills", snap.Fills),
		zap.Float64("fill-volume", snap.FillVolume),
		zap.Int64("hedges", snap.Hedges),
		zap.Float64("hedge-volume", snap.HedgeVolume),
		zap.Int64("hedge-failures", snap.HedgeFailures),
		zap.Float64("uptime-hours", snap.UptimeSeconds/3600))
}
