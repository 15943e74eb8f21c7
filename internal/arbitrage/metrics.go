package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks detected opportunities by strategy.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected",
		},
		[]string{"strategy"},
	)

	// OpportunitiesRejectedTotal tracks rejected candidates by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_opportunities_rejected_total",
			Help: "Total number of arbitrage candidates rejected",
		},
		[]string{"reason"},
	)

	// OpportunityCost tracks the fee-inclusive combined cost of detected
	// opportunities.
	OpportunityCost = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_arb_opportunity_cost",
		Help:    "Combined fee-inclusive cost per token pair of detected opportunities",
		Buckets: []float64{0.90, 0.92, 0.94, 0.95, 0.96, 0.97, 0.98, 0.99},
	})

	// ScanDurationSeconds tracks full scan cycle latency.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_arb_scan_duration_seconds",
		Help:    "Duration of one full opportunity scan over all matches",
		Buckets: prometheus.DefBuckets,
	})
)
