package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks dispatched taker executions by strategy.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_executions_total",
			Help: "Total number of taker executions dispatched",
		},
		[]string{"strategy"},
	)

	// ExecutionsSkippedTotal tracks opportunities not executed by reason.
	ExecutionsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_executions_skipped_total",
			Help: "Total number of opportunities skipped before execution",
		},
		[]string{"reason"},
	)

	// ExecutionsDedupedTotal tracks cooldown deduplications.
	ExecutionsDedupedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_executions_deduped_total",
		Help: "Total number of executions suppressed by the cooldown gate",
	})

	// OrdersPlacedTotal tracks successfully placed taker orders by venue.
	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_taker_orders_placed_total",
			Help: "Total number of taker orders placed",
		},
		[]string{"venue"},
	)

	// OrderFailuresTotal tracks taker orders that exhausted retries.
	OrderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_taker_order_failures_total",
			Help: "Total number of taker orders that failed after retries",
		},
		[]string{"venue"},
	)

	// ExecutionDurationSeconds tracks per-opportunity execution latency.
	ExecutionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_arb_execution_duration_seconds",
		Help:    "Duration of one two-leg taker execution",
		Buckets: prometheus.DefBuckets,
	})
)
