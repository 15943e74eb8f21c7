package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BreakerEnabled indicates whether order placement is allowed.
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_breaker_enabled",
		Help: "Whether the balance breaker allows order placement (1=enabled, 0=disabled)",
	})

	// BreakerBalance tracks the last checked USDC balance.
	BreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_breaker_balance_usdc",
		Help: "Last checked USDC balance in the wallet",
	})

	// BreakerDisableThreshold tracks the balance floor that trips the breaker.
	BreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_breaker_disable_threshold_usdc",
		Help: "USDC balance below which order placement is halted",
	})

	// BreakerEnableThreshold tracks the balance needed to re-enable placement.
	BreakerEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_breaker_enable_threshold_usdc",
		Help: "USDC balance above which order placement resumes (hysteresis)",
	})

	// BreakerAvgTradeSize tracks the rolling average trade size.
	BreakerAvgTradeSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_breaker_avg_trade_size_usdc",
		Help: "Rolling average trade size used for threshold calculation",
	})

	// BreakerStateChanges counts enabled/disabled transitions.
	BreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_breaker_state_changes_total",
		Help: "Total number of breaker state transitions",
	})

	// BreakerCheckDuration tracks the time taken to check the balance.
	BreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_arb_breaker_check_duration_seconds",
		Help:    "Time taken to check the wallet balance",
		Buckets: prometheus.DefBuckets,
	})
)
