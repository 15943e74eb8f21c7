package liquidity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveOrders tracks the size of the active maker set.
	ActiveOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_liquidity_active_orders",
		Help: "Number of resting maker orders in the active set",
	})

	// OrdersPlacedTotal tracks maker orders placed.
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_liquidity_orders_placed_total",
		Help: "Total number of maker orders placed",
	})

	// OrdersCancelledTotal tracks confirmed maker cancels by reason.
	OrdersCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_liquidity_orders_cancelled_total",
			Help: "Total number of maker orders cancelled",
		},
		[]string{"reason"},
	)

	// CancelFailuresTotal tracks cancel attempts that did not confirm.
	CancelFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_liquidity_cancel_failures_total",
		Help: "Total number of cancel attempts that left the order live",
	})

	// FillsTotal tracks observed maker fill deltas.
	FillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_liquidity_fills_total",
		Help: "Total number of maker fill deltas observed",
	})

	// FillVolume tracks the observed maker fill volume in tokens.
	FillVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_liquidity_fill_volume",
		Help: "Cumulative maker fill volume in outcome tokens",
	})

	// HedgesTotal tracks hedge orders placed.
	HedgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_hedges_total",
		Help: "Total number of hedge orders placed",
	})

	// HedgeVolume tracks the hedged volume in tokens.
	HedgeVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_hedge_volume",
		Help: "Cumulative hedged volume in outcome tokens",
	})

	// HedgeFailuresTotal tracks hedge loops that stopped short.
	HedgeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_hedge_failures_total",
			Help: "Total number of hedge loops that could not drain the delta",
		},
		[]string{"reason"},
	)

	// SoftRemovesTotal tracks orders moved to the monitoring-only index.
	SoftRemovesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_liquidity_soft_removes_total",
		Help: "Total number of orders soft-removed from the active set",
	})

	// ForceRemovesTotal tracks soft-removed orders reaped after timeout.
	ForceRemovesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_liquidity_force_removes_total",
		Help: "Total number of monitored orders force-removed",
	})

	// UntrackedTradesTotal tracks tape trades for orders we do not track.
	UntrackedTradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_untracked_trades_total",
		Help: "Total number of trade-tape entries for untracked orders",
	})
)
