package books

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BooksFetchedTotal counts fetched books per venue.
	BooksFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_books_fetched_total",
			Help: "Total number of order books fetched",
		},
		[]string{"venue"},
	)

	// BookFetchErrorsTotal counts fetch failures per venue.
	BookFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_book_fetch_errors_total",
			Help: "Total number of order book fetch failures",
		},
		[]string{"venue"},
	)

	// FetchCycleDurationSeconds tracks full fetch cycle latency.
	FetchCycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_arb_fetch_cycle_duration_seconds",
		Help:    "Duration of one order book fetch cycle",
		Buckets: prometheus.DefBuckets,
	})

	// SkewGateDropsTotal counts matches dropped by the timestamp skew gate.
	SkewGateDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_skew_gate_drops_total",
		Help: "Total number of matches dropped by the orderbook skew gate",
	})

	// CrossedBooksTotal counts crossed-book anomalies per venue.
	CrossedBooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_crossed_books_total",
			Help: "Total number of crossed order books observed",
		},
		[]string{"venue"},
	)

	// RealtimeReconnectsTotal counts websocket reconnection attempts.
	RealtimeReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_realtime_reconnects_total",
		Help: "Total number of realtime book stream reconnection attempts",
	})

	// RealtimeMessagesTotal counts websocket messages by type.
	RealtimeMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opinion_arb_realtime_messages_total",
			Help: "Total number of realtime book stream messages processed",
		},
		[]string{"type"},
	)

	// RealtimeResyncsTotal counts REST re-syncs triggered by crossed books.
	RealtimeResyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_realtime_resyncs_total",
		Help: "Total number of REST re-syncs after crossed realtime books",
	})
)
