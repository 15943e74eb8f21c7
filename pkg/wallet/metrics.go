package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// MATICBalance tracks the current MATIC balance for gas fees.
	MATICBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_wallet_matic_balance",
		Help: "Current MATIC balance in wallet (native units)",
	})

	// USDCBalance tracks the current USDC balance for trading.
	USDCBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_wallet_usdc_balance",
		Help: "Current USDC balance in wallet (USD)",
	})

	// USDCAllowance tracks the USDC allowance approved to the CTF exchange.
	USDCAllowance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_wallet_usdc_allowance",
		Help: "USDC allowance approved to CTF Exchange (USD)",
	})

	// UpdateErrorsTotal tracks the number of failed balance polls.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opinion_arb_wallet_update_errors_total",
		Help: "Total number of failed wallet balance polls",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opinion_arb_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet balances (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful poll.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opinion_arb_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet balance poll",
	})
)
