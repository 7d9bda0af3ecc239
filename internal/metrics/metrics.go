package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Mint cycle metrics
	// ============================================
	MintCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_mint_cycles_total",
			Help: "Total number of mint poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	MintEventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_mint_events_processed_total",
		Help: "Total number of source events minted successfully",
	})

	MintEventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_mint_events_skipped_total",
			Help: "Total number of source events skipped by reason",
		},
		[]string{"reason"},
	)

	MintCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_mint_cycle_duration_seconds",
		Help:    "Mint poll cycle duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ============================================
	// Withdrawal pipeline metrics
	// ============================================
	WithdrawTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_withdraw_total",
		Help: "Total number of withdrawal requests accepted",
	})

	WithdrawFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_withdraw_failures_total",
			Help: "Total number of withdrawal failures by pipeline stage",
		},
		[]string{"stage"},
	)

	WithdrawDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_withdraw_duration_seconds",
		Help:    "Withdrawal pipeline duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ============================================
	// Outbound call metrics
	// ============================================
	OutboundCallBudget = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_outbound_call_budget",
			Help: "Last computed resource budget per outbound call target",
		},
		[]string{"target"},
	)

	// ============================================
	// NATS connection metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject"},
	)
)
