package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics contains all metrics for the settlement engine.
type SettlementMetrics struct {
	WebhookEvents *prometheus.CounterVec
	PollTicks     *prometheus.CounterVec

	ConfirmationsApplied prometheus.Counter
	BalanceApplications  prometheus.Counter

	ActiveWatches prometheus.Gauge
}

func NewSettlementMetrics(registry *prometheus.Registry) *SettlementMetrics {
	m := &SettlementMetrics{
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crypto_settlement_webhook_events_total",
				Help: "Total number of ingested webhook events by outcome",
			},
			[]string{"outcome"},
		),
		PollTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crypto_settlement_poll_ticks_total",
				Help: "Total number of monitor poll ticks by result",
			},
			[]string{"result"},
		),
		ConfirmationsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crypto_settlement_confirmations_applied_total",
				Help: "Total number of confirmation events applied to transactions",
			},
		),
		BalanceApplications: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crypto_settlement_balance_applications_total",
				Help: "Total number of wallet balance applications",
			},
		),
		ActiveWatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crypto_settlement_active_watches",
				Help: "Number of addresses currently being watched",
			},
		),
	}

	registry.MustRegister(
		m.WebhookEvents,
		m.PollTicks,
		m.ConfirmationsApplied,
		m.BalanceApplications,
		m.ActiveWatches,
	)

	return m
}
