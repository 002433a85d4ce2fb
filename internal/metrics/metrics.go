// Package metrics exposes Prometheus counters for the serving and earnings
// cores.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	AdRequests        *prometheus.CounterVec
	ProviderAttempts  *prometheus.CounterVec
	ImpressionsBilled *prometheus.CounterVec
	ReservationReject prometheus.Counter
	DuplicateSessions prometheus.Counter
	AccrualRuns       *prometheus.CounterVec
	LedgerEntries     *prometheus.CounterVec
	UnfreezeRuns      *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "towerads"
	}

	m := &Metrics{
		AdRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_requests_total",
				Help:      "Total ad requests by outcome",
			},
			[]string{"outcome"},
		),
		ProviderAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Provider attempt outcomes reported by SDKs",
			},
			[]string{"provider", "result"},
		),
		ImpressionsBilled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "impressions_billed_total",
				Help:      "Impressions that passed the requested->impression gate",
			},
			[]string{"source"},
		),
		ReservationReject: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_reservation_rejected_total",
				Help:      "Order budget reservations rejected (depleted or inactive)",
			},
		),
		DuplicateSessions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_sessions_total",
				Help:      "Ad requests rejected by the session antifraud throttle",
			},
		),
		AccrualRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "earnings_accrual_runs_total",
				Help:      "Earnings accrual runs by result",
			},
			[]string{"result"},
		),
		LedgerEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_entries_total",
				Help:      "Ledger entries written by type",
			},
			[]string{"entry_type"},
		),
		UnfreezeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "earnings_unfreeze_runs_total",
				Help:      "Unfreeze runs by result",
			},
			[]string{"result"},
		),
	}

	prometheus.MustRegister(
		m.AdRequests,
		m.ProviderAttempts,
		m.ImpressionsBilled,
		m.ReservationReject,
		m.DuplicateSessions,
		m.AccrualRuns,
		m.LedgerEntries,
		m.UnfreezeRuns,
	)

	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
