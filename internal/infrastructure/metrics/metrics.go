package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Metrics holds the ledger's Prometheus collectors.
type Metrics struct {
	// Transfer metrics
	Transfers        *prometheus.CounterVec
	TransferDuration *prometheus.HistogramVec
	TransferAmount   prometheus.Histogram

	// Account metrics
	AccountsOpened       prometheus.Counter
	AccountStatusChanges *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	RateLimitHits prometheus.Counter

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
}

// New creates every collector and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_transfers_total",
				Help: "Transfers by outcome (committed, rejected, failed)",
			},
			[]string{"outcome"},
		),
		TransferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_transfer_duration_seconds",
				Help:    "Duration of transfer execution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_transfer_amount",
			Help:    "Amounts of committed transfers",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		AccountsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_accounts_opened_total",
			Help: "Total number of accounts opened",
		}),
		AccountStatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_account_status_changes_total",
				Help: "Administrative status changes by target status",
			},
			[]string{"status"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankledger_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bankledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_rate_limit_hits_total",
			Help: "Requests rejected by the transfer rate limiter",
		}),
		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_outbox_events_total",
				Help: "Outbox events handled by the publisher, by result",
			},
			[]string{"result"},
		),
	}
}

// RecordTransfer implements usecase.TransferMetrics. Only committed
// transfers contribute to the amount histogram.
func (m *Metrics) RecordTransfer(outcome string, amount decimal.Decimal, duration time.Duration) {
	m.Transfers.WithLabelValues(outcome).Inc()
	m.TransferDuration.WithLabelValues(outcome).Observe(duration.Seconds())

	if outcome == usecase.OutcomeCommitted {
		m.TransferAmount.Observe(amount.InexactFloat64())
	}
}

// AccountOpened counts one opened account.
func (m *Metrics) AccountOpened() {
	m.AccountsOpened.Inc()
}

// AccountStatusChanged counts one administrative status change.
func (m *Metrics) AccountStatusChanged(status domain.AccountStatus) {
	m.AccountStatusChanges.WithLabelValues(string(status)).Inc()
}

// RecordOutbox counts one published or failed outbox event.
func (m *Metrics) RecordOutbox(published bool) {
	result := "published"
	if !published {
		result = "failed"
	}
	m.OutboxPublished.WithLabelValues(result).Inc()
}
