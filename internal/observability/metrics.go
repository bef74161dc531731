// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Reconciliation metrics
	PassesTotal    *prometheus.CounterVec
	PassDuration   *prometheus.HistogramVec
	RecordsChecked *prometheus.CounterVec
	RolesUpdated   prometheus.Counter
	RecordsDeleted prometheus.Counter
	LookupErrors   *prometheus.CounterVec

	// Wallet submission metrics
	SubmissionsTotal *prometheus.CounterVec
	InvalidAddresses prometheus.Counter

	// Sheets API metrics
	SheetsCallDuration *prometheus.HistogramVec
	SheetsRateLimited  prometheus.Counter

	// Health metrics
	LastSuccessfulPass *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_roster"
	}

	return &Metrics{
		// Reconciliation metrics
		PassesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Total number of reconciliation passes by mode and status",
		}, []string{"mode", "status"}),
		PassDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes by mode",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"mode"}),
		RecordsChecked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "records_checked_total",
			Help:      "Total number of records inspected by mode",
		}, []string{"mode"}),
		RolesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "roles_updated_total",
			Help:      "Total number of role labels rewritten",
		}),
		RecordsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "records_deleted_total",
			Help:      "Total number of records removed by prune passes",
		}),
		LookupErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "lookup_errors_total",
			Help:      "Total number of failed member lookups by mode",
		}, []string{"mode"}),

		// Wallet submission metrics
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "submissions_total",
			Help:      "Total number of wallet submissions by action",
		}, []string{"action"}),
		InvalidAddresses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "invalid_addresses_total",
			Help:      "Total number of rejected wallet addresses",
		}),

		// Sheets API metrics
		SheetsCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "call_duration_seconds",
			Help:      "Duration of Sheets API calls by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		SheetsRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "rate_limited_total",
			Help:      "Total number of rate-limited Sheets API responses",
		}),

		// Health metrics
		LastSuccessfulPass: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_successful_pass_timestamp",
			Help:      "Unix timestamp of the last successful pass by mode",
		}, []string{"mode"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPass records the outcome and duration of a reconciliation pass.
func (m *Metrics) RecordPass(mode, status string, durationSeconds float64) {
	m.PassesTotal.WithLabelValues(mode, status).Inc()
	m.PassDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordSubmission increments the submission counter for an action.
func (m *Metrics) RecordSubmission(action string) {
	m.SubmissionsTotal.WithLabelValues(action).Inc()
}
