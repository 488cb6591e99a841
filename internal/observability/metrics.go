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
	// Cycle metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	CyclesOverlapped prometheus.Counter

	// Classification metrics
	TokensScored     prometheus.Counter
	TokensRejected   *prometheus.CounterVec
	MetasPublished   prometheus.Counter
	MetasSuppressed  *prometheus.CounterVec
	RegimeTransition *prometheus.CounterVec

	// Ingestion metrics
	BatchesReceived prometheus.Counter
	BatchTokens     prometheus.Histogram

	// Storage metrics
	CommitDuration prometheus.Histogram
	CommitErrors   prometheus.Counter
	HistoryErrors  *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "alphatrend"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_total",
			Help:      "Total number of snapshot cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycle_duration_seconds",
			Help:      "Snapshot cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		CyclesOverlapped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cycles_overlapped_total",
			Help:      "Total number of cycle triggers rejected because a cycle was running",
		}),

		TokensScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "tokens_scored_total",
			Help:      "Total number of tokens scored and classified",
		}),
		TokensRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classify",
			Name:      "tokens_rejected_total",
			Help:      "Total number of tokens rejected during input validation by reason",
		}, []string{"reason"}),
		MetasPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metas",
			Name:      "published_total",
			Help:      "Total number of metas published",
		}),
		MetasSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metas",
			Name:      "suppressed_total",
			Help:      "Total number of metas suppressed by reason",
		}, []string{"reason"}),
		RegimeTransition: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "regime",
			Name:      "transitions_total",
			Help:      "Total number of regime label outcomes",
		}, []string{"regime"}),

		BatchesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batches_received_total",
			Help:      "Total number of input batches received",
		}),
		BatchTokens: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batch_tokens",
			Help:      "Number of tokens per input batch",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500},
		}),

		CommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "commit_duration_seconds",
			Help:      "Snapshot commit duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CommitErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "commit_errors_total",
			Help:      "Total number of failed snapshot commits",
		}),
		HistoryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "history_errors_total",
			Help:      "Total number of failed history appends by store",
		}, []string{"store"}),

		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last committed snapshot",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
