package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger outcomes recorded by RecordLedgerOutcome.
const (
	OutcomeApplied      = "applied"
	OutcomeInsufficient = "insufficient"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ledgerDeltas = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "balance",
			Name:      "deltas_total",
			Help:      "Balance delta requests by outcome.",
		},
		[]string{"outcome"},
	)

	panicsRecovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "http",
			Name:      "panics_recovered_total",
			Help:      "Handler panics converted into failure responses.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ledgerDeltas,
		panicsRecovered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one finished HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLedgerOutcome counts one ApplyDelta result.
func RecordLedgerOutcome(outcome string) {
	ledgerDeltas.WithLabelValues(outcome).Inc()
}

// RecordPanic counts one recovered handler panic.
func RecordPanic() {
	panicsRecovered.Inc()
}
