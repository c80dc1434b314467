// Package metrics exposes the Prometheus instruments shared by the API,
// the import worker and the catalogue feed client.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecm_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecm_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Mining Metrics
	MiningQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecm_mining_queries_total",
			Help: "Total number of mining queries by operation and outcome",
		},
		[]string{"operation", "result"}, // result: "ok", "invalid", "error"
	)

	// Import Metrics
	ImportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecm_import_jobs_total",
			Help: "Total number of catalogue import jobs by final status",
		},
		[]string{"status"},
	)

	ImportedEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecm_imported_entities_total",
			Help: "Total number of catalogue entities saved or rejected by import",
		},
		[]string{"kind", "result"}, // result: "saved", "rejected"
	)

	ImportQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecm_import_queue_depth",
			Help: "Number of import jobs waiting for a worker",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecm_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecm_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecm_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Feed Metrics
	FeedRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecm_feed_retries_total",
			Help: "Total number of retried catalogue feed requests",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMiningQuery counts one mining query.
func RecordMiningQuery(operation, result string) {
	MiningQueries.WithLabelValues(operation, result).Inc()
}

// RecordImport counts the saved and rejected entities of one import run.
func RecordImport(saved map[string]int, rejected map[string]int) {
	for kind, n := range saved {
		ImportedEntities.WithLabelValues(kind, "saved").Add(float64(n))
	}
	for kind, n := range rejected {
		ImportedEntities.WithLabelValues(kind, "rejected").Add(float64(n))
	}
}
