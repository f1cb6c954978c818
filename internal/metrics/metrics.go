// Package metrics holds the prometheus collectors of the panel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topgirl_backend_calls_total",
			Help: "Total number of calls to the optimizer backend",
		},
		[]string{"endpoint", "outcome"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topgirl_backend_call_duration_seconds",
			Help:    "Optimizer backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topgirl_http_requests_total",
			Help: "Total number of panel HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topgirl_http_request_duration_seconds",
			Help:    "Panel HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RegistryRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topgirl_registry_refreshes_total",
			Help: "Building list refreshes by outcome (applied, stale, failed)",
		},
		[]string{"outcome"},
	)

	RegistryBuildings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "topgirl_registry_buildings",
			Help: "Number of buildings in the last applied refresh",
		},
	)

	SessionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topgirl_session_operations_total",
			Help: "Session store operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
)

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "status_error"
	OutcomeApplied   = "applied"
	OutcomeStale     = "stale"
	OutcomeFailed    = "failed"
	OutcomeAbsent    = "absent"
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBackendCall(endpoint, outcome string, duration float64) {
	BackendCallsTotal.WithLabelValues(endpoint, outcome).Inc()
	BackendCallDuration.WithLabelValues(endpoint).Observe(duration)
}

func RecordSessionOperation(operation, outcome string) {
	SessionOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
