package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	auditWritesTotal   *prometheus.CounterVec
	auditDroppedTotal  *prometheus.CounterVec
	fanoutSubscription *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		auditWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_entries_written_total",
			Help: "Total number of audit entries persisted.",
		}, []string{"entity_type", "severity"})

		auditDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_entries_dropped_total",
			Help: "Total number of audit entries discarded after a sink failure.",
		}, []string{"entity_type"})

		fanoutSubscription = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_fanout_subscriptions_total",
			Help: "Total number of subscriptions created by exam fan-out.",
		}, []string{"trigger"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			auditWritesTotal, auditDroppedTotal, fanoutSubscription,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AuditWrites exposes the counter for persisted audit entries.
func AuditWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return auditWritesTotal
}

// AuditDrops exposes the counter for discarded audit entries.
func AuditDrops() *prometheus.CounterVec {
	RegisterMetrics()
	return auditDroppedTotal
}

// FanoutSubscriptions exposes the counter for fan-out created subscriptions.
func FanoutSubscriptions() *prometheus.CounterVec {
	RegisterMetrics()
	return fanoutSubscription
}
