package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP surface. The path label is always normalised, so every tenant key
// collapses into /send/:key.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_http_requests_total",
			Help: "HTTP requests served, by method, normalised path and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration buckets reach past the worst-case dispatch time.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize is mostly /send message bodies.
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_http_request_size_bytes",
			Help:    "HTTP request body size in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"method", "path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_http_response_size_bytes",
			Help:    "HTTP response body size in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipehub_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)
)

// Business metrics track tenant and provider activity
var (
	// TenantsTotal tracks total number of registered tenants
	TenantsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipehub_tenants_total",
			Help: "Total number of registered tenants",
		},
	)

	// TenantEventsTotal counts tenant lifecycle events
	TenantEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_tenant_events_total",
			Help: "Total number of tenant lifecycle events",
		},
		[]string{"event"}, // registered|login|key_reset|settings_updated|channel_updated
	)

	// ProviderRequestsTotal counts outbound calls to messaging providers
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_provider_requests_total",
			Help: "Total number of outbound provider API calls",
		},
		[]string{"provider", "op", "status"}, // status: success|provider_error|transport_error|circuit_open
	)

	// ProviderRequestDuration measures outbound provider call latency
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_provider_request_duration_seconds",
			Help:    "Outbound provider API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "op"},
	)

	// ProviderRateLimitWait measures time spent waiting on the outbound rate limiter
	ProviderRateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_provider_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the provider rate limiter in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"provider"},
	)
)

// Tenant store. Operations are repository method names such as
// "tenant_by_app_id" or "upsert_channel".
var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_db_query_duration_seconds",
			Help:    "Tenant store query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipehub_db_connections_in_use",
			Help: "Database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipehub_db_connections_idle",
			Help: "Idle database connections",
		},
	)
)

// RecordHTTPRequest updates the request counter and histograms. Zero sizes
// are not observed.
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}
