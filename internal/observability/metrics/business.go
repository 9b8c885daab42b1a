package metrics

import (
	"time"
)

// Provider call statuses.
const (
	StatusSuccess        = "success"
	StatusProviderError  = "provider_error"
	StatusTransportError = "transport_error"
	StatusCircuitOpen    = "circuit_open"
)

// RecordProviderCall records the result and latency of one outbound provider call.
// Op names the API operation (e.g. "gettoken", "send").
func RecordProviderCall(provider, op, status string, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, op, status).Inc()
	ProviderRequestDuration.WithLabelValues(provider, op).Observe(duration.Seconds())
}

// RecordRateLimitWait records how long a call waited for the outbound rate limiter.
func RecordRateLimitWait(provider string, waited time.Duration) {
	ProviderRateLimitWait.WithLabelValues(provider).Observe(waited.Seconds())
}

// RecordTenantEvent records a tenant lifecycle event such as "registered" or "key_reset".
func RecordTenantEvent(event string) {
	TenantEventsTotal.WithLabelValues(event).Inc()
}

// UpdateTenantsTotal updates the total count of tenants in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateTenantsTotal(count int) {
	TenantsTotal.Set(float64(count))
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_tenant", "upsert_channel").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
