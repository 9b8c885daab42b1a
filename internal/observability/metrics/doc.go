// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Business metrics (tenants, outbound provider calls)
//   - Database query metrics
//   - Application performance metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "pipehub/internal/observability/metrics"
//
//	func fetchToken(ctx context.Context) error {
//	    start := time.Now()
//	    // ... call the provider ...
//	    metrics.RecordProviderCall("wecom", "gettoken", metrics.StatusSuccess, time.Since(start))
//	    return nil
//	}
package metrics
