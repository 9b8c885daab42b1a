// Package observability groups the logging, metrics and tracing infrastructure.
//
// Subpackages:
//   - logging: slog logger construction from the configured level and format
//   - metrics: Prometheus collectors for HTTP, providers, tenants and the database
//   - tracing: OpenTelemetry tracer provider and HTTP span middleware
//
// Example usage:
//
//	import (
//	    "pipehub/internal/observability/logging"
//	    "pipehub/internal/observability/metrics"
//	)
//
//	func main() {
//	    slog.SetDefault(logging.NewLogger("info", logging.FormatJSON))
//	    metrics.RecordProviderCall("telegram", "send", "ok", time.Since(start))
//	}
package observability
