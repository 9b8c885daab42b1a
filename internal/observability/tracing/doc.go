// Package tracing provides OpenTelemetry tracing integration.
//
// Init installs the SDK tracer provider with parent-based sampling and the
// W3C trace-context propagator. Middleware starts a server span per HTTP
// request and echoes the trace ID in the X-Trace-Id response header. The
// dispatcher creates a child span per message and per channel.
//
// Example usage:
//
//	shutdown := tracing.Init(tracing.DefaultConfig())
//	defer func() { _ = shutdown(context.Background()) }()
//
//	ctx, span := tracing.GetTracer().Start(ctx, "dispatch.Dispatch")
//	defer span.End()
package tracing
