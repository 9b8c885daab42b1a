package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of every span the service creates.
const TracerName = "pipehub"

// tracer is the global tracer instance for the application.
var tracer = otel.Tracer(TracerName)

// Config controls the tracer provider installed at startup.
type Config struct {
	// Enabled installs the SDK tracer provider. When false the no-op global
	// provider stays in place and spans are never recorded.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// SampleRatio is the fraction of root spans sampled, between 0 and 1.
	// Child spans follow their parent's decision.
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// DefaultConfig returns tracing enabled with every root span sampled.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		SampleRatio: 1.0,
		ServiceName: TracerName,
	}
}

// Validate checks the sampling ratio.
func (c Config) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("tracing sample_ratio must be between 0 and 1")
	}
	return nil
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Init installs a parent-based SDK tracer provider and the W3C trace-context
// propagator as globals. Extra span processors (exporters) may be supplied.
// The returned function must be called on shutdown.
func Init(cfg Config, processors ...sdktrace.SpanProcessor) ShutdownFunc {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }
	}

	name := cfg.ServiceName
	if name == "" {
		name = TracerName
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(TracerName)

	return tp.Shutdown
}

// GetTracer returns the global tracer for creating spans.
// This tracer can be used throughout the application to create new spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}
