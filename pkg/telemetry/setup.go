package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrSetupFailed wraps exporter and resource construction failures.
var ErrSetupFailed = errors.New("failed to set up tracing")

// Provider is a configured tracer provider and the function that flushes
// and stops it.
type Provider struct {
	trace.TracerProvider
	Shutdown func(context.Context) error
}

// Setup builds an OTLP/HTTP tracer provider for service. When tracing is
// disabled or no endpoint is configured, it returns a no-op provider and
// registers nothing globally.
func Setup(ctx context.Context, cfg Config, service string) (*Provider, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return Noop(), nil
	}
	if cfg.ServiceName != "" {
		service = cfg.ServiceName
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.ExportTimeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.ExportTimeout))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.Join(ErrSetupFailed, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(service)))
	if err != nil {
		return nil, errors.Join(ErrSetupFailed, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{TracerProvider: tp, Shutdown: tp.Shutdown}, nil
}

// Noop returns a provider that records nothing.
func Noop() *Provider {
	return &Provider{
		TracerProvider: noop.NewTracerProvider(),
		Shutdown:       func(context.Context) error { return nil },
	}
}
