// Package tracing installs the process-wide OpenTelemetry TracerProvider
// that otelgrpc and otelhttp instrumentation in the xDS server and admin
// API read from. With no exporter endpoint configured, tracing is a
// structural no-op: spans are still created and propagated (so the
// instrumentation code paths are exercised identically in every
// environment) but never leave the process.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Shutdown flushes and stops the installed TracerProvider. No-op if Setup
// never installed an exporting provider.
type Shutdown func(context.Context) error

// Setup installs a TracerProvider as the process global. If endpoint is
// empty, the default no-op provider is left in place. Otherwise spans are
// batched and exported over OTLP/HTTP to endpoint.
func Setup(serviceName, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
