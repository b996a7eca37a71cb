// Package telemetry sets up OpenTelemetry tracing for sync runs.
//
// cissync is a short-lived batch job, so spans are exported synchronously
// as they end rather than batched; the returned shutdown function flushes
// whatever the exporter still holds.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InitTracer sets up an OTLP trace exporter for the given endpoint. The
// returned tracer and shutdown function are always usable: when the endpoint
// is empty or setup fails, both are no-ops (with the error reported), so the
// sync proceeds untraced instead of aborting.
func InitTracer(ctx context.Context, endpoint, serviceName, serviceVersion string) (trace.Tracer, func(context.Context) error, error) {
	noopTracer := noop.NewTracerProvider().Tracer(serviceName)
	noopShutdown := func(context.Context) error { return nil }

	if endpoint == "" {
		return noopTracer, noopShutdown, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return noopTracer, noopShutdown, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return noopTracer, noopShutdown, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		// A one-shot run ends before a batch window would fill; export
		// each span as it closes.
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Tracer(serviceName), tp.Shutdown, nil
}
