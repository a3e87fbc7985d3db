// Package tracing configures OpenTelemetry for the CIR engine: one span
// per run, nested spans per iteration and per phase, optionally exported
// over OTLP/gRPC. With no collector endpoint configured, the global
// tracer provider is left at its no-op default so spans cost nothing.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "cir"

// Shutdown flushes and tears down whatever tracer provider Setup
// installed. A no-op provider's Shutdown is itself a no-op.
type Shutdown func(context.Context) error

// Setup installs an OTLP-exporting tracer provider when endpoint is
// non-empty, and returns a no-op Shutdown with the global no-op provider
// left in place otherwise.
func Setup(ctx context.Context, endpoint string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("tracing: dialing collector: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("tracing: creating exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return provider.Shutdown(shutdownCtx)
	}, nil
}

// Tracer returns the CIR engine's named tracer, pulled from whatever
// global provider Setup installed (or the no-op default).
func Tracer() trace.Tracer {
	return otel.Tracer(serviceName)
}

// StartRun opens the root span for one runTask invocation.
func StartRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "cir.run", trace.WithAttributes(attrRunID(runID)))
}

// StartIteration opens a child span for one loop iteration.
func StartIteration(ctx context.Context, iteration int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "cir.iteration", trace.WithAttributes(attrInt("cir.iteration", iteration)))
}

// StartPhase opens a child span for one Executor.Execute call within a
// phase.
func StartPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "cir.phase", trace.WithAttributes(attrString("cir.phase", phase)))
}
