// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Shutdown flushes pending spans and stops the exporter.
type Shutdown func(ctx context.Context) error

// Setup exports spans over OTLP/gRPC to endpoint. With an empty endpoint
// tracing stays on the global no-op provider.
func Setup(ctx context.Context, endpoint string, log *zap.Logger) (Shutdown, error) {
	if endpoint == "" {
		log.Debug("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := Install(sdktrace.WithBatcher(exp))
	log.Info("tracing enabled", zap.String("endpoint", endpoint))
	return tp.Shutdown, nil
}

// Install registers a tracer provider built from opts as the global one.
func Install(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp
}
