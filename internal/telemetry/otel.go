package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.uber.org/zap"
)

// ServiceName is the service.name resource attribute of every binary
const ServiceName = "time-import"

// InitTracer initializes the OpenTelemetry tracer provider. component distinguishes the
// server from the worker. An empty endpoint uses the exporter's environment defaults.
func InitTracer(ctx context.Context, component, endpoint string) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceNamespace(ServiceName),
			semconv.ServiceInstanceID(component),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Setup initializes tracing when enabled and returns a shutdown func that is always safe to call.
// Failures are logged; the binary keeps running without tracing.
func Setup(ctx context.Context, enabled bool, component, endpoint string, logger *zap.Logger) func() {
	if !enabled {
		logger.Info("otel_tracing_disabled")
		return func() {}
	}

	tp, err := InitTracer(ctx, component, endpoint)
	if err != nil {
		logger.Warn("failed_to_initialize_otel_tracing_continuing_without_tracing", zap.Error(err))
		return func() {}
	}
	logger.Info("otel_tracing_initialized",
		zap.String("component", component),
		zap.String("endpoint", endpoint),
	)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := Shutdown(shutdownCtx, tp); err != nil {
			logger.Error("failed_to_shutdown_tracer_provider", zap.Error(err))
		}
	}
}

// Shutdown gracefully shuts down the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
