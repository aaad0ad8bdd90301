package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"groundwater-rag/internal/config"
)

const serviceVersion = "1.0.0"

// InitTracer installs an OTLP/gRPC trace provider when an endpoint is
// configured. Without one the global no-op provider stays in place. The
// returned func flushes and stops the provider.
func InitTracer(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context), error) {
	if cfg.OTLPEndpoint == "" {
		log.Debug().Msg("No OTLP endpoint configured, tracing disabled")
		return func(context.Context) {}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)

	log.Info().Str("service", cfg.ServiceName).Str("endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry tracer initialized")
	return func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown tracer")
		}
	}, nil
}
