package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"groundwater-rag/internal/config"
)

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := InitTracer(context.Background(), config.TelemetryConfig{ServiceName: "groundwater-rag"})
	require.NoError(t, err)
	shutdown(context.Background())

	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestInitTracer_WithEndpoint(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	// the gRPC exporter connects lazily, so no collector is needed here
	shutdown, err := InitTracer(context.Background(), config.TelemetryConfig{
		OTLPEndpoint: "127.0.0.1:4317",
		ServiceName:  "groundwater-rag",
		SampleRatio:  1,
	})
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	shutdown(ctx)
}
