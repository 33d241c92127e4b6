package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/config"
)

func TestNewWithoutEndpointInstallsNoop(t *testing.T) {
	provider, err := New(context.Background(), config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)

	tracer := provider.Tracer()
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "test")
	require.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewWithEndpointInstallsGlobalProvider(t *testing.T) {
	cfg := config.Config{
		ServiceName:       "launchpad-test",
		TelemetryEndpoint: "127.0.0.1:4318",
		TelemetryInsecure: true,
	}

	provider, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	// The configured SDK provider must be installed globally so otelgin and
	// otel.Tracer callers pick it up.
	require.Same(t, provider.tracerProvider, otel.GetTracerProvider())

	_, span := provider.Tracer().Start(context.Background(), "test")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}
