package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/dnsoftware/mpm-mining-proxy/config"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

func TestInitTracerDebugWritesSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	cfg := config.Config{App: config.App{Name: "proxy-test", Env: logger.LogLevelDebug}}

	shutdown, err := initTracer(context.Background(), cfg, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "session")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "session"`)
	assert.Contains(t, buf.String(), "proxy-test")
}

func TestInitTracerProductionWithoutCollector(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	cfg := config.Config{App: config.App{Name: "proxy-test", Env: logger.LogLevelProduction}}

	shutdown, err := initTracer(context.Background(), cfg, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "session")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Empty(t, buf.String())
}
