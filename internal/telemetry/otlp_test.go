package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"observatory/internal/api"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Setup(context.Background(), Options{Endpoint: "http://127.0.0.1:4318", ServiceName: "obs-test"})
	require.NoError(t, err)
	assert.NotSame(t, prev, otel.GetTracerProvider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestClientSpansAndPropagation(t *testing.T) {
	_, err := Setup(context.Background(), Options{})
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	provider := NewProvider(exporter, "")
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	c, err := api.NewClient(api.Options{BaseURL: srv.URL, Tracer: provider.Tracer("test")})
	require.NoError(t, err)
	_, err = c.ListModels(context.Background())
	require.NoError(t, err)
	require.NoError(t, provider.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "list models", spans[0].Name)
	assert.Contains(t, traceparent, spans[0].SpanContext.TraceID().String())
}
