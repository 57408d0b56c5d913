package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/pesio-ai/be-brand-navigator/internal/database"
)

func TestInit_NoEndpoint(t *testing.T) {
	tp, shutdown, err := Init(context.Background(), Config{ServiceName: "brand-navigator"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.IsRecording())
}

func TestInit_InstallsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, shutdown, err := Init(context.Background(), Config{
		ServiceName: "brand-navigator",
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(ctx)
	})

	var recording bool
	err = database.ExecuteAndTrace(context.Background(), otel.Tracer("brand-navigator/repository"), "postgres.get_brand", nil,
		func(ctx context.Context) error {
			recording = trace.SpanFromContext(ctx).IsRecording()
			return nil
		})
	require.NoError(t, err)
	assert.True(t, recording, "repository spans are recorded once tracing is configured")
}

func TestNewProvider_RecordsRepositorySpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := NewProvider(Config{ServiceName: "brand-navigator", Version: "test"}, sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tracer := tp.Tracer("brand-navigator/repository")
	require.NoError(t, database.ExecuteAndTrace(context.Background(), tracer, "postgres.get_brand",
		[]attribute.KeyValue{attribute.String("brand_id", "b1")},
		func(context.Context) error { return nil }))

	failure := errors.New("connection refused")
	err := database.ExecuteAndTrace(context.Background(), tracer, "postgres.transition_brand", nil,
		func(context.Context) error { return failure })
	require.ErrorIs(t, err, failure)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "postgres.get_brand", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), attribute.String("brand_id", "b1"))
	assert.Contains(t, spans[0].Resource().Attributes(), attribute.String("service.name", "brand-navigator"))

	assert.Equal(t, "postgres.transition_brand", spans[1].Name())
	assert.Equal(t, otelcodes.Error, spans[1].Status().Code)
	assert.Len(t, spans[1].Events(), 1, "error recorded on the span")
}
