package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gpsummary/internal/config"
	"gpsummary/internal/shared/testutil"
)

func TestTelemetry_Disabled(t *testing.T) {
	tel, err := InitializeTelemetry(context.Background(),
		config.TelemetryConfig{ServiceName: "gpsummary"}, "test", nil)
	require.NoError(t, err)

	ctx, span := tel.Tracer.Start(context.Background(), "load")
	assert.False(t, span.IsRecording())
	assert.Equal(t, "", TraceIDFromContext(ctx))
	span.End()

	tel.Metrics.RowsLoaded.Add(ctx, 3)
	assert.Nil(t, tel.Gatherer())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTelemetry_MetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "gpsummary.prom")
	logger, _ := testutil.NewTestLogger(t)

	tel, err := InitializeTelemetry(context.Background(), config.TelemetryConfig{
		ServiceName: "gpsummary",
		Metrics:     true,
		MetricsFile: path,
	}, "test", logger)
	require.NoError(t, err)

	ctx := context.Background()
	tel.Metrics.RowsLoaded.Add(ctx, 3)
	tel.Metrics.RowsDropped.Add(ctx, 2, metric.WithAttributes(attribute.String("reason", "null")))
	tel.Metrics.StepDuration.Record(ctx, 0.01, metric.WithAttributes(attribute.String("step", "sum_staff_totals")))

	families, err := tel.Gatherer().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	require.NoError(t, tel.Shutdown(ctx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "rows_loaded_total")
	assert.Contains(t, text, `reason="null"`)
	assert.Contains(t, text, "step_duration_seconds_bucket")
}

func TestTelemetry_TracingToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")

	tel, err := InitializeTelemetry(context.Background(), config.TelemetryConfig{
		ServiceName: "gpsummary",
		Tracing:     true,
		TraceFile:   path,
	}, "test", nil)
	require.NoError(t, err)

	ctx, span := tel.Tracer.Start(context.Background(), "transform")
	assert.True(t, span.IsRecording())
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	RecordError(ctx, errors.New("boom"))
	span.End()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tel.Shutdown(shutdownCtx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name": "transform"`)
	assert.Contains(t, string(data), "boom")
}

func TestStatusAttr(t *testing.T) {
	assert.Equal(t, "success", StatusAttr(nil).Value.AsString())
	assert.Equal(t, "failure", StatusAttr(errors.New("x")).Value.AsString())
}
