package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelConfigFrom(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	cfg := OTelConfigFrom(config.Default().Telemetry)

	assert.Equal(t, config.AppName, cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "none", cfg.TraceExporter)
	assert.True(t, cfg.EnableMetrics)
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *OTelConfig
		wantErr     bool
		wantTracer  bool
		wantMetrics bool
	}{
		{
			name:        "defaults",
			cfg:         nil,
			wantMetrics: true,
		},
		{
			name: "stdout tracing",
			cfg: &OTelConfig{
				ServiceName:   "test",
				TraceExporter: "stdout",
				SampleRatio:   1,
			},
			wantTracer: true,
		},
		{
			name: "everything disabled",
			cfg: &OTelConfig{
				ServiceName:   "test",
				TraceExporter: "none",
			},
		},
		{
			name: "unknown exporter",
			cfg: &OTelConfig{
				ServiceName:   "test",
				TraceExporter: "zipkin",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, discardLogger())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer providers.Shutdown(context.Background())

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantTracer, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.MeterProvider != nil)
			assert.Equal(t, tt.wantMetrics, providers.PrometheusHTTP != nil)
		})
	}
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "test",
		TraceExporter: "stdout",
		SampleRatio:   1,
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Empty(t, TraceIDFromContext(context.Background()))

	ctx, span := providers.Tracer.Start(context.Background(), "export")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, GetTraceID(ctx))

	// an explicit trace ID wins over the span
	assert.Equal(t, "req-1", GetTraceID(WithTraceID(ctx, "req-1")))
}

func TestSpanHelpers(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "test",
		TraceExporter: "stdout",
		SampleRatio:   1,
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "export")
	defer span.End()

	assert.NotPanics(t, func() {
		SetSpanAttributes(ctx, map[string]interface{}{
			"format":   "csv",
			"rows":     3,
			"rows64":   int64(3),
			"ratio":    0.5,
			"expanded": true,
			"other":    []string{"x"},
		})
		RecordError(ctx, errors.New("boom"))
	})

	// no active span
	assert.NotPanics(t, func() {
		SetSpanAttributes(context.Background(), map[string]interface{}{"k": "v"})
		RecordError(context.Background(), errors.New("boom"))
	})
}

func TestExportMetrics(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "test",
		TraceExporter: "none",
		EnableMetrics: true,
	}, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewExportMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordExport(ctx, "csv", "pad", 12, 40*time.Millisecond, nil)
	metrics.RecordExport(ctx, "csv", "pad", 0, time.Millisecond,
		apperrors.NewInvalidInputError("bad request"))
	metrics.RecordFetch(ctx, "yahoo", 10*time.Millisecond, nil)
	metrics.RecordHTTPRequest(ctx, http.MethodPost, "/api/v1/exports", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "exports_total")
	assert.Contains(t, body, "export_errors_total")
	assert.Contains(t, body, "export_rows_total")
	assert.Contains(t, body, "market_data_fetches_total")
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, `error_type="INVALID_INPUT"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestExportMetrics_NilSafe(t *testing.T) {
	var metrics *ExportMetrics
	assert.NotPanics(t, func() {
		metrics.RecordExport(context.Background(), "csv", "ignore", 1, time.Second, nil)
		metrics.RecordFetch(context.Background(), "yahoo", time.Second, nil)
		metrics.RecordHTTPRequest(context.Background(), http.MethodGet, "/", 200, time.Second)
	})
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "unknown", errorKind(errors.New("plain")))
	assert.Equal(t, string(apperrors.ErrTypeKeyNotFound),
		errorKind(apperrors.NewKeyNotFoundError("column", "x")))
}
