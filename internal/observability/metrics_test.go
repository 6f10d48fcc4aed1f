package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillmatch/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestTrackAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t)

	require.NoError(t, m.TrackAnalysis(context.Background(), func(context.Context) error { return nil }))
	err := m.TrackAnalysis(context.Background(), func(context.Context) error { return fmt.Errorf("boom") })
	assert.EqualError(t, err, "boom")

	assert.Equal(t, int64(2), counterTotal(t, reader, "skillmatch_analysis_requests_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "skillmatch_analysis_errors_total"))
}

func TestRecordCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSkillLookup(ctx, true)
	m.RecordSkillLookup(ctx, false)
	m.RecordReportExported(ctx, true)
	m.RecordStaleResponse(ctx, "analysis")
	m.RecordRateLimitHit(ctx, "ip")

	assert.Equal(t, int64(2), counterTotal(t, reader, "skillmatch_skill_lookups_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "skillmatch_reports_exported_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "skillmatch_stale_responses_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "skillmatch_rate_limit_hits_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	called := false
	err := m.TrackAnalysis(ctx, func(context.Context) error { called = true; return nil })
	assert.NoError(t, err)
	assert.True(t, called)

	m.RecordSkillLookup(ctx, true)
	m.RecordReportExported(ctx, false)
	m.RecordStaleResponse(ctx, "lookup")
	m.RecordRateLimitHit(ctx, "api_key")
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.Nil(t, om.GetMetrics())
	assert.Nil(t, om.MetricsHandler())
	assert.NotNil(t, om.Tracer("x"))

	h := om.HTTPMiddleware()(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, om.Shutdown(context.Background()))

	var nilManager *ObservabilityManager
	assert.NoError(t, nilManager.Shutdown(context.Background()))
}

func TestPrometheusEndpoint(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{
		Enabled:            true,
		ServiceName:        "skillmatch-test",
		SampleRate:         1,
		CollectionInterval: time.Second,
		Prometheus:         PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	om.GetMetrics().RecordReportExported(context.Background(), true)

	rec := httptest.NewRecorder()
	om.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "skillmatch_reports_exported_total")
}

func TestGetObservabilityConfig(t *testing.T) {
	cfg := &config.Config{Observability: config.ObservabilityConfig{
		Enabled:     true,
		ServiceName: "svc",
		SampleRate:  0.5,
		Prometheus:  config.PrometheusConfig{Enabled: true, Endpoint: "/m", Port: "9999"},
	}}
	obs := GetObservabilityConfig(cfg, "1.2.3")
	assert.Equal(t, "svc", obs.ServiceName)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, 15*time.Second, obs.CollectionInterval)
	assert.Equal(t, PrometheusConfig{Enabled: true, Endpoint: "/m", Port: "9999"}, obs.Prometheus)

	fallback := GetObservabilityConfig(nil, "dev")
	assert.Equal(t, "skillmatch", fallback.ServiceName)
	assert.True(t, fallback.Enabled)
}
