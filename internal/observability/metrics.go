package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for skillmatch. A nil *Metrics records nothing.
type Metrics struct {
	AnalysisDuration metric.Float64Histogram
	AnalysisRequests metric.Int64Counter
	AnalysisErrors   metric.Int64Counter

	SkillLookups    metric.Int64Counter
	ReportsExported metric.Int64Counter
	StaleResponses  metric.Int64Counter

	RateLimitHits metric.Int64Counter
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.AnalysisDuration, err = meter.Float64Histogram(
		"skillmatch_analysis_duration_seconds",
		metric.WithDescription("Time spent waiting for the analysis backend"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create analysis duration metric: %w", err)
	}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.AnalysisRequests, "skillmatch_analysis_requests_total", "Total number of analysis submissions sent to the backend"},
		{&m.AnalysisErrors, "skillmatch_analysis_errors_total", "Total number of failed analysis submissions"},
		{&m.SkillLookups, "skillmatch_skill_lookups_total", "Total number of skill info lookups"},
		{&m.ReportsExported, "skillmatch_reports_exported_total", "Total number of exported reports"},
		{&m.StaleResponses, "skillmatch_stale_responses_total", "Responses discarded because a newer request had started"},
		{&m.RateLimitHits, "skillmatch_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	return m, nil
}

// TrackAnalysis instruments one analysis round trip with a span and metrics
func (m *Metrics) TrackAnalysis(ctx context.Context, fn func(context.Context) error) error {
	ctx, span := otel.Tracer("skillmatch.controller").Start(ctx, "analysis.submit")
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if m == nil {
		return err
	}

	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.AnalysisDuration.Record(ctx, duration, attrs)
	m.AnalysisRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.AnalysisErrors.Add(ctx, 1, attrs)
	}
	return err
}

// RecordSkillLookup counts a finished skill lookup
func (m *Metrics) RecordSkillLookup(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.SkillLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordReportExported counts an export attempt
func (m *Metrics) RecordReportExported(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.ReportsExported.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordStaleResponse counts a discarded out-of-order response for flow
func (m *Metrics) RecordStaleResponse(ctx context.Context, flow string) {
	if m == nil {
		return
	}
	m.StaleResponses.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}

// RecordRateLimitHit counts a rejected request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, keyType string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key_type", keyType)))
}
