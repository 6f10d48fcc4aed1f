// Package render turns an AnalysisResult into the results view.
package render

import (
	"fmt"
	"strconv"
	"sync"

	"skillmatch/internal/types"
)

// Chart colors for the score and the remainder
const (
	ScoreColor     = "#3b82f6"
	RemainderColor = "#374151"
)

// Chart is a drawn score chart. Destroy releases whatever the chart holds.
type Chart interface {
	Render() string
	Destroy()
}

// ChartFactory draws a new chart from segments
type ChartFactory interface {
	NewChart(segments []types.Segment) (Chart, error)
}

// ResultsRenderer owns the single live chart instance
type ResultsRenderer struct {
	mu      sync.Mutex
	factory ChartFactory
	chart   Chart
}

// NewResultsRenderer creates a renderer. A nil factory uses the terminal gauge.
func NewResultsRenderer(factory ChartFactory) *ResultsRenderer {
	if factory == nil {
		factory = GaugeFactory{Width: 20}
	}
	return &ResultsRenderer{factory: factory}
}

// Render builds the results view, replacing any previous chart
func (r *ResultsRenderer) Render(result types.AnalysisResult) (types.ResultsView, error) {
	result = result.Normalize()
	segments := Segments(result.Score)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.chart != nil {
		r.chart.Destroy()
		r.chart = nil
	}
	chart, err := r.factory.NewChart(segments)
	if err != nil {
		return types.ResultsView{}, fmt.Errorf("failed to draw score chart: %w", err)
	}
	r.chart = chart

	view := types.ResultsView{
		ScoreText:     ScoreText(result.Score),
		Segments:      segments,
		Gauge:         chart.Render(),
		Matched:       make([]types.SkillEntry, 0, len(result.MatchedSkills)),
		Missing:       make([]types.SkillEntry, 0, len(result.MissingSkills)),
		ExportVisible: true,
	}
	for _, skill := range result.MatchedSkills {
		view.Matched = append(view.Matched, types.SkillEntry{Label: skill})
	}
	for _, skill := range result.MissingSkills {
		view.Missing = append(view.Missing, types.SkillEntry{Label: skill, Clickable: true})
	}
	return view, nil
}

// Close destroys the live chart
func (r *ResultsRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chart != nil {
		r.chart.Destroy()
		r.chart = nil
	}
}

// ScoreText formats a score the way the results panel shows it, e.g. "73%"
func ScoreText(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "%"
}

// Segments splits the chart into score and remainder
func Segments(score float64) []types.Segment {
	return []types.Segment{
		{Value: score, Color: ScoreColor},
		{Value: 100 - score, Color: RemainderColor},
	}
}
