package render

import (
	"fmt"
	"testing"

	"skillmatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChart struct {
	id        int
	destroyed bool
}

func (c *fakeChart) Render() string { return fmt.Sprintf("chart-%d", c.id) }
func (c *fakeChart) Destroy()       { c.destroyed = true }

type fakeFactory struct {
	charts []*fakeChart
	live   int
	err    error
}

func (f *fakeFactory) NewChart(segments []types.Segment) (Chart, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.charts {
		if !c.destroyed {
			f.live++
		}
	}
	c := &fakeChart{id: len(f.charts) + 1}
	f.charts = append(f.charts, c)
	return c, nil
}

func TestRenderExampleResult(t *testing.T) {
	r := NewResultsRenderer(&fakeFactory{})
	view, err := r.Render(types.AnalysisResult{
		Score:         73,
		MatchedSkills: []string{"SQL", "Python"},
		MissingSkills: []string{"Kubernetes"},
	})
	require.NoError(t, err)

	assert.Equal(t, "73%", view.ScoreText)
	assert.Len(t, view.Matched, 2)
	assert.Len(t, view.Missing, 1)
	assert.True(t, view.ExportVisible)
	assert.Equal(t, []types.Segment{{Value: 73, Color: ScoreColor}, {Value: 27, Color: RemainderColor}}, view.Segments)
	assert.Equal(t, types.SkillEntry{Label: "SQL"}, view.Matched[0])
	assert.Equal(t, types.SkillEntry{Label: "Kubernetes", Clickable: true}, view.Missing[0])
}

func TestRenderDestroysPreviousChart(t *testing.T) {
	factory := &fakeFactory{}
	r := NewResultsRenderer(factory)
	result := types.AnalysisResult{Score: 40, MatchedSkills: []string{"Go"}}

	first, err := r.Render(result)
	require.NoError(t, err)
	second, err := r.Render(result)
	require.NoError(t, err)

	require.Len(t, factory.charts, 2)
	assert.True(t, factory.charts[0].destroyed)
	assert.False(t, factory.charts[1].destroyed)
	assert.Zero(t, factory.live, "old chart still alive when new one was created")

	first.Gauge, second.Gauge = "", ""
	assert.Equal(t, first, second)

	r.Close()
	assert.True(t, factory.charts[1].destroyed)
}

func TestRenderNilSkillLists(t *testing.T) {
	r := NewResultsRenderer(nil)
	view, err := r.Render(types.AnalysisResult{Score: 0})
	require.NoError(t, err)
	assert.NotNil(t, view.Matched)
	assert.NotNil(t, view.Missing)
	assert.Equal(t, "0%", view.ScoreText)
}

func TestRenderChartError(t *testing.T) {
	r := NewResultsRenderer(&fakeFactory{err: fmt.Errorf("no canvas")})
	_, err := r.Render(types.AnalysisResult{Score: 10})
	assert.ErrorContains(t, err, "no canvas")
}

func TestScoreText(t *testing.T) {
	tests := map[float64]string{
		73:   "73%",
		0:    "0%",
		100:  "100%",
		72.5: "72.5%",
	}
	for score, want := range tests {
		assert.Equal(t, want, ScoreText(score))
	}
}

func TestGauge(t *testing.T) {
	chart, err := GaugeFactory{Width: 10}.NewChart(Segments(70))
	require.NoError(t, err)
	assert.Equal(t, "[███████░░░] 70%", chart.Render())

	chart.Destroy()
	assert.Empty(t, chart.Render())

	_, err = GaugeFactory{}.NewChart([]types.Segment{{Value: 1}})
	assert.Error(t, err)
}
