package render

import (
	"fmt"
	"math"
	"strings"

	"skillmatch/internal/types"
)

// GaugeFactory draws the score as a horizontal bar for terminals
type GaugeFactory struct {
	Width int
}

func (f GaugeFactory) NewChart(segments []types.Segment) (Chart, error) {
	if len(segments) != 2 {
		return nil, fmt.Errorf("gauge needs 2 segments, got %d", len(segments))
	}
	total := segments[0].Value + segments[1].Value
	if total <= 0 {
		return nil, fmt.Errorf("gauge segments sum to %v", total)
	}
	width := f.Width
	if width <= 0 {
		width = 20
	}
	return &gauge{fraction: segments[0].Value / total, width: width, label: ScoreText(segments[0].Value)}, nil
}

type gauge struct {
	fraction  float64
	width     int
	label     string
	destroyed bool
}

func (g *gauge) Render() string {
	if g.destroyed {
		return ""
	}
	filled := int(math.Round(g.fraction * float64(g.width)))
	filled = max(0, min(filled, g.width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", g.width-filled) + "] " + g.label
}

func (g *gauge) Destroy() {
	g.destroyed = true
}
