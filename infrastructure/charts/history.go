// Package charts renders the score-history line chart that accompanies a
// leaderboard comment: one cumulative line per top participant across the
// series' rounds.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/liquidfun/stackr/internal/domain"
	"github.com/liquidfun/stackr/internal/ports"
)

var _ ports.ChartRenderer = (*Renderer)(nil)

// Renderer draws cumulative score-history charts as PNGs.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a renderer with the default chart dimensions.
func NewRenderer() *Renderer {
	return &Renderer{width: 800, height: 400}
}

// RenderHistory renders one cumulative line per standing over rounds
// 1..rounds. Each line is annotated with the participant's name so the
// image is readable without a separate legend mapping.
func (r *Renderer) RenderHistory(standings []domain.Standing, rounds int) ([]byte, error) {
	if len(standings) == 0 {
		return nil, fmt.Errorf("no standings to chart")
	}

	series := make([]chart.Series, 0, len(standings))
	for _, s := range standings {
		points := s.Record.CumulativeSeries()
		if len(points) < 2 {
			// A single point draws no line.
			continue
		}
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = float64(p.Round)
			ys[i] = float64(p.Total)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (%d)", s.Participant, s.Score),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: 2,
				DotWidth:    3,
			},
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no participant has enough rounds to chart")
	}

	ticks := make([]chart.Tick, 0, rounds)
	for round := 1; round <= rounds; round++ {
		ticks = append(ticks, chart.Tick{Value: float64(round), Label: fmt.Sprintf("%d", round)})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Score History for Current Top %d Participants", len(standings)),
		Width:  r.width,
		Height: r.height,
		XAxis: chart.XAxis{
			Name:  "Post number",
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Stacked scores",
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
