// Package charts renders price charts coloured by regime.
package charts

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 420
)

var stateColors = []drawing.Color{
	chart.ColorBlue,
	chart.ColorOrange,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorCyan,
}

// StateColor is the dot colour used for state i.
func StateColor(i int) drawing.Color {
	return stateColors[i%len(stateColors)]
}

func dotStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

// RenderRegimePNG draws the price path as a thin grey line with one dot
// series per state on top.
func RenderRegimePNG(w io.Writer, r *models.Report, width, height int) error {
	if len(r.Path) < 2 {
		return fmt.Errorf("chart needs at least 2 points: %w", models.ErrInsufficientData)
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	times := make([]time.Time, len(r.Path))
	prices := make([]float64, len(r.Path))
	lo, hi := r.Path[0].Price, r.Path[0].Price
	for i, p := range r.Path {
		times[i] = p.Time
		prices[i] = p.Price
		if p.Price < lo {
			lo = p.Price
		}
		if p.Price > hi {
			hi = p.Price
		}
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Price",
			XValues: times,
			YValues: prices,
			Style:   chart.Style{StrokeWidth: 1, StrokeColor: chart.ColorAlternateGray},
		},
	}
	for state := 0; state < r.Regimes; state++ {
		var xs []time.Time
		var ys []float64
		for _, p := range r.Path {
			if p.State == state {
				xs = append(xs, p.Time)
				ys = append(ys, p.Price)
			}
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    seriesName(r, state),
			XValues: xs,
			YValues: ys,
			Style:   dotStyle(StateColor(state)),
		})
	}

	// a flat series has a zero-width range, which go-chart rejects
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = hi*0.01 + 1e-6
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s: %d hidden states", r.Symbol, r.Regimes),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis: chart.YAxis{
			Name:  "Price",
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.LegendThin(&ch)}
	return ch.Render(chart.PNG, w)
}

// RenderRegimePNGBytes is RenderRegimePNG into a buffer.
func RenderRegimePNGBytes(r *models.Report, width, height int) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderRegimePNG(&buf, r, width, height); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func seriesName(r *models.Report, state int) string {
	for _, s := range r.States {
		if s.State == state && s.Label != "" {
			return fmt.Sprintf("State %d (%s)", state, s.Label)
		}
	}
	return fmt.Sprintf("State %d", state)
}
