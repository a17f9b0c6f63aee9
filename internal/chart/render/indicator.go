package render

import (
	"math"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/indicator"
)

// Overlay colors used when an indicator has none.
const (
	ColorSMA       = "#3b82f6"
	ColorBollinger = "#8b5cf6"
)

// Line draws values over the visible window, breaking the path at NaN.
func Line(s Surface, cs *coord.System, values []float64, color string, width float64) {
	w := cs.ViewWindow()
	end := min(w.End, len(values))

	s.Save()
	defer s.Restore()
	s.SetStrokeColor(color)
	s.SetLineWidth(width)
	s.BeginPath()
	first := true
	for i := max(0, w.Start); i < end; i++ {
		v := values[i]
		if math.IsNaN(v) {
			first = true
			continue
		}
		x, y := cs.IndexToX(float64(i)), cs.PriceToY(v)
		if first {
			s.MoveTo(x, y)
			first = false
		} else {
			s.LineTo(x, y)
		}
	}
	s.Stroke()
}

// Overlay draws every line of an indicator series. Bollinger middle bands
// are dashed.
func Overlay(s Surface, cs *coord.System, series indicator.Series, color string) {
	if color == "" {
		color = ColorSMA
		if series.Config.Kind == indicator.KindBollinger {
			color = ColorBollinger
		}
	}
	for _, l := range series.Lines {
		width := 2.0
		if series.Config.Kind == indicator.KindBollinger {
			width = 1
			if l.Name == "middle" {
				s.Save()
				s.SetLineDash([]float64{4, 4})
				Line(s, cs, l.Values, color, width)
				s.Restore()
				continue
			}
		}
		Line(s, cs, l.Values, color, width)
	}
}
