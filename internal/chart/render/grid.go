package render

import (
	"strconv"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/model"
)

// Chart palette.
const (
	ColorGrid      = "#374151"
	ColorAxisLabel = "#9ca3af"
	ColorUp        = "#10b981"
	ColorDown      = "#ef4444"
	ColorCrosshair = "#6b7280"
	ColorLabelBox  = "#374151"
	ColorLabelText = "#ffffff"
)

// GridLines is the number of horizontal price divisions.
const GridLines = 10

// Grid draws price and date grid lines with axis labels.
type Grid struct{}

func (Grid) Render(s Surface, cs *coord.System, data []model.Candle) {
	st := cs.State()
	b := cs.ChartBounds()
	h := cs.ChartHeight()
	pr := st.PriceRange

	s.Save()
	defer s.Restore()
	s.SetStrokeColor(ColorGrid)
	s.SetLineWidth(1)
	s.SetFontSize(12)

	for i := 0; i <= GridLines; i++ {
		y := b.Top + float64(i)*h/GridLines
		s.BeginPath()
		s.MoveTo(b.Left, y)
		s.LineTo(b.Right, y)
		s.Stroke()

		price := pr.Max - float64(i)*pr.Span()/GridLines
		s.SetFillColor(ColorAxisLabel)
		s.SetTextAlign(AlignRight)
		s.FillText(strconv.FormatFloat(price, 'f', 2, 64), b.Left-5, y+4)
	}

	w := st.ViewWindow
	visible := w.Width()
	step := max(1, visible/10)
	s.SetTextAlign(AlignCenter)
	for i := 0; i < visible; i += step {
		idx := w.Start + i
		if idx >= len(data) {
			break
		}
		x := cs.IndexToX(float64(idx))
		s.BeginPath()
		s.MoveTo(x, b.Top)
		s.LineTo(x, b.Bottom)
		s.Stroke()
		s.SetFillColor(ColorAxisLabel)
		s.FillText(shortDate(data[idx].Date), x, b.Bottom+20)
	}
}

// shortDate drops the year from YYYY-MM-DD.
func shortDate(d string) string {
	if len(d) > 5 {
		return d[5:]
	}
	return d
}
