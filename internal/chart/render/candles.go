package render

import (
	"math"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/model"
)

// Candles draws the visible candles as wicks and bodies.
type Candles struct{}

func (Candles) Render(s Surface, cs *coord.System, data []model.Candle) {
	w := cs.ViewWindow()
	end := min(w.End, len(data))
	if w.Start >= end || w.Width() <= 0 {
		return
	}
	body := math.Max(1, cs.ChartWidth()/float64(w.Width())*0.8)

	s.Save()
	defer s.Restore()
	s.SetLineWidth(1)

	for i := max(0, w.Start); i < end; i++ {
		c := data[i]
		x := cs.IndexToX(float64(i))
		openY := cs.PriceToY(c.Open)
		closeY := cs.PriceToY(c.Close)

		color := ColorDown
		if c.Bullish() {
			color = ColorUp
		}
		s.SetStrokeColor(color)
		s.BeginPath()
		s.MoveTo(x, cs.PriceToY(c.High))
		s.LineTo(x, cs.PriceToY(c.Low))
		s.Stroke()

		s.SetFillColor(color)
		s.FillRect(x-body/2, math.Min(openY, closeY), body, math.Max(math.Abs(closeY-openY), 1))
	}
}
