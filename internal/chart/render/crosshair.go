package render

import (
	"strconv"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/model"
)

// Crosshair follows the pointer inside the chart area and labels the price
// and date under it.
type Crosshair struct {
	x, y    float64
	visible bool
}

// SetPosition moves the crosshair; positions outside the chart area hide it.
func (c *Crosshair) SetPosition(x, y float64, cs *coord.System) {
	c.x, c.y = x, y
	c.visible = cs.IsInChartArea(x, y)
}

// Hide removes the crosshair until the next SetPosition.
func (c *Crosshair) Hide() { c.visible = false }

// Visible reports whether the crosshair will be drawn.
func (c *Crosshair) Visible() bool { return c.visible }

func (c *Crosshair) Render(s Surface, cs *coord.System, data []model.Candle) {
	if !c.visible {
		return
	}
	b := cs.ChartBounds()

	s.Save()
	defer s.Restore()
	s.SetStrokeColor(ColorCrosshair)
	s.SetLineWidth(1)
	s.SetLineDash([]float64{5, 5})

	s.BeginPath()
	s.MoveTo(c.x, b.Top)
	s.LineTo(c.x, b.Bottom)
	s.Stroke()

	s.BeginPath()
	s.MoveTo(b.Left, c.y)
	s.LineTo(b.Right, c.y)
	s.Stroke()
	s.SetLineDash(nil)

	price := cs.YToPrice(c.y)
	s.SetFillColor(ColorLabelBox)
	s.FillRect(b.Right+2, c.y-10, 60, 20)
	s.SetFillColor(ColorLabelText)
	s.SetFontSize(12)
	s.SetTextAlign(AlignCenter)
	s.FillText(strconv.FormatFloat(price, 'f', 2, 64), b.Right+32, c.y+4)

	idx := cs.XToIndexRounded(c.x)
	if idx >= 0 && idx < len(data) {
		s.SetFillColor(ColorLabelBox)
		s.FillRect(c.x-30, b.Bottom+2, 60, 20)
		s.SetFillColor(ColorLabelText)
		s.FillText(shortDate(data[idx].Date), c.x, b.Bottom+16)
	}
}
