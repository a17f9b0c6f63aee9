// Package coord maps chart data space (candle index, price) to pixel space
// and back. All drawings and renderers go through a System so that pan, zoom
// and resize never desynchronise overlays from the candles underneath.
package coord

import "math"

// Dimensions is the canvas size in pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PriceRange is the visible price interval.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max-Min.
func (r PriceRange) Span() float64 { return r.Max - r.Min }

// Contains reports whether p lies in [Min, Max].
func (r PriceRange) Contains(p float64) bool { return p >= r.Min && p <= r.Max }

// ViewWindow is the half-open visible candle index range [Start, End).
type ViewWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Width returns the number of visible candles.
func (w ViewWindow) Width() int { return w.End - w.Start }

// Padding is the pixel margin reserved for the axes.
type Padding struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds is the drawable rectangle in pixels.
type Bounds struct {
	Left, Right, Top, Bottom float64
}

// DefaultPadding leaves room for price labels on the left and date labels
// along the bottom.
var DefaultPadding = Padding{X: 60, Y: 40}

// State is a value snapshot of a System.
type State struct {
	Dimensions Dimensions
	PriceRange PriceRange
	ViewWindow ViewWindow
	Padding    Padding
}

// System holds the parameters of the data/pixel transform. Nothing derived
// from them is cached, so updates take effect on the next conversion.
type System struct {
	dims    Dimensions
	prices  PriceRange
	window  ViewWindow
	padding Padding
}

// New creates a coordinate system.
func New(dims Dimensions, prices PriceRange, window ViewWindow, padding Padding) *System {
	return &System{dims: dims, prices: prices, window: window, padding: padding}
}

func (s *System) UpdateDimensions(d Dimensions) { s.dims = d }
func (s *System) UpdatePriceRange(r PriceRange) { s.prices = r }
func (s *System) UpdateViewWindow(w ViewWindow) { s.window = w }
func (s *System) UpdatePadding(p Padding)       { s.padding = p }
func (s *System) Dimensions() Dimensions        { return s.dims }
func (s *System) PriceRange() PriceRange        { return s.prices }
func (s *System) ViewWindow() ViewWindow        { return s.window }
func (s *System) Padding() Padding              { return s.padding }

// State returns a copy of the current parameters.
func (s *System) State() State {
	return State{Dimensions: s.dims, PriceRange: s.prices, ViewWindow: s.window, Padding: s.padding}
}

// ChartWidth is the drawable width; it may be zero or negative on tiny canvases.
func (s *System) ChartWidth() float64 { return s.dims.Width - 2*s.padding.X }

// ChartHeight is the drawable height; it may be zero or negative on tiny canvases.
func (s *System) ChartHeight() float64 { return s.dims.Height - 2*s.padding.Y }

// PriceToY maps a price onto the vertical axis, higher prices nearer the top.
func (s *System) PriceToY(price float64) float64 {
	h := s.ChartHeight()
	span := s.prices.Span()
	if h <= 0 || span == 0 {
		return s.padding.Y
	}
	return s.padding.Y + (s.prices.Max-price)/span*h
}

// IndexToX maps a (possibly fractional) candle index onto the horizontal axis.
func (s *System) IndexToX(index float64) float64 {
	w := s.ChartWidth()
	n := s.window.Width()
	if n <= 0 || w <= 0 {
		return s.padding.X
	}
	return s.padding.X + (index-float64(s.window.Start))/float64(n)*w
}

// YToPrice inverts PriceToY. y is clamped into the drawable area first, so
// the result always lies inside the price range.
func (s *System) YToPrice(y float64) float64 {
	h := s.ChartHeight()
	span := s.prices.Span()
	if h <= 0 || span == 0 {
		return s.prices.Min
	}
	cy := clamp(y, s.padding.Y, s.dims.Height-s.padding.Y)
	return s.prices.Max - (cy-s.padding.Y)/h*span
}

// XToIndex inverts IndexToX without rounding. x is clamped into the drawable
// area first, so the result always lies inside [Start, End].
func (s *System) XToIndex(x float64) float64 {
	w := s.ChartWidth()
	if w <= 0 {
		return float64(s.window.Start)
	}
	cx := clamp(x, s.padding.X, s.dims.Width-s.padding.X)
	return float64(s.window.Start) + (cx-s.padding.X)/w*float64(s.window.Width())
}

// XToIndexRounded is XToIndex rounded to the nearest candle.
func (s *System) XToIndexRounded(x float64) int {
	return int(math.Round(s.XToIndex(x)))
}

// ChartBounds returns the drawable rectangle.
func (s *System) ChartBounds() Bounds {
	return Bounds{
		Left:   s.padding.X,
		Right:  s.dims.Width - s.padding.X,
		Top:    s.padding.Y,
		Bottom: s.dims.Height - s.padding.Y,
	}
}

func (s *System) IsInChartArea(x, y float64) bool {
	b := s.ChartBounds()
	return x >= b.Left && x <= b.Right && y >= b.Top && y <= b.Bottom
}

// IsInYAxisArea reports whether (x, y) is over the price axis on the left.
func (s *System) IsInYAxisArea(x, y float64) bool {
	return x >= 0 && x <= s.padding.X && y >= 0 && y <= s.dims.Height
}

// IsInXAxisArea reports whether (x, y) is over the date axis at the bottom.
func (s *System) IsInXAxisArea(x, y float64) bool {
	return y >= s.dims.Height-s.padding.Y && y <= s.dims.Height && x >= 0 && x <= s.dims.Width
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// DistanceToSegment returns the pixel distance from (px, py) to the segment
// (x1, y1)-(x2, y2). A zero-length segment degrades to point distance.
func DistanceToSegment(px, py, x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-x1, py-y1)
	}
	t := ((px-x1)*dx + (py-y1)*dy) / lenSq
	t = clamp(t, 0, 1)
	return math.Hypot(px-(x1+t*dx), py-(y1+t*dy))
}
