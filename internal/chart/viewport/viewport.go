// Package viewport owns the visible candle window and price range of a chart
// and exposes pan and zoom as relative, clamped operations.
package viewport

import (
	"log/slog"
	"math"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/event"
)

const (
	// MinVisible is the smallest window width zoom may produce.
	MinVisible = 5
	// MinPriceSpan is the smallest allowed Max-Min of the price range.
	MinPriceSpan = 0.01
	// DefaultVisibleCount is the window width used when none is given.
	DefaultVisibleCount = 100
)

// State is a copy of the viewport's current values.
type State struct {
	ViewWindow coord.ViewWindow `json:"viewWindow"`
	PriceRange coord.PriceRange `json:"priceRange"`
	DataLength int              `json:"dataLength"`
}

// Changed is published whenever the window or the price range changes.
type Changed struct {
	State State
}

// Viewport never fails: out-of-range requests are clamped.
type Viewport struct {
	dataLength     int
	initialVisible int
	window         coord.ViewWindow
	prices         coord.PriceRange
	bus            *event.Bus[Changed]
}

// New shows the last initialVisibleCount candles of a series of dataLength
// candles. A non-positive initialVisibleCount selects DefaultVisibleCount.
func New(dataLength, initialVisibleCount int) *Viewport {
	return NewWithLogger(dataLength, initialVisibleCount, nil)
}

// NewWithLogger is New with an explicit logger for subscriber failures.
func NewWithLogger(dataLength, initialVisibleCount int, logger *slog.Logger) *Viewport {
	if initialVisibleCount <= 0 {
		initialVisibleCount = DefaultVisibleCount
	}
	if dataLength < 0 {
		dataLength = 0
	}
	v := &Viewport{
		dataLength:     dataLength,
		initialVisible: initialVisibleCount,
		prices:         coord.PriceRange{Min: 0, Max: 100},
		bus:            event.NewBus[Changed]("viewport", logger),
	}
	v.window = v.fit(dataLength-initialVisibleCount, dataLength)
	return v
}

// Subscribe registers fn for Changed events.
func (v *Viewport) Subscribe(fn func(Changed)) (unsubscribe func()) {
	return v.bus.Subscribe(fn)
}

// State returns a copy of the current window and price range.
func (v *Viewport) State() State {
	return State{ViewWindow: v.window, PriceRange: v.prices, DataLength: v.dataLength}
}

func (v *Viewport) DataLength() int { return v.dataLength }

// SetDataLength adapts the window to a series of n candles. A window that
// runs past the end is shifted left keeping its width where possible; an
// empty window grows to the last initialVisibleCount candles.
func (v *Viewport) SetDataLength(n int) {
	if n < 0 {
		n = 0
	}
	v.dataLength = n

	w := v.window
	switch {
	case n == 0:
		w = coord.ViewWindow{}
	case w.Width() <= 0:
		w = coord.ViewWindow{Start: max(0, n-v.initialVisible), End: n}
	case w.End > n:
		width := min(w.Width(), n)
		w = coord.ViewWindow{Start: n - width, End: n}
	}
	v.apply(v.fit(w.Start, w.End), v.prices)
}

// SetViewWindow clamps start to 0 and end to the data length, then widens
// the result to the minimum visible count if needed.
func (v *Viewport) SetViewWindow(start, end int) {
	n := v.dataLength
	if n == 0 {
		v.apply(coord.ViewWindow{}, v.prices)
		return
	}
	start = max(0, min(start, n))
	end = min(n, end)
	if end < start {
		end = start
	}
	v.apply(v.fit(start, end), v.prices)
}

// SetPriceRange swaps inverted bounds and widens spans below MinPriceSpan
// around their midpoint.
func (v *Viewport) SetPriceRange(lo, hi float64) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi-lo < MinPriceSpan {
		mid := (lo + hi) / 2
		lo, hi = mid-MinPriceSpan/2, mid+MinPriceSpan/2
	}
	v.apply(v.window, coord.PriceRange{Min: lo, Max: hi})
}

// Zoom rescales the window width by factor (below 1 zooms in) keeping
// centerIndex at the same relative position within the window.
func (v *Viewport) Zoom(factor, centerIndex float64) {
	w := v.window.Width()
	n := v.dataLength
	if w <= 0 || n <= 0 || !(factor > 0) || math.IsInf(factor, 0) || math.IsNaN(centerIndex) {
		return
	}
	newWidth := int(math.Round(float64(w) * factor))
	newWidth = max(min(MinVisible, n), min(newWidth, n))

	start := float64(v.window.Start)
	newStart := int(math.Round(centerIndex - (centerIndex-start)*float64(newWidth)/float64(w)))
	v.apply(v.fit(newStart, newStart+newWidth), v.prices)
}

// Pan shifts the window by deltaIndex candles, stopping at either end of the
// data without shrinking.
func (v *Viewport) Pan(deltaIndex int) {
	if v.window.Width() <= 0 || deltaIndex == 0 {
		return
	}
	v.apply(v.fit(v.window.Start+deltaIndex, v.window.End+deltaIndex), v.prices)
}

// ScalePriceRange rescales the price span by factor keeping centerPrice at
// the same relative height.
func (v *Viewport) ScalePriceRange(factor, centerPrice float64) {
	height := v.prices.Span()
	if height <= 0 || !(factor > 0) || math.IsInf(factor, 0) || math.IsNaN(centerPrice) {
		return
	}
	newHeight := math.Max(MinPriceSpan, height*factor)
	ratio := (centerPrice - v.prices.Min) / height
	v.SetPriceRange(centerPrice-newHeight*ratio, centerPrice+newHeight*(1-ratio))
}

// fit turns a requested [start, end) into a valid window: the width is kept
// between the minimum visible count and the data length, and the window is
// slid back inside [0, dataLength) without changing that width.
func (v *Viewport) fit(start, end int) coord.ViewWindow {
	n := v.dataLength
	if n <= 0 {
		return coord.ViewWindow{}
	}
	width := max(min(MinVisible, n), min(end-start, n))
	if start < 0 {
		start = 0
	}
	if start+width > n {
		start = n - width
	}
	return coord.ViewWindow{Start: start, End: start + width}
}

func (v *Viewport) apply(w coord.ViewWindow, r coord.PriceRange) {
	if w == v.window && r == v.prices {
		return
	}
	v.window = w
	v.prices = r
	v.bus.Publish(Changed{State: v.State()})
}
