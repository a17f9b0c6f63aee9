package interaction

import (
	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/chart/drawing"
)

const (
	ZoomOutFactor = 1.1
	ZoomInFactor  = 0.9
)

// Panner is the part of the viewport PanHandler drives.
type Panner interface {
	Pan(deltaIndex int)
}

// Zoomer is the part of the viewport ZoomHandler drives.
type Zoomer interface {
	Zoom(factor, centerIndex float64)
	ScalePriceRange(factor, centerPrice float64)
}

// PanHandler drags the view window with the left button.
type PanHandler struct {
	vp       Panner
	dragging bool
	lastX    float64
}

func NewPanHandler(vp Panner) *PanHandler { return &PanHandler{vp: vp} }

func (h *PanHandler) PointerDown(p Pointer, cs *coord.System) bool {
	if p.Button != ButtonLeft || !cs.IsInChartArea(p.X, p.Y) {
		return false
	}
	h.dragging = true
	h.lastX = p.X
	return true
}

// PointerMove pans by whole candles. Sub-candle motion accumulates until it
// crosses a candle boundary.
func (h *PanHandler) PointerMove(p Pointer, cs *coord.System) bool {
	if !h.dragging {
		return false
	}
	delta := cs.XToIndexRounded(h.lastX) - cs.XToIndexRounded(p.X)
	if delta != 0 {
		h.vp.Pan(delta)
		h.lastX = p.X
	}
	return true
}

func (h *PanHandler) PointerUp(Pointer, *coord.System) bool {
	if !h.dragging {
		return false
	}
	h.dragging = false
	return true
}

func (h *PanHandler) Wheel(Wheel, *coord.System) bool { return false }

// Dragging reports whether a pan is in progress.
func (h *PanHandler) Dragging() bool { return h.dragging }

// ZoomHandler zooms around the cursor. Over the price axis it scales the
// price range instead.
type ZoomHandler struct {
	vp Zoomer
}

func NewZoomHandler(vp Zoomer) *ZoomHandler { return &ZoomHandler{vp: vp} }

func (h *ZoomHandler) PointerDown(Pointer, *coord.System) bool { return false }
func (h *ZoomHandler) PointerMove(Pointer, *coord.System) bool { return false }
func (h *ZoomHandler) PointerUp(Pointer, *coord.System) bool   { return false }

func (h *ZoomHandler) Wheel(w Wheel, cs *coord.System) bool {
	factor := ZoomInFactor
	if w.DeltaY > 0 {
		factor = ZoomOutFactor
	}
	switch {
	case cs.IsInChartArea(w.X, w.Y):
		h.vp.Zoom(factor, cs.XToIndex(w.X))
		return true
	case cs.IsInYAxisArea(w.X, w.Y):
		h.vp.ScalePriceRange(factor, cs.YToPrice(w.Y))
		return true
	}
	return false
}

// DrawingHandler forwards primary-button input to a drawing.Manager while
// a drawing mode is active.
type DrawingHandler struct {
	dm *drawing.Manager
}

func NewDrawingHandler(dm *drawing.Manager) *DrawingHandler { return &DrawingHandler{dm: dm} }

func (h *DrawingHandler) active() bool { return h.dm.Mode() != drawing.ModeNone }

func (h *DrawingHandler) PointerDown(p Pointer, cs *coord.System) bool {
	if !h.active() || p.Button != ButtonLeft {
		return false
	}
	return h.dm.PointerDown(p.X, p.Y, cs)
}

func (h *DrawingHandler) PointerMove(p Pointer, cs *coord.System) bool {
	if !h.active() {
		return false
	}
	return h.dm.PointerMove(p.X, p.Y, cs)
}

func (h *DrawingHandler) PointerUp(p Pointer, cs *coord.System) bool {
	if !h.active() {
		return false
	}
	return h.dm.PointerUp(p.X, p.Y, cs)
}

func (h *DrawingHandler) Wheel(Wheel, *coord.System) bool { return false }
