package interaction

import (
	"math"
	"testing"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/chart/drawing"
	"chart-enginev1/internal/chart/viewport"
)

// setup returns a 200-candle viewport showing {100, 200} and a coordinate
// system kept in sync with it, 6.8px per candle.
func setup(t *testing.T) (*viewport.Viewport, *coord.System) {
	t.Helper()
	vp := viewport.New(200, 100)
	st := vp.State()
	cs := coord.New(coord.Dimensions{Width: 800, Height: 600}, st.PriceRange, st.ViewWindow, coord.DefaultPadding)
	vp.Subscribe(func(e viewport.Changed) {
		cs.UpdateViewWindow(e.State.ViewWindow)
		cs.UpdatePriceRange(e.State.PriceRange)
	})
	return vp, cs
}

type recordingHandler struct {
	name    string
	consume bool
	log     *[]string
}

func (h *recordingHandler) hit() bool {
	*h.log = append(*h.log, h.name)
	return h.consume
}

func (h *recordingHandler) PointerDown(Pointer, *coord.System) bool { return h.hit() }
func (h *recordingHandler) PointerMove(Pointer, *coord.System) bool { return h.hit() }
func (h *recordingHandler) PointerUp(Pointer, *coord.System) bool   { return h.hit() }
func (h *recordingHandler) Wheel(Wheel, *coord.System) bool         { return h.hit() }

func TestManager_ReverseOrderFirstConsumerWins(t *testing.T) {
	var log []string
	m := NewManager(coord.New(coord.Dimensions{}, coord.PriceRange{}, coord.ViewWindow{}, coord.Padding{}))
	m.Register(&recordingHandler{name: "a", consume: true, log: &log})
	m.Register(&recordingHandler{name: "b", consume: false, log: &log})
	m.Register(&recordingHandler{name: "c", consume: false, log: &log})

	if !m.PointerDown(Pointer{}) {
		t.Fatal("expected the event to be consumed")
	}
	if len(log) != 3 || log[0] != "c" || log[1] != "b" || log[2] != "a" {
		t.Errorf("unexpected dispatch order %v", log)
	}

	log = nil
	top := &recordingHandler{name: "top", consume: true, log: &log}
	m.Register(top)
	m.Wheel(Wheel{})
	if len(log) != 1 || log[0] != "top" {
		t.Errorf("top handler should stop dispatch, got %v", log)
	}

	if !m.Unregister(top) || m.Unregister(top) {
		t.Error("Unregister should succeed exactly once")
	}
}

func TestManager_DetachStopsDispatch(t *testing.T) {
	var log []string
	m := NewManager(coord.New(coord.Dimensions{}, coord.PriceRange{}, coord.ViewWindow{}, coord.Padding{}))
	m.Register(&recordingHandler{name: "a", consume: true, log: &log})
	m.Detach()
	m.Register(&recordingHandler{name: "b", consume: true, log: &log})

	if m.PointerDown(Pointer{}) || m.Len() != 0 || len(log) != 0 {
		t.Errorf("detached manager dispatched: %v", log)
	}
}

func TestPanHandler_DragPansWholeCandles(t *testing.T) {
	vp, cs := setup(t)
	h := NewPanHandler(vp)

	if h.PointerDown(Pointer{X: 400, Y: 300, Button: ButtonRight}, cs) {
		t.Error("right button should not start a pan")
	}
	if h.PointerDown(Pointer{X: 20, Y: 300}, cs) {
		t.Error("press outside the chart should not start a pan")
	}
	if !h.PointerDown(Pointer{X: 400, Y: 300}, cs) {
		t.Fatal("left press in the chart should start a pan")
	}

	h.PointerMove(Pointer{X: 402, Y: 300}, cs)
	if w := vp.State().ViewWindow; w != (coord.ViewWindow{Start: 100, End: 200}) {
		t.Errorf("sub-candle move should not pan, got %+v", w)
	}

	h.PointerMove(Pointer{X: 468, Y: 300}, cs)
	if w := vp.State().ViewWindow; w != (coord.ViewWindow{Start: 90, End: 190}) {
		t.Errorf("expected {90, 190} after dragging 10 candles right, got %+v", w)
	}

	if !h.PointerUp(Pointer{}, cs) || h.Dragging() {
		t.Error("PointerUp should end the pan")
	}
	if h.PointerMove(Pointer{X: 300, Y: 300}, cs) {
		t.Error("moves after release should not be consumed")
	}
}

func TestPanHandler_StopsAtDataEnd(t *testing.T) {
	vp, cs := setup(t)
	h := NewPanHandler(vp)
	h.PointerDown(Pointer{X: 400, Y: 300}, cs)
	h.PointerMove(Pointer{X: 332, Y: 300}, cs)

	if w := vp.State().ViewWindow; w != (coord.ViewWindow{Start: 100, End: 200}) {
		t.Errorf("window should stay at the end of the data, got %+v", w)
	}
}

func TestZoomHandler(t *testing.T) {
	vp, cs := setup(t)
	h := NewZoomHandler(vp)

	if !h.Wheel(Wheel{X: 400, Y: 300, DeltaY: -1}, cs) {
		t.Fatal("wheel in the chart should be consumed")
	}
	if w := vp.State().ViewWindow; w != (coord.ViewWindow{Start: 105, End: 195}) {
		t.Errorf("expected {105, 195} after zooming in around 150, got %+v", w)
	}

	if !h.Wheel(Wheel{X: 30, Y: 300, DeltaY: 1}, cs) {
		t.Fatal("wheel over the price axis should be consumed")
	}
	if r := vp.State().PriceRange; math.Abs(r.Min+5) > 1e-9 || math.Abs(r.Max-105) > 1e-9 {
		t.Errorf("expected price range {-5, 105}, got %+v", r)
	}

	if h.Wheel(Wheel{X: 400, Y: 590, DeltaY: 1}, cs) {
		t.Error("wheel over the date axis should pass through")
	}
}

func TestDrawingHandler_YieldsToPanInModeNone(t *testing.T) {
	vp, cs := setup(t)
	dm := drawing.NewManager(nil)

	m := NewManager(cs)
	pan := NewPanHandler(vp)
	m.Register(pan)
	m.Register(NewZoomHandler(vp))
	m.Register(NewDrawingHandler(dm))

	if !m.PointerDown(Pointer{X: 400, Y: 300}) || !pan.Dragging() {
		t.Fatal("with no drawing mode the press should start a pan")
	}
	m.PointerUp(Pointer{X: 400, Y: 300})

	dm.SetMode(drawing.ModeHorizontal)
	if !m.PointerDown(Pointer{X: 400, Y: 300}) {
		t.Fatal("drawing mode should consume the press")
	}
	if pan.Dragging() {
		t.Error("pan should not see a press consumed by the drawing handler")
	}
	if dm.Len() != 1 {
		t.Errorf("expected a horizontal line, got %d drawings", dm.Len())
	}

	// Back in select mode a miss falls through to pan.
	if !m.PointerDown(Pointer{X: 400, Y: 100}) || !pan.Dragging() {
		t.Error("select-mode miss should start a pan")
	}
}
