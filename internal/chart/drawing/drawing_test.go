package drawing

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/chart/render"
)

// 800x600 with default padding: the chart area is 680x520 starting at (60, 40).
func testSystem() *coord.System {
	return coord.New(coord.Dimensions{Width: 800, Height: 600}, coord.PriceRange{Min: 90, Max: 110},
		coord.ViewWindow{Start: 0, End: 100}, coord.DefaultPadding)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestTrendLine_HitTest(t *testing.T) {
	cs := testSystem()
	line := NewTrendLine(10, 95, 50, 105, Style{})

	mx, my := cs.IndexToX(30), cs.PriceToY(100)
	if !line.HitTest(mx, my, cs) {
		t.Errorf("midpoint (%.1f, %.1f) should hit", mx, my)
	}
	if line.HitTest(mx, my-20, cs) {
		t.Error("20px above the midpoint should miss")
	}

	// Beyond the end of the segment but on the infinite line.
	bx, by := cs.IndexToX(70), cs.PriceToY(110)
	if line.HitTest(bx, by, cs) {
		t.Error("point past the endpoint should miss")
	}
}

func TestHorizontalLine_HitTestAndHandles(t *testing.T) {
	cs := testSystem()
	h := NewHorizontalLine(100, Style{})

	if !h.HitTest(400, 303, cs) {
		t.Error("3px from the line should hit")
	}
	if h.HitTest(400, 306, cs) {
		t.Error("6px from the line should miss")
	}
	if h.HitTest(30, 300, cs) {
		t.Error("left of the chart area should miss")
	}

	hs := h.Handles(cs)
	if len(hs) != 2 || hs[0].X != 80 || hs[1].X != 720 || hs[0].Y != 300 {
		t.Errorf("unexpected handles %+v", hs)
	}
}

func TestTextAnnotation_HitBox(t *testing.T) {
	cs := testSystem()
	a := NewTextAnnotation(30, 100, "hi", Style{})
	x, y := cs.IndexToX(30), cs.PriceToY(100)

	if a.BoxWidth() != TextBoxMinWidth {
		t.Errorf("short text should use the minimum width, got %v", a.BoxWidth())
	}
	for _, p := range [][2]float64{{x - 5, y}, {x + 100, y}, {x, y - 15}, {x, y + 5}} {
		if !a.HitTest(p[0], p[1], cs) {
			t.Errorf("(%v, %v) should be inside the box", p[0], p[1])
		}
	}
	if a.HitTest(x-6, y, cs) || a.HitTest(x, y+6, cs) || a.HitTest(x+101, y, cs) {
		t.Error("points outside the box should miss")
	}

	long := NewTextAnnotation(0, 100, "a fairly long annotation text", Style{FontSize: 20})
	if want := float64(len("a fairly long annotation text")) * 20 * 0.6; !near(long.BoxWidth(), want) {
		t.Errorf("expected width %v, got %v", want, long.BoxWidth())
	}
}

func TestStyleDefaults(t *testing.T) {
	s := NewHorizontalLine(1, Style{Color: "#ff0000"}).Style()
	if s.Color != "#ff0000" || s.LineWidth != 2 || s.FontSize != 14 || s.Alpha != 1 {
		t.Errorf("unexpected style %+v", s)
	}
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManager(nil)
	m.Add(NewHorizontalLine(100, Style{}))

	d, _ := m.Get(0)
	d.Move(0, 5)
	again, _ := m.Get(0)
	if again.(*HorizontalLine).Price != 100 {
		t.Error("mutating a returned drawing changed the collection")
	}
	if _, ok := m.Get(1); ok {
		t.Error("Get out of range should fail")
	}
}

func TestManager_RemoveShiftsSelection(t *testing.T) {
	m := NewManager(nil)
	for i := 0; i < 3; i++ {
		m.Add(NewHorizontalLine(float64(95+i), Style{}))
	}
	m.Select(2)

	if !m.Remove(0) {
		t.Fatal("Remove(0) failed")
	}
	if idx, ok := m.Selected(); !ok || idx != 1 {
		t.Errorf("selection should shift to 1, got %d (%v)", idx, ok)
	}
	m.Remove(1)
	if _, ok := m.Selected(); ok {
		t.Error("removing the selected drawing should clear the selection")
	}
	if m.Remove(5) {
		t.Error("Remove out of range should fail")
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 drawing left, got %d", m.Len())
	}
}

func TestManager_RemovedEventCarriesCopy(t *testing.T) {
	m := NewManager(nil)
	m.Add(NewHorizontalLine(100, Style{}))
	held := m.drawings[0]

	var removed Drawing
	m.Subscribe(func(e Event) {
		if ev, ok := e.(DrawingRemoved); ok {
			removed = ev.Drawing
		}
	})
	m.Remove(0)

	if removed == nil {
		t.Fatal("expected a DrawingRemoved event")
	}
	if removed == held {
		t.Error("DrawingRemoved should carry a copy, not the stored drawing")
	}
	removed.Move(0, 5)
	if held.(*HorizontalLine).Price != 100 || removed.(*HorizontalLine).Price != 105 {
		t.Errorf("copy should move independently: held %v, removed %v",
			held.(*HorizontalLine).Price, removed.(*HorizontalLine).Price)
	}
}

func TestManager_HitTestTopmostFirst(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.Add(NewHorizontalLine(100, Style{}))
	m.Add(NewHorizontalLine(100, Style{}))
	if idx := m.HitTest(400, 300, cs); idx != 1 {
		t.Errorf("expected topmost index 1, got %d", idx)
	}
	if idx := m.HitTest(400, 100, cs); idx != -1 {
		t.Errorf("expected miss, got %d", idx)
	}
}

func collect(m *Manager) *[]Event {
	var evs []Event
	m.Subscribe(func(e Event) { evs = append(evs, e) })
	return &evs
}

func TestManager_TrendLinePlacement(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.SetMode(ModeTrendLine)
	evs := collect(m)

	if !m.PointerDown(cs.IndexToX(10), cs.PriceToY(95), cs) {
		t.Fatal("first click should be consumed")
	}
	if m.State().Placing == nil {
		t.Fatal("expected a line in progress")
	}
	m.PointerMove(cs.IndexToX(50), cs.PriceToY(105), cs)

	rec := render.NewRecorder()
	m.Render(rec, cs)
	strokes := rec.Filter("stroke")
	if len(strokes) != 1 || strokes[0].Style.Alpha != previewAlpha {
		t.Fatalf("expected one translucent preview stroke, got %+v", strokes)
	}

	if !m.PointerDown(cs.IndexToX(50), cs.PriceToY(105), cs) {
		t.Fatal("second click should be consumed")
	}
	if m.Len() != 1 || m.Mode() != ModeSelect || m.State().Placing != nil {
		t.Fatalf("expected committed line and select mode, got len=%d mode=%s", m.Len(), m.Mode())
	}
	d, _ := m.Get(0)
	line := d.(*TrendLine)
	if !near(line.StartIndex, 10) || !near(line.StartPrice, 95) || !near(line.EndIndex, 50) || !near(line.EndPrice, 105) {
		t.Errorf("unexpected line %+v", line)
	}

	var started, finished, modeChanged bool
	for _, e := range *evs {
		switch e := e.(type) {
		case DrawingStarted:
			started = e.Kind == KindTrendLine
		case DrawingFinished:
			finished = e.Index == 0
		case DrawingModeChanged:
			modeChanged = e.Mode == ModeSelect
		}
	}
	if !started || !finished || !modeChanged {
		t.Errorf("missing events: started=%v finished=%v mode=%v", started, finished, modeChanged)
	}
}

func TestManager_PlacementIgnoresClicksOutsideChart(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.SetMode(ModeHorizontal)
	if m.PointerDown(10, 300, cs) {
		t.Error("click over the price axis should not place a line")
	}
	if !m.PointerDown(400, 300, cs) || m.Len() != 1 || m.Mode() != ModeSelect {
		t.Fatal("one click should commit a horizontal line")
	}
	d, _ := m.Get(0)
	if !near(d.(*HorizontalLine).Price, 100) {
		t.Errorf("expected price 100, got %v", d.(*HorizontalLine).Price)
	}
}

func TestManager_SetModeCancelsPlacement(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.SetMode(ModeTrendLine)
	m.PointerDown(200, 200, cs)

	m.SetMode(ModeHorizontal)
	if m.State().Placing != nil || m.Len() != 0 {
		t.Error("switching modes should discard the line in progress")
	}
}

func TestManager_TextRequestFlow(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.SetMode(ModeText)
	evs := collect(m)

	m.PointerDown(cs.IndexToX(30), cs.PriceToY(100), cs)
	var req *TextInputRequested
	for _, e := range *evs {
		if r, ok := e.(TextInputRequested); ok {
			req = &r
		}
	}
	if req == nil || !near(req.Index, 30) || !near(req.Price, 100) {
		t.Fatalf("expected a text request at (30, 100), got %+v", req)
	}
	if m.Mode() != ModeText {
		t.Error("mode should stay text until the host answers")
	}

	if m.AddTextAnnotation(req.Index, req.Price, "   ", Style{}) {
		t.Error("blank text should be rejected")
	}
	if !m.AddTextAnnotation(req.Index, req.Price, "breakout", Style{}) {
		t.Fatal("AddTextAnnotation failed")
	}
	if m.Mode() != ModeSelect || m.Len() != 1 || m.State().PendingText != nil {
		t.Errorf("expected committed text in select mode, got mode=%s len=%d", m.Mode(), m.Len())
	}
}

func TestManager_SelectDragMovesRigidly(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.Add(NewTrendLine(10, 95, 50, 105, Style{}))
	m.SetMode(ModeSelect)

	x, y := cs.IndexToX(30), cs.PriceToY(100)
	if !m.PointerDown(x, y, cs) {
		t.Fatal("click on the line should be consumed")
	}
	if idx, ok := m.Selected(); !ok || idx != 0 {
		t.Fatal("line should be selected")
	}
	// One candle right and one price unit up.
	m.PointerMove(x+6.8, y-26, cs)
	m.PointerUp(x+6.8, y-26, cs)

	d, _ := m.Get(0)
	line := d.(*TrendLine)
	if !near(line.StartIndex, 11) || !near(line.EndIndex, 51) || !near(line.StartPrice, 96) || !near(line.EndPrice, 106) {
		t.Errorf("unexpected line after drag %+v", line)
	}
	if m.State().Dragging {
		t.Error("PointerUp should end the drag")
	}

	if m.PointerDown(400, 80, cs) {
		t.Error("a miss in select mode should pass through")
	}
	if _, ok := m.Selected(); ok {
		t.Error("a miss should deselect")
	}
}

func TestManager_RenderSelectionHandles(t *testing.T) {
	cs := testSystem()
	m := NewManager(nil)
	m.Add(NewHorizontalLine(100, Style{}))
	m.Select(0)

	rec := render.NewRecorder()
	m.Render(rec, cs)
	rects := rec.Filter("rect")
	if len(rects) != 2 {
		t.Fatalf("expected 2 handles, got %d", len(rects))
	}
	r := rects[0]
	if r.Style.Fill != handleColor || r.Args[0] != 77 || r.Args[1] != 297 || r.Args[2] != 6 {
		t.Errorf("unexpected handle %+v", r)
	}
}

func TestMoveIsRigid_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		si := rapid.Float64Range(-1000, 1000).Draw(t, "si")
		sp := rapid.Float64Range(-1000, 1000).Draw(t, "sp")
		ei := rapid.Float64Range(-1000, 1000).Draw(t, "ei")
		ep := rapid.Float64Range(-1000, 1000).Draw(t, "ep")
		di := rapid.Float64Range(-100, 100).Draw(t, "di")
		dp := rapid.Float64Range(-100, 100).Draw(t, "dp")

		line := NewTrendLine(si, sp, ei, ep, Style{})
		line.Move(di, dp)
		if math.Abs((line.EndIndex-line.StartIndex)-(ei-si)) > 1e-9 ||
			math.Abs((line.EndPrice-line.StartPrice)-(ep-sp)) > 1e-9 {
			t.Fatalf("move changed the line's extent: %+v", line)
		}
	})
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeNone, ModeSelect, ModeTrendLine, ModeHorizontal, ModeText} {
		if got := ParseMode(m.String()); got != m {
			t.Errorf("ParseMode(%q) = %v", m.String(), got)
		}
	}
}
