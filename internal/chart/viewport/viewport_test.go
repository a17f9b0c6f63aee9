package viewport

import (
	"math"
	"testing"

	"chart-enginev1/internal/chart/coord"

	"pgregory.net/rapid"
)

func TestNew_InitialWindow(t *testing.T) {
	v := New(200, 100)
	got := v.State().ViewWindow
	if got != (coord.ViewWindow{Start: 100, End: 200}) {
		t.Fatalf("expected {100 200}, got %+v", got)
	}
	if r := v.State().PriceRange; r.Min != 0 || r.Max != 100 {
		t.Errorf("expected default price range {0 100}, got %+v", r)
	}

	short := New(30, 100)
	if w := short.State().ViewWindow; w.Start != 0 || w.End != 30 {
		t.Errorf("short series: expected {0 30}, got %+v", w)
	}
}

func TestNew_SmallVisibleCountKeepsMinimumWidth(t *testing.T) {
	v := New(200, 3)
	if w := v.State().ViewWindow; w != (coord.ViewWindow{Start: 195, End: 200}) {
		t.Fatalf("expected {195 200}, got %+v", w)
	}
	v.Pan(0)
	if w := v.State().ViewWindow; w.Width() != MinVisible {
		t.Errorf("expected width %d after Pan(0), got %+v", MinVisible, w)
	}
	if w := New(3, 3).State().ViewWindow; w != (coord.ViewWindow{Start: 0, End: 3}) {
		t.Errorf("short series: expected {0 3}, got %+v", w)
	}
}

func TestZoom_HalvesAroundCenter(t *testing.T) {
	v := New(200, 100)
	v.Zoom(0.5, 150)

	w := v.State().ViewWindow
	if w.Width() != 50 {
		t.Fatalf("expected width 50, got %d", w.Width())
	}
	if w.Start != 125 || w.End != 175 {
		t.Errorf("expected {125 175}, got %+v", w)
	}
}

func TestZoom_FloorAndCeiling(t *testing.T) {
	v := New(200, 10)
	v.Zoom(0.01, 195)
	if w := v.State().ViewWindow; w.Width() != MinVisible {
		t.Errorf("zoom in should stop at %d candles, got %+v", MinVisible, w)
	}

	v.Zoom(100, 195)
	if w := v.State().ViewWindow; w.Start != 0 || w.End != 200 {
		t.Errorf("zoom out should stop at the full series, got %+v", w)
	}
}

func TestPan_StopsAtEdgesWithoutShrinking(t *testing.T) {
	v := New(200, 50)
	v.Pan(30)
	if w := v.State().ViewWindow; w.Start != 150 || w.End != 200 {
		t.Errorf("pan past the end: expected {150 200}, got %+v", w)
	}

	v.Pan(-1000)
	if w := v.State().ViewWindow; w.Start != 0 || w.End != 50 {
		t.Errorf("pan past the start: expected {0 50}, got %+v", w)
	}
}

func TestSetViewWindow_ClampsAndEmitsOnlyOnChange(t *testing.T) {
	v := New(100, 100)
	events := 0
	v.Subscribe(func(Changed) { events++ })

	v.SetViewWindow(-10, 500)
	if events != 0 {
		t.Errorf("clamped to the current window, expected no event, got %d", events)
	}

	v.SetViewWindow(10, 40)
	if w := v.State().ViewWindow; w.Start != 10 || w.End != 40 {
		t.Errorf("expected {10 40}, got %+v", w)
	}
	if events != 1 {
		t.Errorf("expected 1 event, got %d", events)
	}

	v.SetViewWindow(10, 40)
	if events != 1 {
		t.Errorf("same window should not emit, got %d events", events)
	}

	v.SetViewWindow(20, 21)
	if w := v.State().ViewWindow; w.Width() != MinVisible {
		t.Errorf("narrow window should widen to %d, got %+v", MinVisible, w)
	}
}

func TestSetPriceRange(t *testing.T) {
	v := New(10, 10)
	events := 0
	v.Subscribe(func(Changed) { events++ })

	v.SetPriceRange(0, 100)
	if events != 0 {
		t.Errorf("unchanged range should not emit")
	}

	v.SetPriceRange(120, 80)
	if r := v.State().PriceRange; r.Min != 80 || r.Max != 120 {
		t.Errorf("inverted bounds should be swapped, got %+v", r)
	}

	v.SetPriceRange(50, 50)
	r := v.State().PriceRange
	if r.Max <= r.Min || math.Abs(r.Span()-MinPriceSpan) > 1e-12 {
		t.Errorf("degenerate range should widen to %v, got %+v", MinPriceSpan, r)
	}
	if events != 2 {
		t.Errorf("expected 2 events, got %d", events)
	}
}

func TestScalePriceRange_FixedPoint(t *testing.T) {
	v := New(10, 10)
	v.SetPriceRange(100, 200)
	v.ScalePriceRange(0.5, 125)

	r := v.State().PriceRange
	if math.Abs(r.Min-112.5) > 1e-9 || math.Abs(r.Max-162.5) > 1e-9 {
		t.Errorf("expected {112.5 162.5}, got %+v", r)
	}
}

func TestSetDataLength(t *testing.T) {
	v := New(200, 100)
	v.SetDataLength(150)
	if w := v.State().ViewWindow; w.Start != 50 || w.End != 150 {
		t.Errorf("shrink: expected {50 150}, got %+v", w)
	}

	v.SetDataLength(60)
	if w := v.State().ViewWindow; w.Start != 0 || w.End != 60 {
		t.Errorf("shrink below width: expected {0 60}, got %+v", w)
	}

	empty := New(0, 100)
	empty.SetDataLength(300)
	if w := empty.State().ViewWindow; w.Start != 200 || w.End != 300 {
		t.Errorf("empty window should grow to last 100 candles, got %+v", w)
	}

	empty.SetDataLength(0)
	if w := empty.State().ViewWindow; w.Width() != 0 {
		t.Errorf("no data should leave an empty window, got %+v", w)
	}
}

func TestZoom_FixedPoint_Property(t *testing.T) {
	const chartWidth = 680.0
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(MinVisible, 5000).Draw(t, "n")
		v := New(n, rapid.IntRange(MinVisible, n).Draw(t, "visible"))
		before := v.State().ViewWindow

		factor := rapid.Float64Range(0.1, 3).Draw(t, "factor")
		center := rapid.Float64Range(float64(before.Start), float64(before.End)).Draw(t, "center")

		xBefore := (center - float64(before.Start)) / float64(before.Width()) * chartWidth
		v.Zoom(factor, center)
		after := v.State().ViewWindow

		// Only unshifted windows keep the fixed point; shifted ones are
		// pressed against an end of the data.
		if after.Start == 0 || after.End == n {
			return
		}
		xAfter := (center - float64(after.Start)) / float64(after.Width()) * chartWidth
		tolerance := 0.5*chartWidth/float64(after.Width()) + 1
		if math.Abs(xAfter-xBefore) > tolerance {
			t.Fatalf("centre moved %.3fpx (tolerance %.3f): %+v -> %+v", xAfter-xBefore, tolerance, before, after)
		}
	})
}

func TestBounds_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 2000).Draw(t, "n")
		v := New(n, rapid.IntRange(1, 300).Draw(t, "visible"))

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				v.Pan(rapid.IntRange(-3000, 3000).Draw(t, "delta"))
			case 1:
				v.Zoom(rapid.Float64Range(0.01, 10).Draw(t, "factor"), rapid.Float64Range(-100, 2100).Draw(t, "center"))
			case 2:
				v.SetViewWindow(rapid.IntRange(-100, 2100).Draw(t, "start"), rapid.IntRange(-100, 2100).Draw(t, "end"))
			case 3:
				n = rapid.IntRange(0, 2000).Draw(t, "newLength")
				v.SetDataLength(n)
			}

			w := v.State().ViewWindow
			if w.Start < 0 || w.End > n {
				t.Fatalf("window %+v outside [0,%d]", w, n)
			}
			if n >= MinVisible && w.Width() < MinVisible {
				t.Fatalf("window %+v narrower than %d with %d candles", w, MinVisible, n)
			}
			if n > 0 && w.Width() <= 0 {
				t.Fatalf("empty window %+v with %d candles", w, n)
			}
		}
	})
}
