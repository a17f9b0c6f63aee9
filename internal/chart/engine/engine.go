// Package engine wires the chart components together: data, viewport,
// coordinate system, drawings, indicators, input handling and the render
// loop.
//
// An Engine is driven from a single goroutine. The frame scheduler passed to
// New must call back on that goroutine (schedule.Manual or a host loop);
// hosts without one pass nil and call RenderFrame themselves.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/chart/data"
	"chart-enginev1/internal/chart/drawing"
	"chart-enginev1/internal/chart/interaction"
	"chart-enginev1/internal/chart/render"
	"chart-enginev1/internal/chart/viewport"
	"chart-enginev1/internal/event"
	"chart-enginev1/internal/indicator"
	"chart-enginev1/internal/model"
	"chart-enginev1/internal/schedule"
)

var (
	// ErrNoSurface is returned by New when the canvas has no 2D surface.
	ErrNoSurface = errors.New("chart: unable to get 2D rendering surface")
	// ErrNotOverlay is returned for indicators that are not drawn on the
	// price scale.
	ErrNotOverlay = errors.New("chart: indicator is not a price overlay")
)

// DefaultFrameInterval is roughly one display frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Canvas provides the drawing surface and its size.
type Canvas interface {
	Context2D() (render.Surface, error)
	Size() (width, height float64)
}

// resizer is implemented by canvases whose backing store can change size.
type resizer interface {
	Resize(width, height float64)
}

// Options configure an Engine. Zero values take the canvas size, the
// default padding and the viewport's default visible count.
type Options struct {
	Width          float64
	Height         float64
	Padding        coord.Padding
	Background     string
	InitialVisible int
	FrameInterval  time.Duration
	Logger         *slog.Logger
}

type overlay struct {
	color string
}

// Engine is the chart composition root.
type Engine struct {
	canvas  Canvas
	surface render.Surface
	opts    Options
	logger  *slog.Logger

	data       *data.Provider
	vp         *viewport.Viewport
	cs         *coord.System
	drawings   *drawing.Manager
	input      *interaction.Manager
	indicators *indicator.Engine
	overlays   []overlay
	crosshair  render.Crosshair

	bus        *event.Bus[Event]
	unsubs     []func()
	cancelLoop func()
	dirty      bool
	frames     int
	destroyed  bool
}

// New acquires the canvas surface and builds a chart with no data. A nil
// scheduler disables the render loop.
func New(canvas Canvas, opts Options, sched schedule.Scheduler) (*Engine, error) {
	if canvas == nil {
		return nil, ErrNoSurface
	}
	surface, err := canvas.Context2D()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSurface, err)
	}
	if surface == nil {
		return nil, ErrNoSurface
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Padding == (coord.Padding{}) {
		opts.Padding = coord.DefaultPadding
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	cw, ch := canvas.Size()
	if opts.Width <= 0 {
		opts.Width = cw
	}
	if opts.Height <= 0 {
		opts.Height = ch
	}

	e := &Engine{
		canvas:     canvas,
		surface:    surface,
		opts:       opts,
		logger:     opts.Logger,
		data:       data.NewProvider(nil, opts.Logger),
		vp:         viewport.NewWithLogger(0, opts.InitialVisible, opts.Logger),
		drawings:   drawing.NewManager(opts.Logger),
		indicators: &indicator.Engine{},
		bus:        event.NewBus[Event]("chart", opts.Logger),
		dirty:      true,
	}
	st := e.vp.State()
	e.cs = coord.New(coord.Dimensions{Width: opts.Width, Height: opts.Height}, st.PriceRange, st.ViewWindow, opts.Padding)

	e.input = interaction.NewManager(e.cs)
	e.input.Register(interaction.NewPanHandler(e.vp))
	e.input.Register(interaction.NewZoomHandler(e.vp))
	e.input.Register(interaction.NewDrawingHandler(e.drawings))

	e.unsubs = append(e.unsubs,
		e.data.Subscribe(e.onDataChanged),
		e.vp.Subscribe(e.onViewportChanged),
		e.drawings.Subscribe(e.onDrawingEvent),
	)

	if sched != nil {
		e.cancelLoop = sched.Every(opts.FrameInterval, e.frame)
	}
	return e, nil
}

// Subscribe registers fn for chart events.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

func (e *Engine) onDataChanged(c data.Changed) {
	e.vp.SetDataLength(c.Len)
	e.fitPriceRange()
	e.indicators.Recompute(e.data.View())
	e.dirty = true
	e.bus.Publish(DataChanged{Len: c.Len})
}

func (e *Engine) onViewportChanged(c viewport.Changed) {
	e.cs.UpdateViewWindow(c.State.ViewWindow)
	e.cs.UpdatePriceRange(c.State.PriceRange)
	e.dirty = true
	e.bus.Publish(ViewportChanged{State: c.State})
}

func (e *Engine) onDrawingEvent(ev drawing.Event) {
	switch ev.(type) {
	case drawing.RedrawRequested, drawing.DrawingAdded, drawing.DrawingRemoved,
		drawing.DrawingMoved, drawing.DrawingsChanged, drawing.DrawingSelected,
		drawing.DrawingDeselected:
		e.dirty = true
	}
}

// fitPriceRange sets the price range to the visible candles plus margin.
func (e *Engine) fitPriceRange() {
	w := e.vp.State().ViewWindow
	r := e.data.PriceRange(w.Start, w.End)
	e.vp.SetPriceRange(r.Min, r.Max)
}

// ── Data ──

// SetData replaces the candle series and fits the view to it.
func (e *Engine) SetData(candles []model.Candle) {
	if e.destroyed {
		return
	}
	e.data.SetData(candles)
}

// LoadData replaces the series with one read from store.
func (e *Engine) LoadData(ctx context.Context, store model.CandleStore, series string) error {
	if e.destroyed {
		return nil
	}
	return e.data.Load(ctx, store, series)
}

// Data returns a copy of the series.
func (e *Engine) Data() []model.Candle { return e.data.Data() }

// AddIndicator computes a price overlay over the current data. It is kept
// up to date on later SetData calls. An empty color picks a default.
func (e *Engine) AddIndicator(kind indicator.Kind, period int, color string) error {
	if e.destroyed {
		return nil
	}
	if !kind.OnPriceScale() {
		return fmt.Errorf("%w: %s", ErrNotOverlay, kind)
	}
	if _, err := e.indicators.Add(indicator.IndicatorConfig{Kind: kind, Period: period}, e.data.View()); err != nil {
		return fmt.Errorf("add indicator: %w", err)
	}
	e.overlays = append(e.overlays, overlay{color: color})
	e.dirty = true
	return nil
}

// ── Geometry ──

// Resize changes the chart size.
func (e *Engine) Resize(width, height float64) {
	if e.destroyed {
		return
	}
	if r, ok := e.canvas.(resizer); ok {
		r.Resize(width, height)
	}
	e.cs.UpdateDimensions(coord.Dimensions{Width: width, Height: height})
	e.dirty = true
	e.bus.Publish(Resized{Width: width, Height: height})
}

func (e *Engine) Viewport() *viewport.Viewport     { return e.vp }
func (e *Engine) CoordinateSystem() *coord.System  { return e.cs }
func (e *Engine) Drawings() *drawing.Manager       { return e.drawings }
func (e *Engine) Indicators() []indicator.Series   { return e.indicators.Series() }
func (e *Engine) SetDrawingMode(mode drawing.Mode) { e.drawings.SetMode(mode) }
func (e *Engine) DrawingMode() drawing.Mode        { return e.drawings.Mode() }
func (e *Engine) Destroyed() bool                  { return e.destroyed }

// ── Input ──

func (e *Engine) PointerDown(p interaction.Pointer) bool {
	if e.destroyed {
		return false
	}
	return e.input.PointerDown(p)
}

// PointerMove also moves the crosshair.
func (e *Engine) PointerMove(p interaction.Pointer) bool {
	if e.destroyed {
		return false
	}
	e.crosshair.SetPosition(p.X, p.Y, e.cs)
	e.dirty = true
	return e.input.PointerMove(p)
}

func (e *Engine) PointerUp(p interaction.Pointer) bool {
	if e.destroyed {
		return false
	}
	return e.input.PointerUp(p)
}

func (e *Engine) Wheel(w interaction.Wheel) bool {
	if e.destroyed {
		return false
	}
	return e.input.Wheel(w)
}

// PointerLeave hides the crosshair.
func (e *Engine) PointerLeave() {
	if e.destroyed {
		return
	}
	e.crosshair.Hide()
	e.dirty = true
}

// ── Rendering ──

func (e *Engine) frame() {
	if e.destroyed || !e.dirty {
		return
	}
	e.RenderFrame()
}

// RenderFrame draws grid, candles, overlays, drawings and the crosshair.
// It only reads chart state.
func (e *Engine) RenderFrame() {
	if e.destroyed {
		return
	}
	e.dirty = false
	e.frames++

	s := e.surface
	s.Clear()
	candles := e.data.View()
	if len(candles) == 0 {
		return
	}
	if e.opts.Background != "" {
		s.Save()
		s.SetFillColor(e.opts.Background)
		d := e.cs.Dimensions()
		s.FillRect(0, 0, d.Width, d.Height)
		s.Restore()
	}

	render.Grid{}.Render(s, e.cs, candles)
	render.Candles{}.Render(s, e.cs, candles)
	for i, series := range e.indicators.Series() {
		render.Overlay(s, e.cs, series, e.overlays[i].color)
	}
	e.drawings.Render(s, e.cs)
	e.crosshair.Render(s, e.cs, candles)
}

// Frames returns the number of frames rendered.
func (e *Engine) Frames() int { return e.frames }

// Destroy stops the render loop and detaches input handlers and internal
// subscriptions. Every later call is a no-op.
func (e *Engine) Destroy() {
	if e.destroyed {
		return
	}
	if e.cancelLoop != nil {
		e.cancelLoop()
		e.cancelLoop = nil
	}
	e.input.Detach()
	for _, unsub := range e.unsubs {
		unsub()
	}
	e.unsubs = nil
	e.destroyed = true
	e.bus.Publish(Destroyed{})
	e.bus.Clear()
	e.logger.Debug("chart destroyed", "frames", e.frames)
}
