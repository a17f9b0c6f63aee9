package drawing

import (
	"log/slog"
	"strings"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/chart/render"
	"chart-enginev1/internal/event"
)

// Mode is the interactive drawing mode.
type Mode int

const (
	ModeNone Mode = iota
	ModeSelect
	ModeTrendLine
	ModeHorizontal
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeTrendLine:
		return "trendline"
	case ModeHorizontal:
		return "horizontal"
	case ModeText:
		return "text"
	default:
		return "none"
	}
}

// ParseMode maps a mode name back to a Mode. Unknown names yield ModeNone.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "select":
		return ModeSelect
	case "trendline", "trend":
		return ModeTrendLine
	case "horizontal", "hline":
		return ModeHorizontal
	case "text":
		return ModeText
	default:
		return ModeNone
	}
}

const (
	handleSize    = 6.0
	handleColor   = "#3b82f6"
	previewAlpha  = 0.5
	noDragTarget  = -1
	noSelection   = -1
	eventBusLabel = "drawing"
)

// TextRequest is the data-space point a pending text annotation is anchored at.
type TextRequest struct {
	Index float64
	Price float64
}

// InteractionState is everything the pointer handlers carry between calls.
// It is owned by the Manager; State returns a copy.
type InteractionState struct {
	Mode Mode

	// Placing is the trend line between its first and second click.
	Placing *TrendLine
	// PendingText is set between a text-mode click and the host's answer.
	PendingText *TextRequest

	Dragging  bool
	DragIndex int
	LastX     float64
	LastY     float64
}

// Manager owns the ordered drawing collection, the selection and the
// interactive placement state. It is not safe for concurrent use; the chart
// engine drives it from a single goroutine.
type Manager struct {
	drawings []Drawing
	selected int
	state    InteractionState
	style    Style

	bus *event.Bus[Event]
}

// NewManager returns an empty manager in ModeNone.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		selected: noSelection,
		state:    InteractionState{DragIndex: noDragTarget},
		style:    DefaultStyle(),
		bus:      event.NewBus[Event](eventBusLabel, logger),
	}
}

// Subscribe registers fn for all drawing events.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	return m.bus.Subscribe(fn)
}

// SetDefaultStyle sets the style used for interactively placed drawings.
func (m *Manager) SetDefaultStyle(s Style) { m.style = s.withDefaults() }
func (m *Manager) DefaultStyle() Style     { return m.style }

// Len returns the number of drawings.
func (m *Manager) Len() int { return len(m.drawings) }

// Get returns a copy of the drawing at index.
func (m *Manager) Get(index int) (Drawing, bool) {
	if !m.valid(index) {
		return nil, false
	}
	return m.drawings[index].Clone(), true
}

// Drawings returns copies of all drawings in z-order.
func (m *Manager) Drawings() []Drawing {
	out := make([]Drawing, len(m.drawings))
	for i, d := range m.drawings {
		out[i] = d.Clone()
	}
	return out
}

func (m *Manager) valid(index int) bool { return index >= 0 && index < len(m.drawings) }

// Add appends d on top of the z-order and returns its index. The manager
// keeps its own copy.
func (m *Manager) Add(d Drawing) int {
	if d == nil {
		return -1
	}
	d = d.Clone()
	m.drawings = append(m.drawings, d)
	idx := len(m.drawings) - 1
	m.bus.Publish(DrawingAdded{Index: idx, Drawing: d.Clone()})
	m.bus.Publish(DrawingsChanged{Drawings: m.Drawings()})
	return idx
}

// Remove deletes the drawing at index. Selection and drag target indices
// above it shift down by one; if it was selected the selection is cleared.
func (m *Manager) Remove(index int) bool {
	if !m.valid(index) {
		return false
	}
	removed := m.drawings[index]
	m.drawings = append(m.drawings[:index], m.drawings[index+1:]...)

	switch {
	case m.selected == index:
		m.selected = noSelection
	case m.selected > index:
		m.selected--
	}
	if m.state.Dragging {
		switch {
		case m.state.DragIndex == index:
			m.state.Dragging = false
			m.state.DragIndex = noDragTarget
		case m.state.DragIndex > index:
			m.state.DragIndex--
		}
	}

	m.bus.Publish(DrawingRemoved{Index: index, Drawing: removed.Clone()})
	m.bus.Publish(DrawingsChanged{Drawings: m.Drawings()})
	return true
}

// Clear removes every drawing and the selection.
func (m *Manager) Clear() {
	m.drawings = nil
	m.selected = noSelection
	m.state.Dragging = false
	m.state.DragIndex = noDragTarget
	m.bus.Publish(DrawingsChanged{Drawings: nil})
}

// Select selects the drawing at index. An invalid index deselects.
func (m *Manager) Select(index int) {
	if !m.valid(index) {
		m.Deselect()
		return
	}
	m.selected = index
	m.bus.Publish(DrawingSelected{Index: index})
}

func (m *Manager) Deselect() {
	m.selected = noSelection
	m.bus.Publish(DrawingDeselected{})
}

// Selected returns the selected index, if any.
func (m *Manager) Selected() (int, bool) {
	return m.selected, m.selected != noSelection
}

// HitTest returns the index of the topmost drawing under (x, y), or -1.
func (m *Manager) HitTest(x, y float64, cs *coord.System) int {
	for i := len(m.drawings) - 1; i >= 0; i-- {
		if m.drawings[i].HitTest(x, y, cs) {
			return i
		}
	}
	return -1
}

// MoveDrawing translates the drawing at index in data space.
func (m *Manager) MoveDrawing(index int, deltaIndex, deltaPrice float64) bool {
	if !m.valid(index) {
		return false
	}
	m.drawings[index].Move(deltaIndex, deltaPrice)
	m.bus.Publish(DrawingMoved{Index: index})
	m.bus.Publish(RedrawRequested{})
	return true
}

// AddTextAnnotation commits a text annotation. Blank text is rejected. When
// it answers a TextInputRequested the manager returns to ModeSelect.
func (m *Manager) AddTextAnnotation(index, price float64, text string, style Style) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	idx := m.Add(NewTextAnnotation(index, price, text, style))
	if m.state.PendingText != nil {
		m.state.PendingText = nil
		m.bus.Publish(DrawingFinished{Index: idx})
		m.SetMode(ModeSelect)
	}
	return true
}

// CancelText drops a pending text request. The mode is left unchanged.
func (m *Manager) CancelText() {
	m.state.PendingText = nil
}

// Mode returns the current interactive mode.
func (m *Manager) Mode() Mode { return m.state.Mode }

// State returns a copy of the interaction state.
func (m *Manager) State() InteractionState {
	st := m.state
	if st.Placing != nil {
		st.Placing = st.Placing.Clone().(*TrendLine)
	}
	if st.PendingText != nil {
		req := *st.PendingText
		st.PendingText = &req
	}
	return st
}

// SetMode switches modes. Any placement in progress is discarded.
func (m *Manager) SetMode(mode Mode) {
	hadPreview := m.state.Placing != nil
	m.state.Placing = nil
	m.state.PendingText = nil
	m.state.Dragging = false
	m.state.DragIndex = noDragTarget

	if mode != m.state.Mode {
		m.state.Mode = mode
		m.bus.Publish(DrawingModeChanged{Mode: mode})
	}
	if hadPreview {
		m.bus.Publish(RedrawRequested{})
	}
}

// PointerDown handles a primary button press. It returns true when the
// press was consumed; a select-mode miss returns false so panning can run.
func (m *Manager) PointerDown(x, y float64, cs *coord.System) bool {
	switch m.state.Mode {
	case ModeSelect:
		idx := m.HitTest(x, y, cs)
		if idx < 0 {
			if _, ok := m.Selected(); ok {
				m.Deselect()
			}
			return false
		}
		m.Select(idx)
		m.state.Dragging = true
		m.state.DragIndex = idx
		m.state.LastX, m.state.LastY = x, y
		return true

	case ModeTrendLine:
		if !cs.IsInChartArea(x, y) {
			return false
		}
		index, price := float64(cs.XToIndexRounded(x)), cs.YToPrice(y)
		if m.state.Placing == nil {
			m.state.Placing = NewTrendLine(index, price, index, price, m.style)
			m.bus.Publish(DrawingStarted{Kind: KindTrendLine})
			m.bus.Publish(RedrawRequested{})
			return true
		}
		line := m.state.Placing
		line.EndIndex, line.EndPrice = index, price
		m.state.Placing = nil
		idx := m.Add(line)
		m.bus.Publish(DrawingFinished{Index: idx})
		m.SetMode(ModeSelect)
		return true

	case ModeHorizontal:
		if !cs.IsInChartArea(x, y) {
			return false
		}
		m.bus.Publish(DrawingStarted{Kind: KindHorizontal})
		idx := m.Add(NewHorizontalLine(cs.YToPrice(y), m.style))
		m.bus.Publish(DrawingFinished{Index: idx})
		m.SetMode(ModeSelect)
		return true

	case ModeText:
		if !cs.IsInChartArea(x, y) {
			return false
		}
		req := TextRequest{Index: float64(cs.XToIndexRounded(x)), Price: cs.YToPrice(y)}
		m.state.PendingText = &req
		m.bus.Publish(DrawingStarted{Kind: KindText})
		m.bus.Publish(TextInputRequested{Index: req.Index, Price: req.Price})
		return true
	}
	return false
}

// PointerMove updates a trend line preview or drags the selected drawing.
func (m *Manager) PointerMove(x, y float64, cs *coord.System) bool {
	if line := m.state.Placing; line != nil {
		line.EndIndex, line.EndPrice = float64(cs.XToIndexRounded(x)), cs.YToPrice(y)
		m.bus.Publish(RedrawRequested{})
		return true
	}
	if !m.state.Dragging {
		return false
	}
	dIndex := cs.XToIndex(x) - cs.XToIndex(m.state.LastX)
	dPrice := cs.YToPrice(y) - cs.YToPrice(m.state.LastY)
	m.state.LastX, m.state.LastY = x, y
	m.MoveDrawing(m.state.DragIndex, dIndex, dPrice)
	return true
}

// PointerUp ends a drag.
func (m *Manager) PointerUp(x, y float64, cs *coord.System) bool {
	if !m.state.Dragging {
		return false
	}
	m.state.Dragging = false
	m.state.DragIndex = noDragTarget
	return true
}

// Render draws all drawings in z-order, the selection handles and the
// placement preview.
func (m *Manager) Render(s render.Surface, cs *coord.System) {
	for _, d := range m.drawings {
		d.Render(s, cs)
	}

	if m.valid(m.selected) {
		s.Save()
		s.SetFillColor(handleColor)
		for _, h := range m.drawings[m.selected].Handles(cs) {
			s.FillRect(h.X-handleSize/2, h.Y-handleSize/2, handleSize, handleSize)
		}
		s.Restore()
	}

	if m.state.Placing != nil {
		preview := m.state.Placing.Clone()
		preview.common().style.Alpha = previewAlpha
		preview.Render(s, cs)
	}
}
