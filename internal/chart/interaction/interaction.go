// Package interaction routes pointer and wheel input to chart handlers.
package interaction

import (
	"chart-enginev1/internal/chart/coord"
)

// Button is a pointer button; ButtonLeft is the primary button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Pointer is a pointer event in canvas pixels.
type Pointer struct {
	X, Y   float64
	Button Button
}

// Wheel is a scroll event; positive DeltaY scrolls down.
type Wheel struct {
	X, Y   float64
	DeltaY float64
}

// Handler reacts to input. Each method returns true when it consumed the
// event, which stops dispatch to handlers registered before it.
type Handler interface {
	PointerDown(p Pointer, cs *coord.System) bool
	PointerMove(p Pointer, cs *coord.System) bool
	PointerUp(p Pointer, cs *coord.System) bool
	Wheel(w Wheel, cs *coord.System) bool
}

// Manager dispatches input to handlers, most recently registered first.
type Manager struct {
	cs       *coord.System
	handlers []Handler
	detached bool
}

func NewManager(cs *coord.System) *Manager {
	return &Manager{cs: cs}
}

// Register adds h on top of the dispatch order.
func (m *Manager) Register(h Handler) {
	if m.detached || h == nil {
		return
	}
	m.handlers = append(m.handlers, h)
}

// Unregister removes h; it reports whether h was registered.
func (m *Manager) Unregister(h Handler) bool {
	for i, x := range m.handlers {
		if x == h {
			m.handlers = append(m.handlers[:i], m.handlers[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manager) Len() int { return len(m.handlers) }

// Detach drops every handler. A detached manager ignores all input and
// further registrations.
func (m *Manager) Detach() {
	m.handlers = nil
	m.detached = true
}

func (m *Manager) dispatch(fn func(Handler) bool) bool {
	for i := len(m.handlers) - 1; i >= 0; i-- {
		if fn(m.handlers[i]) {
			return true
		}
	}
	return false
}

func (m *Manager) PointerDown(p Pointer) bool {
	return m.dispatch(func(h Handler) bool { return h.PointerDown(p, m.cs) })
}

func (m *Manager) PointerMove(p Pointer) bool {
	return m.dispatch(func(h Handler) bool { return h.PointerMove(p, m.cs) })
}

func (m *Manager) PointerUp(p Pointer) bool {
	return m.dispatch(func(h Handler) bool { return h.PointerUp(p, m.cs) })
}

func (m *Manager) Wheel(w Wheel) bool {
	return m.dispatch(func(h Handler) bool { return h.Wheel(w, m.cs) })
}
