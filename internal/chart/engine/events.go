package engine

import "chart-enginev1/internal/chart/viewport"

// Event is the closed set of notifications published by an Engine.
type Event interface {
	chartEvent()
}

type DataChanged struct {
	Len int
}

type ViewportChanged struct {
	State viewport.State
}

type Resized struct {
	Width, Height float64
}

// Destroyed is the last event an Engine publishes.
type Destroyed struct{}

func (DataChanged) chartEvent()     {}
func (ViewportChanged) chartEvent() {}
func (Resized) chartEvent()         {}
func (Destroyed) chartEvent()       {}
