package drawing

// Event is the closed set of notifications published by a Manager.
// Drawings carried in events are copies.
type Event interface {
	drawingEvent()
}

type DrawingAdded struct {
	Index   int
	Drawing Drawing
}

type DrawingRemoved struct {
	Index   int
	Drawing Drawing
}

// DrawingsChanged carries the full collection after a structural change.
type DrawingsChanged struct {
	Drawings []Drawing
}

type DrawingSelected struct {
	Index int
}

type DrawingDeselected struct{}

type DrawingMoved struct {
	Index int
}

// RedrawRequested asks the host to render a frame, e.g. after a preview
// changed.
type RedrawRequested struct{}

type DrawingModeChanged struct {
	Mode Mode
}

// DrawingStarted is published when interactive placement begins.
type DrawingStarted struct {
	Kind Kind
}

// DrawingFinished is published when interactive placement commits a drawing.
type DrawingFinished struct {
	Index int
}

// TextInputRequested asks the host for annotation text. The host answers
// with Manager.AddTextAnnotation or Manager.CancelText.
type TextInputRequested struct {
	Index float64
	Price float64
}

func (DrawingAdded) drawingEvent()       {}
func (DrawingRemoved) drawingEvent()     {}
func (DrawingsChanged) drawingEvent()    {}
func (DrawingSelected) drawingEvent()    {}
func (DrawingDeselected) drawingEvent()  {}
func (DrawingMoved) drawingEvent()       {}
func (RedrawRequested) drawingEvent()    {}
func (DrawingModeChanged) drawingEvent() {}
func (DrawingStarted) drawingEvent()     {}
func (DrawingFinished) drawingEvent()    {}
func (TextInputRequested) drawingEvent() {}
