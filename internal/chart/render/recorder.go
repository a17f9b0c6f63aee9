package render

// Op is one recorded Surface call.
type Op struct {
	Kind  string // "clear", "begin", "move", "line", "stroke", "rect", "text"
	Args  []float64
	Text  string
	Style Style
}

// Recorder is a Surface that remembers every call. Tests and headless hosts
// use it to inspect what a frame would draw.
type Recorder struct {
	styleStack
	Ops    []Op
	Clears int
}

// NewRecorder returns an empty recorder with the default style.
func NewRecorder() *Recorder {
	return &Recorder{styleStack: newStyleStack()}
}

func (r *Recorder) record(kind string, text string, args ...float64) {
	st := r.cur
	st.Dash = append([]float64(nil), r.cur.Dash...)
	r.Ops = append(r.Ops, Op{Kind: kind, Args: args, Text: text, Style: st})
}

func (r *Recorder) Clear() {
	r.Ops = r.Ops[:0]
	r.Clears++
}

func (r *Recorder) BeginPath()                      { r.record("begin", "") }
func (r *Recorder) MoveTo(x, y float64)             { r.record("move", "", x, y) }
func (r *Recorder) LineTo(x, y float64)             { r.record("line", "", x, y) }
func (r *Recorder) Stroke()                         { r.record("stroke", "") }
func (r *Recorder) FillRect(x, y, w, h float64)     { r.record("rect", "", x, y, w, h) }
func (r *Recorder) FillText(s string, x, y float64) { r.record("text", s, x, y) }

// Count returns the number of recorded ops of the given kind.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the recorded ops of the given kind.
func (r *Recorder) Filter(kind string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Texts returns the strings passed to FillText, in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Filter("text") {
		out = append(out, op.Text)
	}
	return out
}
