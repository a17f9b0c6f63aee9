// Package render draws chart layers onto an abstract 2D Surface. The
// renderers only read coordinate-system output; they never change chart state.
package render

// TextAlign is the horizontal anchor of FillText.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Surface is the subset of a 2D canvas context the chart needs. Style
// setters affect subsequent operations until Restore pops them.
type Surface interface {
	// Clear erases everything drawn so far.
	Clear()
	// Save pushes the current style; Restore pops it.
	Save()
	Restore()

	SetStrokeColor(color string)
	SetFillColor(color string)
	SetLineWidth(w float64)
	// SetLineDash sets the dash pattern; nil means solid.
	SetLineDash(pattern []float64)
	// SetAlpha sets the global opacity in [0, 1].
	SetAlpha(a float64)
	SetFontSize(px float64)
	SetTextAlign(a TextAlign)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()

	FillRect(x, y, w, h float64)
	FillText(text string, x, y float64)
}

// Style is the drawing state tracked by Surface implementations.
type Style struct {
	Stroke    string
	Fill      string
	LineWidth float64
	Dash      []float64
	Alpha     float64
	FontSize  float64
	Align     TextAlign
}

// DefaultStyle matches a fresh canvas context.
func DefaultStyle() Style {
	return Style{Stroke: "#000000", Fill: "#000000", LineWidth: 1, Alpha: 1, FontSize: 10, Align: AlignLeft}
}

// styleStack is shared by the Surface implementations in this package.
type styleStack struct {
	cur   Style
	saved []Style
}

func newStyleStack() styleStack { return styleStack{cur: DefaultStyle()} }

func (s *styleStack) Save() {
	cp := s.cur
	cp.Dash = append([]float64(nil), s.cur.Dash...)
	s.saved = append(s.saved, cp)
}

func (s *styleStack) Restore() {
	if n := len(s.saved); n > 0 {
		s.cur = s.saved[n-1]
		s.saved = s.saved[:n-1]
	}
}

func (s *styleStack) SetStrokeColor(c string)  { s.cur.Stroke = c }
func (s *styleStack) SetFillColor(c string)    { s.cur.Fill = c }
func (s *styleStack) SetLineWidth(w float64)   { s.cur.LineWidth = w }
func (s *styleStack) SetLineDash(p []float64)  { s.cur.Dash = append([]float64(nil), p...) }
func (s *styleStack) SetFontSize(px float64)   { s.cur.FontSize = px }
func (s *styleStack) SetTextAlign(a TextAlign) { s.cur.Align = a }

func (s *styleStack) SetAlpha(a float64) {
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	s.cur.Alpha = a
}
