// Package drawing implements chart annotations and the manager that owns
// them. Geometry is stored in data space (candle index, price) only; pixel
// positions are derived through a coord.System on every call.
package drawing

import (
	"math"
	"unicode/utf8"

	"chart-enginev1/internal/chart/coord"
	"chart-enginev1/internal/chart/render"
)

// Kind identifies a drawing variant.
type Kind string

const (
	KindTrendLine  Kind = "trendline"
	KindHorizontal Kind = "horizontal"
	KindText       Kind = "text"
)

const (
	// HitTolerance is the pixel distance within which a line counts as hit.
	HitTolerance = 5.0
	// HandleOffset insets horizontal line handles from the chart edges.
	HandleOffset = 20.0
	// TextBoxMinWidth is the minimum hit box width of a text annotation.
	TextBoxMinWidth = 100.0
	// charWidthRatio approximates glyph width as a fraction of font size.
	charWidthRatio = 0.6
)

// Style is shared by all variants. Zero fields take the defaults.
type Style struct {
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	FontSize  float64 `json:"fontSize"`
	Alpha     float64 `json:"alpha"`
}

// DefaultStyle is white, 2px wide, 14px text, opaque.
func DefaultStyle() Style {
	return Style{Color: "#ffffff", LineWidth: 2, FontSize: 14, Alpha: 1}
}

func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Color == "" {
		s.Color = d.Color
	}
	if s.LineWidth <= 0 {
		s.LineWidth = d.LineWidth
	}
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	if s.Alpha <= 0 || s.Alpha > 1 {
		s.Alpha = d.Alpha
	}
	return s
}

// Handle is a selection handle in pixel space.
type Handle struct {
	X, Y float64
	Type string
}

// Drawing is the closed set of annotations: *TrendLine, *HorizontalLine and
// *TextAnnotation. Callers switch on the concrete type.
type Drawing interface {
	Kind() Kind
	Style() Style
	Render(s render.Surface, cs *coord.System)
	HitTest(x, y float64, cs *coord.System) bool
	Move(deltaIndex, deltaPrice float64)
	Handles(cs *coord.System) []Handle
	Clone() Drawing

	common() *base
}

type base struct {
	style Style
}

func (b *base) Style() Style  { return b.style }
func (b *base) common() *base { return b }

// begin applies the drawing's stroke style inside a Save/Restore pair.
func (b *base) begin(s render.Surface) {
	s.Save()
	s.SetAlpha(b.style.Alpha)
	s.SetStrokeColor(b.style.Color)
	s.SetFillColor(b.style.Color)
	s.SetLineWidth(b.style.LineWidth)
}

// TrendLine is a segment between two data-space points.
type TrendLine struct {
	base
	StartIndex, StartPrice float64
	EndIndex, EndPrice     float64
}

// NewTrendLine creates a trend line from (startIndex, startPrice) to
// (endIndex, endPrice).
func NewTrendLine(startIndex, startPrice, endIndex, endPrice float64, style Style) *TrendLine {
	return &TrendLine{
		base:       base{style: style.withDefaults()},
		StartIndex: startIndex, StartPrice: startPrice,
		EndIndex: endIndex, EndPrice: endPrice,
	}
}

func (t *TrendLine) Kind() Kind { return KindTrendLine }

func (t *TrendLine) points(cs *coord.System) (x1, y1, x2, y2 float64) {
	return cs.IndexToX(t.StartIndex), cs.PriceToY(t.StartPrice), cs.IndexToX(t.EndIndex), cs.PriceToY(t.EndPrice)
}

func (t *TrendLine) Render(s render.Surface, cs *coord.System) {
	x1, y1, x2, y2 := t.points(cs)
	t.begin(s)
	defer s.Restore()
	s.BeginPath()
	s.MoveTo(x1, y1)
	s.LineTo(x2, y2)
	s.Stroke()
}

// HitTest measures the distance to the segment, so points beyond either
// endpoint only hit within the tolerance of that endpoint.
func (t *TrendLine) HitTest(x, y float64, cs *coord.System) bool {
	x1, y1, x2, y2 := t.points(cs)
	return coord.DistanceToSegment(x, y, x1, y1, x2, y2) < HitTolerance
}

// Move translates both endpoints by the same delta.
func (t *TrendLine) Move(deltaIndex, deltaPrice float64) {
	t.StartIndex += deltaIndex
	t.EndIndex += deltaIndex
	t.StartPrice += deltaPrice
	t.EndPrice += deltaPrice
}

func (t *TrendLine) Handles(cs *coord.System) []Handle {
	x1, y1, x2, y2 := t.points(cs)
	return []Handle{{X: x1, Y: y1, Type: "start"}, {X: x2, Y: y2, Type: "end"}}
}

func (t *TrendLine) Clone() Drawing {
	cp := *t
	return &cp
}

// HorizontalLine spans the chart width at a fixed price.
type HorizontalLine struct {
	base
	Price float64
}

func NewHorizontalLine(price float64, style Style) *HorizontalLine {
	return &HorizontalLine{base: base{style: style.withDefaults()}, Price: price}
}

func (h *HorizontalLine) Kind() Kind { return KindHorizontal }

func (h *HorizontalLine) Render(s render.Surface, cs *coord.System) {
	b := cs.ChartBounds()
	y := cs.PriceToY(h.Price)
	h.begin(s)
	defer s.Restore()
	s.BeginPath()
	s.MoveTo(b.Left, y)
	s.LineTo(b.Right, y)
	s.Stroke()
}

func (h *HorizontalLine) HitTest(x, y float64, cs *coord.System) bool {
	b := cs.ChartBounds()
	return math.Abs(y-cs.PriceToY(h.Price)) < HitTolerance && x >= b.Left && x <= b.Right
}

// Move shifts the price only.
func (h *HorizontalLine) Move(_, deltaPrice float64) {
	h.Price += deltaPrice
}

func (h *HorizontalLine) Handles(cs *coord.System) []Handle {
	b := cs.ChartBounds()
	y := cs.PriceToY(h.Price)
	return []Handle{
		{X: b.Left + HandleOffset, Y: y, Type: "left"},
		{X: b.Right - HandleOffset, Y: y, Type: "right"},
	}
}

func (h *HorizontalLine) Clone() Drawing {
	cp := *h
	return &cp
}

// TextAnnotation is a label anchored at a data-space point.
type TextAnnotation struct {
	base
	Index, Price float64
	Text         string
}

func NewTextAnnotation(index, price float64, text string, style Style) *TextAnnotation {
	return &TextAnnotation{base: base{style: style.withDefaults()}, Index: index, Price: price, Text: text}
}

func (a *TextAnnotation) Kind() Kind { return KindText }

func (a *TextAnnotation) Render(s render.Surface, cs *coord.System) {
	a.begin(s)
	defer s.Restore()
	s.SetFontSize(a.style.FontSize)
	s.SetTextAlign(render.AlignLeft)
	s.FillText(a.Text, cs.IndexToX(a.Index), cs.PriceToY(a.Price))
}

// BoxWidth is the estimated rendered width of the text in pixels, never
// less than TextBoxMinWidth.
func (a *TextAnnotation) BoxWidth() float64 {
	w := float64(utf8.RuneCountInString(a.Text)) * a.style.FontSize * charWidthRatio
	return math.Max(TextBoxMinWidth, w)
}

// HitTest checks the box [x-5, x+width] by [y-15, y+5] around the anchor.
func (a *TextAnnotation) HitTest(x, y float64, cs *coord.System) bool {
	tx, ty := cs.IndexToX(a.Index), cs.PriceToY(a.Price)
	return x >= tx-5 && x <= tx+a.BoxWidth() && y >= ty-15 && y <= ty+5
}

func (a *TextAnnotation) Move(deltaIndex, deltaPrice float64) {
	a.Index += deltaIndex
	a.Price += deltaPrice
}

func (a *TextAnnotation) Handles(cs *coord.System) []Handle {
	return []Handle{{X: cs.IndexToX(a.Index), Y: cs.PriceToY(a.Price), Type: "position"}}
}

func (a *TextAnnotation) Clone() Drawing {
	cp := *a
	return &cp
}
