package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SVG is a Surface that accumulates SVG elements in memory.
type SVG struct {
	styleStack
	width, height float64
	background    string
	elems         []string
	path          strings.Builder
}

// NewSVG creates a surface of the given size. An empty background leaves
// the document transparent.
func NewSVG(width, height float64, background string) *SVG {
	return &SVG{styleStack: newStyleStack(), width: width, height: height, background: background}
}

// Resize changes the document size for subsequent writes.
func (s *SVG) Resize(width, height float64) {
	s.width, s.height = width, height
}

func (s *SVG) Clear() {
	s.elems = s.elems[:0]
	s.path.Reset()
}

func (s *SVG) BeginPath() { s.path.Reset() }

func (s *SVG) MoveTo(x, y float64) {
	fmt.Fprintf(&s.path, "M%s %s ", num(x), num(y))
}

func (s *SVG) LineTo(x, y float64) {
	if s.path.Len() == 0 {
		s.MoveTo(x, y)
		return
	}
	fmt.Fprintf(&s.path, "L%s %s ", num(x), num(y))
}

func (s *SVG) Stroke() {
	d := strings.TrimSpace(s.path.String())
	if d == "" {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="%s"`, d, attr(s.cur.Stroke), num(s.cur.LineWidth))
	if len(s.cur.Dash) > 0 {
		parts := make([]string, len(s.cur.Dash))
		for i, v := range s.cur.Dash {
			parts[i] = num(v)
		}
		fmt.Fprintf(&b, ` stroke-dasharray="%s"`, strings.Join(parts, ","))
	}
	s.opacity(&b)
	b.WriteString("/>")
	s.elems = append(s.elems, b.String())
}

func (s *SVG) FillRect(x, y, w, h float64) {
	var b strings.Builder
	fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"`, num(x), num(y), num(w), num(h), attr(s.cur.Fill))
	s.opacity(&b)
	b.WriteString("/>")
	s.elems = append(s.elems, b.String())
}

func (s *SVG) FillText(text string, x, y float64) {
	anchor := "start"
	switch s.cur.Align {
	case AlignCenter:
		anchor = "middle"
	case AlignRight:
		anchor = "end"
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<text x="%s" y="%s" font-family="Arial" font-size="%s" fill="%s" text-anchor="%s"`,
		num(x), num(y), num(s.cur.FontSize), attr(s.cur.Fill), anchor)
	s.opacity(&b)
	b.WriteString(">")
	b.WriteString(attr(text))
	b.WriteString("</text>")
	s.elems = append(s.elems, b.String())
}

func (s *SVG) opacity(b *strings.Builder) {
	if s.cur.Alpha < 1 {
		fmt.Fprintf(b, ` opacity="%s"`, num(s.cur.Alpha))
	}
}

// Len returns the number of elements drawn since the last Clear.
func (s *SVG) Len() int { return len(s.elems) }

// WriteTo writes the complete SVG document.
func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(s.width), num(s.height), num(s.width), num(s.height))
	if s.background != "" {
		fmt.Fprintf(&buf, `<rect x="0" y="0" width="100%%" height="100%%" fill="%s"/>`+"\n", attr(s.background))
	}
	for _, e := range s.elems {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	buf.WriteString("</svg>\n")
	return buf.WriteTo(w)
}

// Bytes returns the document as a byte slice.
func (s *SVG) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = s.WriteTo(&buf)
	return buf.Bytes()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func attr(v string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(v))
	return b.String()
}

// Size returns the document size.
func (s *SVG) Size() (width, height float64) { return s.width, s.height }

// Context2D lets an SVG document act as its own canvas.
func (s *SVG) Context2D() (Surface, error) { return s, nil }
