package redact

import (
	"math"
	"strings"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
)

// MinBoxSize is the smallest width or height a box can be resized to, in
// render units.
const MinBoxSize = 10.0

// Edge selects the sides of a box a resize drags.
type Edge uint8

const (
	EdgeLeft Edge = 1 << iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

// ParseEdges reads handle names such as "top-left", "right" or "bottom".
func ParseEdges(handle string) Edge {
	var e Edge
	for name, bit := range map[string]Edge{"left": EdgeLeft, "right": EdgeRight, "top": EdgeTop, "bottom": EdgeBottom} {
		if strings.Contains(handle, name) {
			e |= bit
		}
	}
	return e
}

// Move shifts the box by dx, dy.
func (m MatchRect) Move(dx, dy float64) MatchRect {
	m.X += dx
	m.Y += dy
	return m
}

// Resize drags the selected edges by dx, dy. Left and top drags move the
// origin. Width and height are floored at MinBoxSize; a left or top drag
// stops at the floor, so the opposite edge stays put.
func (m MatchRect) Resize(edges Edge, dx, dy float64) MatchRect {
	if edges&EdgeRight != 0 {
		m.Width += dx
	}
	if edges&EdgeLeft != 0 {
		dx = math.Min(dx, m.Width-MinBoxSize)
		m.Width -= dx
		m.X += dx
	}
	if edges&EdgeBottom != 0 {
		m.Height += dy
	}
	if edges&EdgeTop != 0 {
		dy = math.Min(dy, m.Height-MinBoxSize)
		m.Height -= dy
		m.Y += dy
	}
	m.Width = math.Max(m.Width, MinBoxSize)
	m.Height = math.Max(m.Height, MinBoxSize)
	return m
}

// Rect returns the box as a render space rectangle.
func (m MatchRect) Rect() geometry.Rect {
	return geometry.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
}

// ToDocument converts render space boxes to document points (bottom-left
// origin) using the metrics of their pages. Boxes are clamped to the page
// first.
func ToDocument(boxes []MatchRect, metrics []geometry.PageMetrics) (map[int][]geometry.Rect, error) {
	byPage := make(map[int]geometry.PageMetrics, len(metrics))
	for _, m := range metrics {
		byPage[m.PageIndex] = m
	}
	out := make(map[int][]geometry.Rect)
	for _, b := range boxes {
		m, ok := byPage[b.Page]
		if !ok {
			return nil, apperr.Newf(apperr.CodeInvalidMetrics, "no metrics for page %d", b.Page)
		}
		r := geometry.ClampToPage(b.Rect(), m.RenderWidth, m.RenderHeight)
		p, err := geometry.ToDocumentSpace(r, m)
		if err != nil {
			return nil, err
		}
		pts, err := geometry.ToRenderTarget(p, m)
		if err != nil {
			return nil, err
		}
		out[b.Page] = append(out[b.Page], pts)
	}
	return out, nil
}
