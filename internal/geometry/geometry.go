// Package geometry converts placements between render space and document
// space.
//
// Render space is the pixel grid of a rasterized page preview: origin at the
// top-left corner, y growing downwards, at some display scale. Document space
// is the native page coordinate system: points, origin at the bottom-left
// corner, y growing upwards.
//
// PlacementRect is the device independent form both sides exchange. It holds
// fractions of the page size measured from the top-left corner, so the
// preview scale never leaks into stored or transmitted positions. Every
// feature that places something on a page (signatures, watermark anchors,
// redaction boxes, crop windows) goes through the functions in this package.
package geometry

import (
	"math"

	"go-pdftools/internal/apperr"
)

// Rect is an axis aligned rectangle. Whether X/Y denote the top-left corner
// (render space) or the bottom-left corner (document space) depends on the
// function that produced it.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageMetrics describes one page as rendered for preview and as stored in
// the document.
type PageMetrics struct {
	PageIndex      int     `json:"pageIndex"`
	RenderWidth    float64 `json:"renderWidth"`
	RenderHeight   float64 `json:"renderHeight"`
	DocumentWidth  float64 `json:"documentWidth"`
	DocumentHeight float64 `json:"documentHeight"`
}

// NewPageMetrics returns metrics for a page of the given size in points,
// rendered at a uniform scale.
func NewPageMetrics(index int, docWidth, docHeight, scale float64) (PageMetrics, error) {
	m := PageMetrics{
		PageIndex:      index,
		RenderWidth:    docWidth * scale,
		RenderHeight:   docHeight * scale,
		DocumentWidth:  docWidth,
		DocumentHeight: docHeight,
	}
	if index < 0 {
		return PageMetrics{}, apperr.Newf(apperr.CodeInvalidMetrics, "negative page index %d", index)
	}
	if err := m.Validate(); err != nil {
		return PageMetrics{}, err
	}
	return m, nil
}

// Validate fails with an InvalidMetrics error if any dimension is not a
// positive finite number.
func (m PageMetrics) Validate() error {
	for _, v := range []float64{m.RenderWidth, m.RenderHeight, m.DocumentWidth, m.DocumentHeight} {
		if !(v > 0) || math.IsInf(v, 0) {
			return apperr.Newf(apperr.CodeInvalidMetrics,
				"page %d: dimensions must be positive (render %gx%g, document %gx%g)",
				m.PageIndex, m.RenderWidth, m.RenderHeight, m.DocumentWidth, m.DocumentHeight).
				With("page", m.PageIndex)
		}
	}
	return nil
}

// Scale is the number of render units per document point.
func (m PageMetrics) Scale() float64 {
	return m.RenderWidth / m.DocumentWidth
}

// PlacementRect is a rectangle expressed as fractions of the page size with
// the origin in the top-left corner.
type PlacementRect struct {
	Page          int     `json:"page"`
	XPercent      float64 `json:"xPercent"`
	YPercent      float64 `json:"yPercent"`
	WidthPercent  float64 `json:"widthPercent"`
	HeightPercent float64 `json:"heightPercent"`
}

// ToDocumentSpace turns a render space rectangle (pixels, top-left origin)
// into page fractions.
func ToDocumentSpace(r Rect, m PageMetrics) (PlacementRect, error) {
	if err := m.Validate(); err != nil {
		return PlacementRect{}, err
	}
	return PlacementRect{
		Page:          m.PageIndex,
		XPercent:      r.X / m.RenderWidth,
		YPercent:      r.Y / m.RenderHeight,
		WidthPercent:  r.Width / m.RenderWidth,
		HeightPercent: r.Height / m.RenderHeight,
	}, nil
}

// ToRenderTarget returns the rectangle in document points with a bottom-left
// origin. Y is the element's bottom edge, so the vertical flip subtracts the
// element height as well as its top offset.
func ToRenderTarget(p PlacementRect, m PageMetrics) (Rect, error) {
	if err := m.Validate(); err != nil {
		return Rect{}, err
	}
	return Rect{
		X:      p.XPercent * m.DocumentWidth,
		Y:      m.DocumentHeight - (p.YPercent+p.HeightPercent)*m.DocumentHeight,
		Width:  p.WidthPercent * m.DocumentWidth,
		Height: p.HeightPercent * m.DocumentHeight,
	}, nil
}

// FromRenderTarget is the inverse of ToRenderTarget. It is used when a
// client sends point coordinates instead of fractions.
func FromRenderTarget(r Rect, m PageMetrics) (PlacementRect, error) {
	if err := m.Validate(); err != nil {
		return PlacementRect{}, err
	}
	return PlacementRect{
		Page:          m.PageIndex,
		XPercent:      r.X / m.DocumentWidth,
		YPercent:      (m.DocumentHeight - r.Y - r.Height) / m.DocumentHeight,
		WidthPercent:  r.Width / m.DocumentWidth,
		HeightPercent: r.Height / m.DocumentHeight,
	}, nil
}

// ToRenderSpace returns the placement in preview pixels, top-left origin.
func ToRenderSpace(p PlacementRect, m PageMetrics) (Rect, error) {
	if err := m.Validate(); err != nil {
		return Rect{}, err
	}
	return Rect{
		X:      p.XPercent * m.RenderWidth,
		Y:      p.YPercent * m.RenderHeight,
		Width:  p.WidthPercent * m.RenderWidth,
		Height: p.HeightPercent * m.RenderHeight,
	}, nil
}

// ClampToPage moves r so that it lies inside [0,pageWidth]x[0,pageHeight].
// Size is never changed: a rectangle wider or taller than the page is pinned
// to 0 on that axis and still overflows.
func ClampToPage(r Rect, pageWidth, pageHeight float64) Rect {
	r.X = math.Max(0, math.Min(r.X, pageWidth-r.Width))
	r.Y = math.Max(0, math.Min(r.Y, pageHeight-r.Height))
	return r
}

// Clamp moves the placement back onto the unit page.
func (p PlacementRect) Clamp() PlacementRect {
	c := ClampToPage(Rect{X: p.XPercent, Y: p.YPercent, Width: p.WidthPercent, Height: p.HeightPercent}, 1, 1)
	p.XPercent, p.YPercent = c.X, c.Y
	return p
}

// Validate reports an OutOfRange error unless the placement lies entirely
// within the page.
func (p PlacementRect) Validate() error {
	for _, v := range []float64{p.XPercent, p.YPercent, p.WidthPercent, p.HeightPercent} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return p.outOfRange()
		}
	}
	if p.XPercent+p.WidthPercent > 1+epsilon || p.YPercent+p.HeightPercent > 1+epsilon {
		return p.outOfRange()
	}
	return nil
}

// epsilon absorbs rounding in x+width sums produced by Clamp.
const epsilon = 1e-9

func (p PlacementRect) outOfRange() error {
	return apperr.Newf(apperr.CodeOutOfRange,
		"placement on page %d outside page bounds (x=%g y=%g w=%g h=%g)",
		p.Page, p.XPercent, p.YPercent, p.WidthPercent, p.HeightPercent).With("page", p.Page)
}
