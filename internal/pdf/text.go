package pdf

import (
	"fmt"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"seehuhn.de/go/geom/rect"

	"go-pdftools/internal/geometry"
	"go-pdftools/internal/redact"
)

// TextFragments extracts the positioned characters of every page and maps
// them into the render space described by metrics (one entry per page, as
// returned by PageMetrics). Gaps between words that the content stream
// leaves as positioning become space fragments, so the indexer sees them.
func TextFragments(pdfPath string, metrics []geometry.PageMetrics) ([]redact.TextFragment, error) {
	frames, err := pageFrames(pdfPath)
	if err != nil {
		return nil, err
	}
	return textFragments(pdfPath, frames, metrics)
}

// TextLines returns the text of the document as trimmed, non-empty lines in
// reading order.
func TextLines(pdfPath string) ([]string, error) {
	frames, err := pageFrames(pdfPath)
	if err != nil {
		return nil, err
	}
	metrics, err := metricsOf(frames, 1)
	if err != nil {
		return nil, err
	}
	frags, err := textFragments(pdfPath, frames, metrics)
	if err != nil {
		return nil, err
	}
	return redact.NewIndex(frags).Text(), nil
}

func textFragments(pdfPath string, frames []frame, metrics []geometry.PageMetrics) ([]redact.TextFragment, error) {
	f, r, err := lpdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open for text extraction: %w", err)
	}
	defer f.Close()

	var out []redact.TextFragment
	for i := 0; i < r.NumPage() && i < len(metrics) && i < len(frames); i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		glyphs, err := pageGlyphs(page)
		if err != nil {
			return nil, fmt.Errorf("text of page %d: %w", i+1, err)
		}
		for _, g := range glyphCells(glyphs) {
			frag, err := toRender(g, frames[i], metrics[i])
			if err != nil {
				return nil, err
			}
			frag.Page = i
			out = append(out, frag)
		}
	}
	return out, nil
}

// pageGlyphs runs the content stream interpreter, which panics on malformed
// operators.
func pageGlyphs(page lpdf.Page) (text []lpdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()
	return page.Content().Text, nil
}

// glyph is one character cell in user space: baseline origin, advance width
// and font size.
type glyph struct {
	text       string
	x, y, w, h float64
}

// glyphCells turns the interpreter's characters into cells. Fonts without a
// widths table report zero advance; the distance to the next character on
// the same baseline stands in for it.
func glyphCells(text []lpdf.Text) []glyph {
	var out []glyph
	for i, t := range text {
		size := math.Abs(t.FontSize)
		if t.S == "" || size < 1e-3 {
			continue
		}
		w := t.W
		var next *lpdf.Text
		if i+1 < len(text) && sameBaseline(t, text[i+1]) {
			next = &text[i+1]
		}
		if !(w > 0) {
			if next != nil && next.X > t.X {
				w = next.X - t.X
			} else {
				w = size / 2
			}
		}
		out = append(out, glyph{text: t.S, x: t.X, y: t.Y, w: w, h: size})

		if next == nil || strings.TrimSpace(t.S) == "" || strings.TrimSpace(next.S) == "" {
			continue
		}
		if gap := next.X - (t.X + w); gap > 0.15*size {
			out = append(out, glyph{text: " ", x: t.X + w, y: t.Y, w: gap, h: size})
		}
	}
	return out
}

func sameBaseline(a, b lpdf.Text) bool {
	return math.Abs(a.Y-b.Y) < 0.1*math.Abs(a.FontSize) && math.Abs(a.FontSize-b.FontSize) < 0.01
}

// toRender maps a cell, which spans one font size upwards from its
// baseline, through the page frame into render space.
func toRender(g glyph, f frame, m geometry.PageMetrics) (redact.TextFragment, error) {
	v := f.rectToVisible(rect.Rect{LLx: g.x, LLy: g.y, URx: g.x + g.w, URy: g.y + g.h})
	p, err := geometry.FromRenderTarget(geometry.Rect{X: v.LLx, Y: v.LLy, Width: v.Dx(), Height: v.Dy()}, m)
	if err != nil {
		return redact.TextFragment{}, err
	}
	rr, err := geometry.ToRenderSpace(p, m)
	if err != nil {
		return redact.TextFragment{}, err
	}
	return redact.TextFragment{
		Text:   g.text,
		X:      rr.X,
		Y:      rr.Y,
		Width:  rr.Width,
		Height: rr.Height,
	}, nil
}
