package pdf

import (
	"fmt"
	"math"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"seehuhn.de/go/geom/rect"

	"go-pdftools/internal/geometry"
)

// frame is the visible part of a page: its crop box in user space and the
// clockwise rotation it is displayed with. Previews, metrics and stamps all
// work in the visible frame (points, origin at the lower left corner of what
// the viewer shows).
type frame struct {
	box rect.Rect
	rot int // 0, 90, 180 or 270
}

// size returns the width and height of the page as displayed.
func (f frame) size() (float64, float64) {
	w, h := f.box.Dx(), f.box.Dy()
	if f.rot == 90 || f.rot == 270 {
		return h, w
	}
	return w, h
}

// toVisible maps a point in user space into the visible frame.
func (f frame) toVisible(x, y float64) (float64, float64) {
	u, v := x-f.box.LLx, y-f.box.LLy
	w, h := f.box.Dx(), f.box.Dy()
	switch f.rot {
	case 90:
		return v, w - u
	case 180:
		return w - u, h - v
	case 270:
		return h - v, u
	}
	return u, v
}

// toUser maps a point of the visible frame back into user space.
func (f frame) toUser(a, b float64) (float64, float64) {
	w, h := f.box.Dx(), f.box.Dy()
	var u, v float64
	switch f.rot {
	case 90:
		u, v = w-b, a
	case 180:
		u, v = w-a, h-b
	case 270:
		u, v = b, h-a
	default:
		u, v = a, b
	}
	return u + f.box.LLx, v + f.box.LLy
}

// rectToUser maps a visible rectangle into user space.
func (f frame) rectToUser(r rect.Rect) rect.Rect {
	x0, y0 := f.toUser(r.LLx, r.LLy)
	x1, y1 := f.toUser(r.URx, r.URy)
	return rect.Rect{
		LLx: math.Min(x0, x1), LLy: math.Min(y0, y1),
		URx: math.Max(x0, x1), URy: math.Max(y0, y1),
	}
}

// rectToVisible maps a user space rectangle into the visible frame.
func (f frame) rectToVisible(r rect.Rect) rect.Rect {
	x0, y0 := f.toVisible(r.LLx, r.LLy)
	x1, y1 := f.toVisible(r.URx, r.URy)
	return rect.Rect{
		LLx: math.Min(x0, x1), LLy: math.Min(y0, y1),
		URx: math.Max(x0, x1), URy: math.Max(y0, y1),
	}
}

// pageFrames reads the crop box and rotation of every page.
func pageFrames(pdfPath string) ([]frame, error) {
	ctx, err := pdfapi.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("read page boundaries: %w", err)
	}
	pbs, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, fmt.Errorf("page boundaries: %w", err)
	}
	frames := make([]frame, len(pbs))
	for i, pb := range pbs {
		cb := pb.CropBox()
		if cb != nil && (cb.Width() <= 0 || cb.Height() <= 0) {
			cb = pb.MediaBox()
		}
		if cb == nil {
			return nil, fmt.Errorf("page %d has no media box", i+1)
		}
		frames[i] = frame{
			box: rect.Rect{LLx: cb.LL.X, LLy: cb.LL.Y, URx: cb.UR.X, URy: cb.UR.Y},
			rot: ((pb.Rot % 360) + 360) % 360,
		}
	}
	return frames, nil
}

// PageMetrics reads the visible size of every page (its crop box, turned by
// the page rotation) and pairs it with the size of a preview rendered at
// scale.
func PageMetrics(pdfPath string, scale float64) ([]geometry.PageMetrics, error) {
	frames, err := pageFrames(pdfPath)
	if err != nil {
		return nil, err
	}
	return metricsOf(frames, scale)
}

func metricsOf(frames []frame, scale float64) ([]geometry.PageMetrics, error) {
	out := make([]geometry.PageMetrics, len(frames))
	for i, f := range frames {
		w, h := f.size()
		m, err := geometry.NewPageMetrics(i, w, h, scale)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// WatermarkFont is the font watermark text is measured and drawn with.
const WatermarkFont = "Helvetica-Bold"

// FontMetrics measures text in one of the standard PDF fonts.
type FontMetrics struct {
	FontName string
}

func (f FontMetrics) TextWidth(text string, fontSize float64) float64 {
	name := f.FontName
	if name == "" {
		name = WatermarkFont
	}
	return font.TextWidth(text, name, int(math.Round(fontSize)))
}
