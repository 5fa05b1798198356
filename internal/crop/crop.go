// Package crop computes the visible window of a cropped page.
package crop

import (
	"encoding/json"
	"math"
	"strings"

	"seehuhn.de/go/geom/rect"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
)

type Unit string

const (
	Percent Unit = "percent"
	Points  Unit = "points"
)

// Spec gives the amount removed from each edge of the page, in Unit.
type Spec struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Unit   Unit    `json:"unit"`
}

// Result describes the cropped page. Source is the part of the original
// page, in points with a bottom-left origin, that becomes the new page with
// its lower left corner at (0,0).
type Result struct {
	NewWidth  float64
	NewHeight float64
	Source    rect.Rect
}

// sourceRect is Source on the wire.
type sourceRect struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

type resultJSON struct {
	NewWidth  float64    `json:"newWidth"`
	NewHeight float64    `json:"newHeight"`
	Source    sourceRect `json:"sourceRect"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		NewWidth:  r.NewWidth,
		NewHeight: r.NewHeight,
		Source:    sourceRect{Left: r.Source.LLx, Bottom: r.Source.LLy, Right: r.Source.URx, Top: r.Source.URy},
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var v resultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Result{
		NewWidth:  v.NewWidth,
		NewHeight: v.NewHeight,
		Source:    rect.Rect{LLx: v.Source.Left, LLy: v.Source.Bottom, URx: v.Source.Right, URy: v.Source.Top},
	}
	return nil
}

// Compute applies spec to a page of the given size in points.
func Compute(pageWidth, pageHeight float64, spec Spec) (Result, error) {
	if !(pageWidth > 0) || !(pageHeight > 0) || math.IsInf(pageWidth, 0) || math.IsInf(pageHeight, 0) {
		return Result{}, apperr.Newf(apperr.CodeInvalidMetrics, "page size %gx%g", pageWidth, pageHeight)
	}

	edges := []float64{spec.Left, spec.Right, spec.Top, spec.Bottom}
	for _, v := range edges {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, apperr.Newf(apperr.CodeOutOfRange, "crop margin %g", v)
		}
	}

	left, right, top, bottom := spec.Left, spec.Right, spec.Top, spec.Bottom
	switch Unit(strings.ToLower(string(spec.Unit))) {
	case Percent, "":
		left = left / 100 * pageWidth
		right = right / 100 * pageWidth
		top = top / 100 * pageHeight
		bottom = bottom / 100 * pageHeight
	case Points:
	default:
		return Result{}, apperr.Newf(apperr.CodeInvalidInput, "unknown crop unit %q", spec.Unit)
	}

	res := Result{
		NewWidth:  pageWidth - left - right,
		NewHeight: pageHeight - top - bottom,
		Source: rect.Rect{
			LLx: left,
			LLy: bottom,
			URx: pageWidth - right,
			URy: pageHeight - top,
		},
	}
	if res.NewWidth <= 0 || res.NewHeight <= 0 {
		return Result{}, apperr.Newf(apperr.CodeDegenerateCrop,
			"crop leaves a %gx%g page", res.NewWidth, res.NewHeight)
	}
	return res, nil
}

// FromPlacement turns a crop window drawn on a preview into edge margins in
// percent. The window is clamped onto the page first.
func FromPlacement(p geometry.PlacementRect) Spec {
	p = p.Clamp()
	return Spec{
		Left:   math.Max(0, p.XPercent*100),
		Top:    math.Max(0, p.YPercent*100),
		Right:  math.Max(0, (1-p.XPercent-p.WidthPercent)*100),
		Bottom: math.Max(0, (1-p.YPercent-p.HeightPercent)*100),
		Unit:   Percent,
	}
}
