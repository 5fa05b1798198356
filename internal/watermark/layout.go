// Package watermark lays out text watermarks on a page.
//
// Layout is pure: it turns a Spec and a page size into DrawCommands in
// document space (points, bottom-left origin). Applying them to a document
// is the job of internal/pdf.
package watermark

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"

	"go-pdftools/internal/apperr"
)

type Position string

const (
	Center           Position = "center"
	TopLeft          Position = "top-left"
	TopRight         Position = "top-right"
	BottomLeft       Position = "bottom-left"
	BottomRight      Position = "bottom-right"
	Diagonal         Position = "diagonal"
	FullPageDiagonal Position = "full-page-diagonal"
)

// ParsePosition accepts the position names used by the API. The empty string
// means Center.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return Center, nil
	case Center, TopLeft, TopRight, BottomLeft, BottomRight, Diagonal, FullPageDiagonal:
		return p, nil
	}
	return "", apperr.Newf(apperr.CodeInvalidInput, "unknown watermark position %q", s)
}

// Tiled reports whether the position repeats the mark across the page.
func (p Position) Tiled() bool {
	return p == FullPageDiagonal
}

// Rotated reports whether the position draws upper-cased text at -45°.
func (p Position) Rotated() bool {
	return p == Diagonal || p == FullPageDiagonal
}

const (
	DefaultText     = "WATERMARK"
	DefaultFontSize = 30
	DefaultOpacity  = 0.5

	marginX = 50
	marginY = 100

	diagonalAngle = -45
	tileOpacity   = 0.3
)

type Spec struct {
	Text     string   `json:"text"`
	FontSize float64  `json:"fontSize"`
	Opacity  float64  `json:"opacity"`
	Color    string   `json:"color"`
	Position Position `json:"position"`
}

// WithDefaults fills unset fields.
func (s Spec) WithDefaults() Spec {
	if s.Text == "" {
		s.Text = DefaultText
	}
	if s.FontSize == 0 {
		s.FontSize = DefaultFontSize
	}
	if s.Opacity == 0 {
		s.Opacity = DefaultOpacity
	}
	if s.Color == "" {
		s.Color = "gray"
	}
	s.Position = Position(strings.ToLower(strings.TrimSpace(string(s.Position))))
	if s.Position == "" {
		s.Position = Center
	}
	return s
}

func (s Spec) Validate() error {
	if _, err := ParsePosition(string(s.Position)); err != nil {
		return err
	}
	if !(s.FontSize > 0) {
		return apperr.Newf(apperr.CodeInvalidInput, "font size must be positive, got %g", s.FontSize)
	}
	if s.Opacity < 0 || s.Opacity > 1 || math.IsNaN(s.Opacity) {
		return apperr.Newf(apperr.CodeOutOfRange, "opacity must be within [0,1], got %g", s.Opacity)
	}
	return nil
}

// DisplayText is the text actually drawn: rotated modes upper-case it.
func (s Spec) DisplayText() string {
	if s.Position.Rotated() {
		return cases.Upper(language.Und).String(s.Text)
	}
	return s.Text
}

// DrawCommand draws Text with its baseline origin at (X, Y), rotated by
// Rotation degrees counter-clockwise about that origin.
type DrawCommand struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	FontSize float64 `json:"fontSize"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	Color    Color   `json:"color"`
}

// Matrix maps text space (origin at the start of the baseline) to page space.
func (c DrawCommand) Matrix() matrix.Matrix {
	return matrix.RotateDeg(c.Rotation).Mul(matrix.Translate(c.X, c.Y))
}

// Center is the middle of the text box in page space.
func (c DrawCommand) Center() vec.Vec2 {
	m := c.Matrix()
	x, y := c.Width/2, c.FontSize/2
	return vec.Vec2{X: m[0]*x + m[2]*y + m[4], Y: m[1]*x + m[3]*y + m[5]}
}

// FontMetrics measures rendered text.
type FontMetrics interface {
	TextWidth(text string, fontSize float64) float64
}

// Layout measures the displayed text with fm and lays it out on a page of
// the given size.
func Layout(spec Spec, pageWidth, pageHeight float64, fm FontMetrics) ([]DrawCommand, error) {
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return LayoutWithWidth(spec, pageWidth, pageHeight, fm.TextWidth(spec.DisplayText(), spec.FontSize))
}

// LayoutWithWidth lays out spec given the width of its displayed text. The
// result depends only on the arguments.
func LayoutWithWidth(spec Spec, pageWidth, pageHeight, textWidth float64) ([]DrawCommand, error) {
	spec = spec.WithDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !(pageWidth > 0) || !(pageHeight > 0) {
		return nil, apperr.Newf(apperr.CodeInvalidMetrics, "page size %gx%g", pageWidth, pageHeight)
	}
	if textWidth < 0 || math.IsNaN(textWidth) || math.IsInf(textWidth, 0) {
		return nil, apperr.Newf(apperr.CodeInvalidInput, "text width %g", textWidth)
	}

	base := DrawCommand{
		Text:     spec.DisplayText(),
		Width:    textWidth,
		FontSize: spec.FontSize,
		Opacity:  spec.Opacity,
		Color:    ParseColor(spec.Color),
	}

	switch spec.Position {
	case Diagonal:
		base.X = pageWidth/2 - textWidth/2
		base.Y = pageHeight / 2
		base.Rotation = diagonalAngle
		return []DrawCommand{base}, nil
	case FullPageDiagonal:
		return tile(base, pageWidth, pageHeight)
	}

	anchor := anchors[spec.Position]
	base.X, base.Y = anchor(pageWidth, pageHeight, textWidth)
	return []DrawCommand{base}, nil
}

var anchors = map[Position]func(w, h, tw float64) (x, y float64){
	Center:      func(w, h, tw float64) (float64, float64) { return (w - tw) / 2, h / 2 },
	TopLeft:     func(w, h, tw float64) (float64, float64) { return marginX, h - marginY },
	TopRight:    func(w, h, tw float64) (float64, float64) { return w - tw - marginX, h - marginY },
	BottomLeft:  func(w, h, tw float64) (float64, float64) { return marginX, marginY },
	BottomRight: func(w, h, tw float64) (float64, float64) { return w - tw - marginX, marginY },
}

// tile repeats the rotated mark over the page. Each row starts half a
// vertical step further left than the one above it, which staggers the
// copies along the diagonal.
func tile(base DrawCommand, pageWidth, pageHeight float64) ([]DrawCommand, error) {
	if !(base.Width > 0) {
		return nil, apperr.New(apperr.CodeInvalidInput, "tiled watermark needs a positive text width")
	}
	spacingX := 2 * base.Width
	spacingY := 1.5 * base.Width
	rows := int(math.Ceil(pageHeight/spacingY)) + 2
	cols := int(math.Ceil(pageWidth/spacingX)) + 2

	base.Rotation = diagonalAngle
	base.Opacity *= tileOpacity

	out := make([]DrawCommand, 0, rows*cols)
	for r := 0; r < rows; r++ {
		row := float64(r - 1)
		for c := 0; c < cols; c++ {
			col := float64(c - 1)
			cmd := base
			cmd.X = col*spacingX - row*spacingY/2
			cmd.Y = pageHeight - row*spacingY
			out = append(out, cmd)
		}
	}
	return out, nil
}
