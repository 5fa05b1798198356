package pdf

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/utils"
	"go-pdftools/internal/watermark"
)

// stamps maps 1-based page numbers to the stamps drawn on them.
type stamps map[int][]*model.Watermark

func (s stamps) apply(inPath, outPath string) error {
	if len(s) == 0 {
		return utils.CopyFile(inPath, outPath)
	}
	if err := pdfapi.AddWatermarksSliceMapFile(inPath, outPath, s, newConfig()); err != nil {
		os.Remove(outPath)
		return err
	}
	return nil
}

// textStampDesc positions cmd on a page of the given size. Stamps are placed
// by the centre of their bounding box, so the command's rotated text centre
// becomes an offset from the page centre.
func textStampDesc(cmd watermark.DrawCommand, pageWidth, pageHeight float64) string {
	c := cmd.Center()
	return fmt.Sprintf("fontname:%s, points:%d, scalefactor:1 abs, rotation:%g, opacity:%g, fillcolor:%s, position:c, offset:%.2f %.2f",
		WatermarkFont, int(math.Round(cmd.FontSize)), cmd.Rotation, cmd.Opacity, cmd.Color.Hex(),
		c.X-pageWidth/2, c.Y-pageHeight/2)
}

// ApplyWatermark lays out spec on every selected page (0-based; nil means
// all pages) and writes the result to outputPath.
func ApplyWatermark(pdfPath, outputPath string, spec watermark.Spec, pages []int) error {
	metrics, err := PageMetrics(pdfPath, 1)
	if err != nil {
		return err
	}
	pages, err = selectPages(pages, len(metrics))
	if err != nil {
		return err
	}

	s := stamps{}
	for _, p := range pages {
		m := metrics[p]
		cmds, err := watermark.Layout(spec, m.DocumentWidth, m.DocumentHeight, FontMetrics{})
		if err != nil {
			return err
		}
		for _, cmd := range cmds {
			wm, err := pdfapi.TextWatermark(cmd.Text, textStampDesc(cmd, m.DocumentWidth, m.DocumentHeight), true, false, types.POINTS)
			if err != nil {
				return fmt.Errorf("watermark page %d: %w", p+1, err)
			}
			s[p+1] = append(s[p+1], wm)
		}
	}
	if err := s.apply(pdfPath, outputPath); err != nil {
		return fmt.Errorf("failed to apply watermark: %w", err)
	}
	return nil
}

// SignPDF stamps a signature image into every placement. The image keeps its
// aspect ratio and fits the placement box, anchored at the box's lower left
// corner.
func SignPDF(pdfPath, sigImgPath string, placements []geometry.PlacementRect, outputPath string) error {
	if len(placements) == 0 {
		return apperr.New(apperr.CodeNoPlacement, "no locked placements to sign")
	}
	metrics, err := PageMetrics(pdfPath, 1)
	if err != nil {
		return err
	}
	iw, ih, err := imageSize(sigImgPath)
	if err != nil {
		return err
	}

	s := stamps{}
	for _, p := range placements {
		if p.Page < 0 || p.Page >= len(metrics) {
			return apperr.Newf(apperr.CodeOutOfRange, "page %d does not exist", p.Page+1).With("page", p.Page)
		}
		box, err := geometry.ToRenderTarget(p, metrics[p.Page])
		if err != nil {
			return err
		}
		scale := math.Min(box.Width/iw, box.Height/ih)
		if !(scale > 0) {
			return apperr.Newf(apperr.CodeInvalidInput, "empty signature box on page %d", p.Page+1)
		}
		desc := fmt.Sprintf("position:bl, offset:%.2f %.2f, scalefactor:%.4f abs, rotation:0, opacity:1", box.X, box.Y, scale)
		wm, err := pdfapi.ImageWatermark(sigImgPath, desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("failed to parse image watermark: %w", err)
		}
		s[p.Page+1] = append(s[p.Page+1], wm)
	}
	if err := s.apply(pdfPath, outputPath); err != nil {
		return fmt.Errorf("failed to apply signature: %w", err)
	}
	return nil
}

func imageSize(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, apperr.Wrap(apperr.CodeInvalidInput, "unreadable image", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, apperr.New(apperr.CodeInvalidInput, "empty image")
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// Redact covers every box (document points, bottom-left origin, keyed by
// 0-based page) with an opaque black rectangle. The text underneath stays in
// the content stream.
func Redact(pdfPath string, boxes map[int][]geometry.Rect, outputPath string) error {
	tmpDir, err := os.MkdirTemp(filepath.Dir(outputPath), "redact-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	s := stamps{}
	for page, rects := range boxes {
		for i, r := range rects {
			w, h := int(math.Ceil(r.Width)), int(math.Ceil(r.Height))
			if w < 1 || h < 1 {
				continue
			}
			img := filepath.Join(tmpDir, fmt.Sprintf("p%d-%d.png", page, i))
			if err := writeSolidPNG(img, w, h, color.Black); err != nil {
				return err
			}
			desc := fmt.Sprintf("position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:0, opacity:1", r.X, r.Y)
			wm, err := pdfapi.ImageWatermark(img, desc, true, false, types.POINTS)
			if err != nil {
				return fmt.Errorf("redaction box: %w", err)
			}
			s[page+1] = append(s[page+1], wm)
		}
	}
	if err := s.apply(pdfPath, outputPath); err != nil {
		return fmt.Errorf("failed to apply redactions: %w", err)
	}
	return nil
}

func writeSolidPNG(path string, w, h int, c color.Color) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// selectPages returns the 0-based pages to work on, all of them when pages
// is empty.
func selectPages(pages []int, count int) ([]int, error) {
	if len(pages) == 0 {
		all := make([]int, count)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	for _, p := range pages {
		if p < 0 || p >= count {
			return nil, apperr.Newf(apperr.CodeOutOfRange, "page %d does not exist", p+1).With("pages", count)
		}
	}
	return pages, nil
}
