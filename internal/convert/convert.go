// Package convert runs the external converters: LibreOffice for office and
// HTML documents, poppler's pdftoppm for page images and previews.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/pdf"
)

// JPEGResolution is the DPI used for PDF to JPG conversion.
const JPEGResolution = 200

// OfficeExtensions lists the source formats accepted by ToPDF.
var OfficeExtensions = map[string]bool{
	".doc": true, ".docx": true, ".odt": true, ".rtf": true, ".txt": true,
	".xls": true, ".xlsx": true, ".ods": true, ".csv": true,
	".ppt": true, ".pptx": true, ".odp": true,
	".html": true, ".htm": true,
}

type Converter struct {
	SofficeBin  string
	PdftoppmBin string
	Timeout     time.Duration
	Log         logrus.FieldLogger
}

func (c *Converter) run(ctx context.Context, bin string, args ...string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if c.Log != nil {
		c.Log.WithFields(logrus.Fields{
			"cmd":      filepath.Base(bin),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("converter finished")
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out after %s", filepath.Base(bin), c.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(bin), err, msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(bin), err)
	}
	return nil
}

// ToPDF converts an office or HTML document and returns the path of the PDF
// written to outDir.
func (c *Converter) ToPDF(ctx context.Context, inPath, outDir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(inPath))
	if !OfficeExtensions[ext] {
		return "", apperr.Newf(apperr.CodeInvalidInput, "cannot convert %q files", ext)
	}
	if err := c.run(ctx, c.SofficeBin, "--headless", "--convert-to", "pdf", "--outdir", outDir, inPath); err != nil {
		return "", err
	}
	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))+".pdf")
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("converter produced no output: %w", err)
	}
	return out, nil
}

// ToJPG renders one page (0-based) of a PDF as a JPEG and returns its path.
func (c *Converter) ToJPG(ctx context.Context, pdfPath string, page int, outPrefix string) (string, error) {
	return c.renderPage(ctx, pdfPath, page, JPEGResolution, "-jpeg", outPrefix, ".jpg")
}

// RenderPreview rasterizes one page (0-based) at scale render pixels per
// point and returns the PNG path together with the page metrics of the
// preview.
func (c *Converter) RenderPreview(ctx context.Context, pdfPath string, page int, scale float64, outPrefix string) (string, geometry.PageMetrics, error) {
	metrics, err := pdf.PageMetrics(pdfPath, scale)
	if err != nil {
		return "", geometry.PageMetrics{}, err
	}
	if page < 0 || page >= len(metrics) {
		return "", geometry.PageMetrics{}, apperr.Newf(apperr.CodeOutOfRange, "page %d does not exist", page+1)
	}
	img, err := c.renderPage(ctx, pdfPath, page, 72*scale, "-png", outPrefix, ".png")
	if err != nil {
		return "", geometry.PageMetrics{}, err
	}
	return img, metrics[page], nil
}

func (c *Converter) renderPage(ctx context.Context, pdfPath string, page int, dpi float64, format, outPrefix, ext string) (string, error) {
	if page < 0 {
		return "", apperr.Newf(apperr.CodeOutOfRange, "page %d does not exist", page+1)
	}
	n := strconv.Itoa(page + 1)
	args := []string{format, "-r", strconv.FormatFloat(dpi, 'f', -1, 64), "-f", n, "-l", n, "-singlefile", pdfPath, outPrefix}
	if err := c.run(ctx, c.PdftoppmBin, args...); err != nil {
		return "", err
	}
	out := outPrefix + ext
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("converter produced no output: %w", err)
	}
	return out, nil
}
