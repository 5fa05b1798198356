// Package pdf applies placements and page operations to PDF files.
//
// Functions:
//   - MergePDFs / RemoveBookmarks: combine uploads into one document.
//     Inputs: PDF file paths, output file path.
//     Output: error if the operation fails.
//   - PageMetrics: page sizes in points, as geometry.PageMetrics at a
//     preview scale.
//   - ApplyWatermark, SignPDF, Redact, Crop: turn draw commands and
//     document space rectangles computed elsewhere into page content.
//   - Rotate, RemovePages, ExtractPages, Organize, Split, Protect, Unlock,
//     Compress, ImagesToPDF: page level tools.
//   - TextFragments, TextLines: positioned and plain text for search and
//     compare.
//
// The package never computes positions itself; callers pass coordinates
// produced by internal/geometry, internal/watermark and internal/crop.
package pdf

import (
	"fmt"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func newConfig() *model.Configuration {
	return model.NewDefaultConfiguration()
}

func MergePDFs(files []string, outputPath string) error {
	if len(files) == 0 {
		return fmt.Errorf("merge: no input files")
	}
	return pdfapi.MergeCreateFile(files, outputPath, false, newConfig())
}

func RemoveBookmarks(pdfPath string) error {
	return pdfapi.RemoveBookmarksFile(pdfPath, pdfPath, newConfig())
}

// PageCount returns the number of pages in the document.
func PageCount(pdfPath string) (int, error) {
	n, err := pdfapi.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}
