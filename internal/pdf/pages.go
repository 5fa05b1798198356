package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/crop"
	"go-pdftools/internal/utils"
)

// Crop sets the crop box of the selected pages (0-based; nil means all) to
// the window described by spec. The window is measured on the page as
// displayed, so it follows the current crop box and rotation of each page.
// Results are in selection order and relative to the displayed page.
func Crop(pdfPath, outputPath string, spec crop.Spec, pages []int) ([]crop.Result, error) {
	frames, err := pageFrames(pdfPath)
	if err != nil {
		return nil, err
	}
	pages, err = selectPages(pages, len(frames))
	if err != nil {
		return nil, err
	}

	// Pages sharing a crop box are cropped in one pass.
	groups := make(map[string][]int)
	var order []string
	results := make([]crop.Result, 0, len(pages))
	for _, p := range pages {
		f := frames[p]
		w, h := f.size()
		res, err := crop.Compute(w, h, spec)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		src := f.rectToUser(res.Source)
		box := fmt.Sprintf("[%.2f %.2f %.2f %.2f]", src.LLx, src.LLy, src.URx, src.URy)
		if _, ok := groups[box]; !ok {
			order = append(order, box)
		}
		groups[box] = append(groups[box], p)
	}

	if err := utils.CopyFile(pdfPath, outputPath); err != nil {
		return nil, fmt.Errorf("failed to copy PDF: %w", err)
	}
	for _, b := range order {
		box, err := pdfapi.Box(b, types.POINTS)
		if err != nil {
			os.Remove(outputPath)
			return nil, fmt.Errorf("crop box: %w", err)
		}
		if err := pdfapi.CropFile(outputPath, outputPath, utils.PageSelectors(groups[b]), box, newConfig()); err != nil {
			os.Remove(outputPath)
			return nil, fmt.Errorf("failed to crop: %w", err)
		}
	}
	return results, nil
}

// Rotate turns the selected pages clockwise by a multiple of 90 degrees.
func Rotate(pdfPath, outputPath string, degrees int, pages []int) error {
	if degrees%90 != 0 {
		return apperr.Newf(apperr.CodeInvalidInput, "rotation must be a multiple of 90, got %d", degrees)
	}
	return pdfapi.RotateFile(pdfPath, outputPath, degrees, utils.PageSelectors(pages), newConfig())
}

// RemovePages deletes the selected pages. At least one page must remain.
func RemovePages(pdfPath, outputPath string, pages []int) error {
	n, err := PageCount(pdfPath)
	if err != nil {
		return err
	}
	if _, err := selectPages(pages, n); err != nil {
		return err
	}
	if len(unique(pages)) >= n {
		return apperr.New(apperr.CodeInvalidInput, "cannot remove every page")
	}
	return pdfapi.RemovePagesFile(pdfPath, outputPath, utils.PageSelectors(pages), newConfig())
}

// ExtractPages writes the selected pages, in ascending order, to a new
// document.
func ExtractPages(pdfPath, outputPath string, pages []int) error {
	sorted := unique(pages)
	sort.Ints(sorted)
	return Organize(pdfPath, outputPath, sorted)
}

// Organize writes a document whose pages are the given 0-based pages in the
// given order. Pages may repeat.
func Organize(pdfPath, outputPath string, order []int) error {
	if len(order) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "empty page order")
	}
	n, err := PageCount(pdfPath)
	if err != nil {
		return err
	}
	if _, err := selectPages(order, n); err != nil {
		return err
	}
	return pdfapi.CollectFile(pdfPath, outputPath, utils.PageSelectors(order), newConfig())
}

// Split writes every page to its own file in outDir and returns the paths in
// page order.
func Split(pdfPath, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	if err := pdfapi.SplitFile(pdfPath, outDir, 1, newConfig()); err != nil {
		return nil, fmt.Errorf("failed to split: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	n, err := PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("%s_%d.pdf", base, i))
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("split output for page %d: %w", i, err)
		}
		files = append(files, p)
	}
	return files, nil
}

// Protect encrypts the document with AES-256. The owner password defaults
// to the user password.
func Protect(pdfPath, outputPath, userPW, ownerPW string) error {
	if userPW == "" {
		return apperr.New(apperr.CodeInvalidInput, "password required")
	}
	if ownerPW == "" {
		ownerPW = userPW
	}
	conf := model.NewAESConfiguration(userPW, ownerPW, 256)
	return pdfapi.EncryptFile(pdfPath, outputPath, conf)
}

// Unlock removes the encryption from a protected document.
func Unlock(pdfPath, outputPath, password string) error {
	conf := newConfig()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := pdfapi.DecryptFile(pdfPath, outputPath, conf); err != nil {
		os.Remove(outputPath)
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return apperr.Wrap(apperr.CodeWrongPassword, "cannot unlock document", err)
		}
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return nil
}

// Compress rewrites the document without duplicate and unused objects.
func Compress(pdfPath, outputPath string) error {
	if err := pdfapi.OptimizeFile(pdfPath, outputPath, newConfig()); err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}
	return nil
}

// ImagesToPDF creates a document with one page per JPG or PNG image.
func ImagesToPDF(images []string, outputPath string) error {
	if len(images) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "no images")
	}
	imp := pdfcpu.DefaultImportConfig()
	if err := pdfapi.ImportImagesFile(images, outputPath, imp, newConfig()); err != nil {
		return fmt.Errorf("failed to import images: %w", err)
	}
	return nil
}

func unique(pages []int) []int {
	seen := make(map[int]bool, len(pages))
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
