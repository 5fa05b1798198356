// Package utils provides helpers for file naming, IDs and page selections.
//
// Functions:
//   - SanitizeFilename: Returns a safe filename for storage.
//     Input: string (filename)
//     Output: string (sanitized filename)
//   - GenerateUUID: Returns a new UUID string.
//     Output: string (UUID)
//   - ParsePages: Parses a 1-based page selection such as "1,3,5-7".
//     Input: string (selection), int (page count, 0 if unknown)
//     Output: []int (0-based page indices, in order, without duplicates)
//   - ParseOrder: Like ParsePages but keeps repeated pages.
//   - PageSelectors: Formats 0-based indices as 1-based selectors.
//   - CopyFile: Copies a file, e.g. to give an output its own name.
//
// Used throughout the backend for safe file handling and unique IDs.
package utils

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"go-pdftools/internal/apperr"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeFilename(name string) string {
	base := filepath.Base(name)
	safe := unsafeChars.ReplaceAllString(base, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

// CopyFile copies src to dst, replacing dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func GenerateUUID() string {
	return uuid.New().String()
}

// ParsePages reads a comma separated list of page numbers and ranges. Pages
// are 1-based in the input and 0-based in the result. When pageCount is
// positive every page must exist; an open range such as "3-" runs to the
// last page.
func ParsePages(sel string, pageCount int) ([]int, error) {
	return parsePages(sel, pageCount, true)
}

// ParseOrder is ParsePages for a page order: repeated pages are kept.
func ParseOrder(sel string, pageCount int) ([]int, error) {
	return parsePages(sel, pageCount, false)
}

func parsePages(sel string, pageCount int, dedupe bool) ([]int, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "empty page selection")
	}
	var out []int
	seen := make(map[int]bool)
	add := func(p int) error {
		if p < 1 || (pageCount > 0 && p > pageCount) {
			return apperr.Newf(apperr.CodeOutOfRange, "page %d does not exist", p).With("pages", pageCount)
		}
		if !dedupe || !seen[p] {
			seen[p] = true
			out = append(out, p-1)
		}
		return nil
	}

	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		first, err := pageNumber(from)
		if err != nil {
			return nil, err
		}
		if !isRange {
			if err := add(first); err != nil {
				return nil, err
			}
			continue
		}
		last := pageCount
		if strings.TrimSpace(to) != "" {
			if last, err = pageNumber(to); err != nil {
				return nil, err
			}
		} else if pageCount <= 0 {
			return nil, apperr.Newf(apperr.CodeInvalidInput, "open range %q needs a page count", part)
		}
		if last < first {
			return nil, apperr.Newf(apperr.CodeInvalidInput, "descending range %q", part)
		}
		for p := first; p <= last; p++ {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "empty page selection")
	}
	return out, nil
}

func pageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperr.Wrap(apperr.CodeInvalidInput, "invalid page number "+strconv.Quote(s), err)
	}
	return n, nil
}

// PageSelectors turns 0-based page indices into the 1-based selectors used
// by the document tools.
func PageSelectors(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p + 1)
	}
	return out
}
