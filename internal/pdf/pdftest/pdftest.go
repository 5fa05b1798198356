// Package pdftest writes small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
)

// Page is one page of a generated document. Each line is drawn in 12pt
// Courier, every character 7.2pt wide, the first baseline at (X, Y) and the
// following ones 20pt lower.
type Page struct {
	Width, Height float64
	X, Y          float64
	Lines         []string
	// Extra runs are drawn after the lines, each with its own text object.
	Extra []Run
}

// Run is text drawn at an explicit baseline origin.
type Run struct {
	X, Y float64
	Text string
}

const (
	FontSize  = 12.0
	CharWidth = 7.2
	Leading   = 20.0
)

// Letter returns a 612x792 page with text starting at (72, 720).
func Letter(lines ...string) Page {
	return Page{Width: 612, Height: 792, X: 72, Y: 720, Lines: lines}
}

// Bytes renders the pages into a complete PDF file.
func Bytes(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	// Objects: 1 catalog, 2 pages, 3 font, then a page and its content
	// stream for every page.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := strings.TrimSpace(strings.Repeat("600 ", 126-32+1))
	obj(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /FirstChar 32 /LastChar 126 /Widths [%s] >>", widths))

	for i, p := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			p.Width, p.Height, 5+2*i))

		var content strings.Builder
		for j, line := range p.Lines {
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", FontSize, p.X, p.Y-float64(j)*Leading, escape(line))
		}
		for _, r := range p.Extra {
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", FontSize, r.X, r.Y, escape(r.Text))
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Write stores the document at path.
func Write(t testing.TB, path string, pages ...Page) string {
	t.Helper()
	if err := os.WriteFile(path, Bytes(pages...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
