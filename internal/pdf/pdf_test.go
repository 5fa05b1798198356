package pdf

import (
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	lpdf "github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"seehuhn.de/go/geom/rect"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/crop"
	"go-pdftools/internal/geometry"
	"go-pdftools/internal/pdf/pdftest"
	"go-pdftools/internal/redact"
	"go-pdftools/internal/watermark"
)

func TestMain(m *testing.M) {
	pdfapi.DisableConfigDir()
	os.Exit(m.Run())
}

func sample(t *testing.T, pages int) string {
	t.Helper()
	var ps []pdftest.Page
	for i := 0; i < pages; i++ {
		ps = append(ps, pdftest.Letter("THE QUICK BROWN FOX", "jumps over the lazy dog"))
	}
	return pdftest.Write(t, filepath.Join(t.TempDir(), "sample.pdf"), ps...)
}

func mustCount(t *testing.T, path string, want int) {
	t.Helper()
	n, err := PageCount(path)
	if err != nil {
		t.Fatalf("PageCount(%s): %v", filepath.Base(path), err)
	}
	if n != want {
		t.Errorf("%s has %d pages, want %d", filepath.Base(path), n, want)
	}
}

func TestPageMetrics(t *testing.T) {
	in := sample(t, 2)
	got, err := PageMetrics(in, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	want := []geometry.PageMetrics{
		{PageIndex: 0, RenderWidth: 918, RenderHeight: 1188, DocumentWidth: 612, DocumentHeight: 792},
		{PageIndex: 1, RenderWidth: 918, RenderHeight: 1188, DocumentWidth: 612, DocumentHeight: 792},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestMergeAndOrganize(t *testing.T) {
	dir := t.TempDir()
	a, b := sample(t, 2), sample(t, 1)
	merged := filepath.Join(dir, "merged.pdf")
	if err := MergePDFs([]string{a, b}, merged); err != nil {
		t.Fatal(err)
	}
	mustCount(t, merged, 3)

	organized := filepath.Join(dir, "organized.pdf")
	if err := Organize(merged, organized, []int{2, 0, 2}); err != nil {
		t.Fatal(err)
	}
	mustCount(t, organized, 3)

	extracted := filepath.Join(dir, "extracted.pdf")
	if err := ExtractPages(merged, extracted, []int{2, 0, 2}); err != nil {
		t.Fatal(err)
	}
	mustCount(t, extracted, 2)

	removed := filepath.Join(dir, "removed.pdf")
	if err := RemovePages(merged, removed, []int{1}); err != nil {
		t.Fatal(err)
	}
	mustCount(t, removed, 2)

	if err := RemovePages(merged, removed, []int{0, 1, 2}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("removing every page: err = %v", err)
	}
	if err := Organize(merged, organized, []int{5}); !errors.Is(err, apperr.ErrOutOfRange) {
		t.Errorf("organize past end: err = %v", err)
	}
}

func TestSplit(t *testing.T) {
	in := sample(t, 3)
	files, err := Split(in, filepath.Join(t.TempDir(), "parts"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files", len(files))
	}
	for _, f := range files {
		mustCount(t, f, 1)
	}
}

func TestRotateAndCompress(t *testing.T) {
	dir := t.TempDir()
	in := sample(t, 2)
	rotated := filepath.Join(dir, "rotated.pdf")
	if err := Rotate(in, rotated, 90, []int{1}); err != nil {
		t.Fatal(err)
	}
	mustCount(t, rotated, 2)
	if err := Rotate(in, rotated, 45, nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("45 degrees: err = %v", err)
	}

	compressed := filepath.Join(dir, "compressed.pdf")
	if err := Compress(in, compressed); err != nil {
		t.Fatal(err)
	}
	mustCount(t, compressed, 2)
}

func TestProtectUnlock(t *testing.T) {
	dir := t.TempDir()
	in := sample(t, 1)
	locked := filepath.Join(dir, "locked.pdf")
	if err := Protect(in, locked, "secret", ""); err != nil {
		t.Fatal(err)
	}

	unlocked := filepath.Join(dir, "unlocked.pdf")
	if err := Unlock(locked, unlocked, "guess"); !errors.Is(err, apperr.ErrWrongPassword) {
		t.Fatalf("wrong password: err = %v", err)
	}
	if err := Unlock(locked, unlocked, "secret"); err != nil {
		t.Fatal(err)
	}
	mustCount(t, unlocked, 1)

	if err := Protect(in, locked, "", ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty password: err = %v", err)
	}
}

func TestApplyWatermark(t *testing.T) {
	in := sample(t, 2)
	out := filepath.Join(t.TempDir(), "wm.pdf")
	spec := watermark.Spec{Text: "Draft", Position: watermark.FullPageDiagonal}
	if err := ApplyWatermark(in, out, spec, []int{0}); err != nil {
		t.Fatal(err)
	}
	mustCount(t, out, 2)

	if err := ApplyWatermark(in, out, watermark.Spec{Opacity: 2}, nil); !errors.Is(err, apperr.ErrOutOfRange) {
		t.Errorf("opacity 2: err = %v", err)
	}
	if err := ApplyWatermark(in, out, spec, []int{7}); !errors.Is(err, apperr.ErrOutOfRange) {
		t.Errorf("missing page: err = %v", err)
	}
}

func TestFontMetrics(t *testing.T) {
	fm := FontMetrics{}
	w := fm.TextWidth("WATERMARK", 30)
	if !(w > 0) {
		t.Fatalf("width = %v", w)
	}
	if w2 := fm.TextWidth("WATERMARK", 60); math.Abs(w2-2*w) > 0.5 {
		t.Errorf("width does not scale with size: %v vs %v", w, w2)
	}
	if fm.TextWidth("I", 30) >= fm.TextWidth("W", 30) {
		t.Error("proportional font measured as monospace")
	}
}

func TestSignPDF(t *testing.T) {
	dir := t.TempDir()
	in := sample(t, 3)
	sig := filepath.Join(dir, "sig.png")
	if err := writeSolidPNG(sig, 200, 80, color.RGBA{0, 0, 128, 255}); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "signed.pdf")
	placements := []geometry.PlacementRect{
		{Page: 0, XPercent: 0.6, YPercent: 0.8, WidthPercent: 0.3, HeightPercent: 0.1},
		{Page: 2, XPercent: 0.1, YPercent: 0.1, WidthPercent: 0.2, HeightPercent: 0.05},
	}
	if err := SignPDF(in, sig, placements, out); err != nil {
		t.Fatal(err)
	}
	mustCount(t, out, 3)

	if err := SignPDF(in, sig, nil, out); !errors.Is(err, apperr.ErrNoPlacement) {
		t.Errorf("no placements: err = %v", err)
	}
	bad := []geometry.PlacementRect{{Page: 9, WidthPercent: 0.1, HeightPercent: 0.1}}
	if err := SignPDF(in, sig, bad, out); !errors.Is(err, apperr.ErrOutOfRange) {
		t.Errorf("missing page: err = %v", err)
	}
}

func TestSearchAndRedact(t *testing.T) {
	in := sample(t, 1)
	metrics, err := PageMetrics(in, 2)
	if err != nil {
		t.Fatal(err)
	}
	frags, err := TextFragments(in, metrics)
	if err != nil {
		t.Fatal(err)
	}
	matches := redact.Search(frags, "quick")
	if len(matches) != 1 {
		t.Fatalf("matches = %+v", matches)
	}
	// "QUICK" starts at the fifth character of a line drawn at (72, 720)
	// in 12pt Courier; the preview is rendered at scale 2.
	m := matches[0]
	wantX := (72 + 4*pdftest.CharWidth) * 2
	wantY := (792 - 720 - pdftest.FontSize) * 2
	if math.Abs(m.X-wantX) > 1 || math.Abs(m.Y-wantY) > 1 || math.Abs(m.Width-5*pdftest.CharWidth*2) > 1 {
		t.Errorf("match = %+v, want x=%v y=%v", m, wantX, wantY)
	}
	if got := redact.Search(frags, "lazy dog"); len(got) != 1 {
		t.Errorf("second line matches = %+v", got)
	}

	boxes, err := redact.ToDocument(matches, metrics)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "redacted.pdf")
	if err := Redact(in, boxes, out); err != nil {
		t.Fatal(err)
	}
	mustCount(t, out, 1)
}

func TestTextLines(t *testing.T) {
	in := sample(t, 1)
	lines, err := TextLines(in)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"THE QUICK BROWN FOX", "jumps over the lazy dog"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCrop(t *testing.T) {
	in := sample(t, 2)
	out := filepath.Join(t.TempDir(), "cropped.pdf")
	res, err := Crop(in, out, crop.Spec{Left: 10, Right: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || math.Abs(res[0].NewWidth-489.6) > 1e-9 || res[0].NewHeight != 792 {
		t.Errorf("results = %+v", res)
	}
	mustCount(t, out, 2)

	if _, err := Crop(in, out, crop.Spec{Top: 60, Bottom: 40}, nil); !errors.Is(err, apperr.ErrDegenerateCrop) {
		t.Errorf("degenerate crop: err = %v", err)
	}
}

func TestFrameMapping(t *testing.T) {
	box := rect.Rect{LLx: 10, LLy: 20, URx: 110, URy: 220} // 100 wide, 200 high
	tests := []struct {
		rot          int
		w, h         float64
		ulX, ulY     float64 // where the user space upper left corner is shown
		visX, visY   float64
		userX, userY float64
	}{
		{rot: 0, w: 100, h: 200, ulX: 0, ulY: 200},
		{rot: 90, w: 200, h: 100, ulX: 200, ulY: 100},
		{rot: 180, w: 100, h: 200, ulX: 100, ulY: 0},
		{rot: 270, w: 200, h: 100, ulX: 0, ulY: 0},
	}
	for _, tt := range tests {
		f := frame{box: box, rot: tt.rot}
		if w, h := f.size(); w != tt.w || h != tt.h {
			t.Errorf("rot %d: size = %vx%v", tt.rot, w, h)
		}
		if x, y := f.toVisible(10, 220); math.Abs(x-tt.ulX) > 1e-9 || math.Abs(y-tt.ulY) > 1e-9 {
			t.Errorf("rot %d: upper left shown at (%v, %v), want (%v, %v)", tt.rot, x, y, tt.ulX, tt.ulY)
		}
		for _, pt := range [][2]float64{{10, 20}, {35, 180}, {110, 220}} {
			a, b := f.toVisible(pt[0], pt[1])
			x, y := f.toUser(a, b)
			if math.Abs(x-pt[0]) > 1e-9 || math.Abs(y-pt[1]) > 1e-9 {
				t.Errorf("rot %d: %v -> (%v, %v) -> (%v, %v)", tt.rot, pt, a, b, x, y)
			}
		}
	}
}

func TestCropThenMeasure(t *testing.T) {
	dir := t.TempDir()
	in := sample(t, 1)
	quarter := filepath.Join(dir, "quarter.pdf")
	if _, err := Crop(in, quarter, crop.Spec{Left: 25, Right: 25, Top: 25, Bottom: 25}, nil); err != nil {
		t.Fatal(err)
	}
	got, err := PageMetrics(quarter, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got[0].DocumentWidth-306) > 0.01 || math.Abs(got[0].DocumentHeight-396) > 0.01 {
		t.Errorf("metrics after crop = %+v, want 306x396", got[0])
	}

	// Cropping again is relative to what is visible now.
	eighth := filepath.Join(dir, "eighth.pdf")
	res, err := Crop(quarter, eighth, crop.Spec{Left: 50}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res[0].NewWidth-153) > 0.01 {
		t.Errorf("second crop = %+v", res[0])
	}
	frames, err := pageFrames(eighth)
	if err != nil {
		t.Fatal(err)
	}
	want := rect.Rect{LLx: 306, LLy: 198, URx: 459, URy: 594}
	if diff := cmp.Diff(want, frames[0].box, cmpopts.EquateApprox(0, 0.01)); diff != "" {
		t.Errorf("crop box (-want +got):\n%s", diff)
	}
}

func TestRotateThenCrop(t *testing.T) {
	dir := t.TempDir()
	in := sample(t, 1)
	rotated := filepath.Join(dir, "rotated.pdf")
	if err := Rotate(in, rotated, 90, nil); err != nil {
		t.Fatal(err)
	}
	m, err := PageMetrics(rotated, 1)
	if err != nil {
		t.Fatal(err)
	}
	if m[0].DocumentWidth != 792 || m[0].DocumentHeight != 612 {
		t.Fatalf("rotated metrics = %+v", m[0])
	}

	out := filepath.Join(dir, "cropped.pdf")
	res, err := Crop(rotated, out, crop.Spec{Left: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res[0].NewWidth-712.8) > 0.01 || res[0].NewHeight != 612 {
		t.Errorf("result = %+v", res[0])
	}
	// The displayed left edge is the bottom edge of the unrotated page.
	frames, err := pageFrames(out)
	if err != nil {
		t.Fatal(err)
	}
	want := rect.Rect{LLx: 0, LLy: 79.2, URx: 612, URy: 792}
	if diff := cmp.Diff(want, frames[0].box, cmpopts.EquateApprox(0, 0.01)); diff != "" {
		t.Errorf("crop box (-want +got):\n%s", diff)
	}
	m, err = PageMetrics(out, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m[0].DocumentWidth-712.8) > 0.01 || m[0].DocumentHeight != 612 {
		t.Errorf("metrics after crop = %+v", m[0])
	}
}

func TestSearchOnCroppedPage(t *testing.T) {
	in := sample(t, 1)
	out := filepath.Join(t.TempDir(), "cropped.pdf")
	// Keep the top half without the left 10%: the crop box starts at
	// (61.2, 396).
	if _, err := Crop(in, out, crop.Spec{Left: 10, Bottom: 50}, nil); err != nil {
		t.Fatal(err)
	}
	metrics, err := PageMetrics(out, 1)
	if err != nil {
		t.Fatal(err)
	}
	frags, err := TextFragments(out, metrics)
	if err != nil {
		t.Fatal(err)
	}
	matches := redact.Search(frags, "quick")
	if len(matches) != 1 {
		t.Fatalf("matches = %+v", matches)
	}
	m := matches[0]
	wantX := 72 + 4*pdftest.CharWidth - 61.2
	wantY := 792 - 720 - pdftest.FontSize
	if math.Abs(m.X-wantX) > 0.1 || math.Abs(m.Y-wantY) > 0.1 {
		t.Errorf("match = %+v, want x=%v y=%v", m, wantX, wantY)
	}
}

func TestTextLinesKeepWordGaps(t *testing.T) {
	// Words placed with separate text operators and no space characters.
	page := pdftest.Letter("Total")
	page.Extra = []pdftest.Run{{X: 72 + 8*pdftest.CharWidth, Y: 720, Text: "12"}}
	in := pdftest.Write(t, filepath.Join(t.TempDir(), "gaps.pdf"), page)
	lines, err := TextLines(in)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Total 12"}, lines); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestImagesToPDF(t *testing.T) {
	dir := t.TempDir()
	var imgs []string
	for i, c := range []color.Color{color.White, color.Black} {
		p := filepath.Join(dir, "scan"+string(rune('a'+i))+".png")
		if err := writeSolidPNG(p, 60, 80, c); err != nil {
			t.Fatal(err)
		}
		imgs = append(imgs, p)
	}
	out := filepath.Join(dir, "scans.pdf")
	if err := ImagesToPDF(imgs, out); err != nil {
		t.Fatal(err)
	}
	mustCount(t, out, 2)
	if err := ImagesToPDF(nil, out); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("no images: err = %v", err)
	}
}

func infoField(t *testing.T, path, key string) string {
	t.Helper()
	f, r, err := lpdf.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	return r.Trailer().Key("Info").Key(key).Text()
}

func TestEdit(t *testing.T) {
	in := sample(t, 2)
	out := filepath.Join(t.TempDir(), "edited.pdf")
	meta := Metadata{Title: "Quarterly Report", Author: "Finance", Keywords: "  "}
	note := &TextNote{Text: "APPROVED", X: 100, Y: 100}
	if err := Edit(in, out, meta, note, []int{1}); err != nil {
		t.Fatal(err)
	}
	if n, err := PageCount(out); err != nil || n != 2 {
		t.Fatalf("pages = %d, %v", n, err)
	}
	if got := infoField(t, out, "Title"); got != "Quarterly Report" {
		t.Errorf("Title = %q", got)
	}
	if got := infoField(t, out, "Author"); got != "Finance" {
		t.Errorf("Author = %q", got)
	}
	if got := infoField(t, out, "Keywords"); got != "" {
		t.Errorf("blank Keywords written as %q", got)
	}
}

func TestEditMetadataOnly(t *testing.T) {
	in := sample(t, 1)
	out := filepath.Join(t.TempDir(), "meta.pdf")
	if err := Edit(in, out, Metadata{Subject: "Minutes"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if got := infoField(t, out, "Subject"); got != "Minutes" {
		t.Errorf("Subject = %q", got)
	}
}

func TestEditRejects(t *testing.T) {
	in := sample(t, 1)
	out := filepath.Join(t.TempDir(), "out.pdf")
	tests := []struct {
		name string
		note *TextNote
		want error
	}{
		{"nothing", nil, apperr.ErrInvalidInput},
		{"empty text", &TextNote{X: 10, Y: 10}, apperr.ErrInvalidInput},
		{"off page", &TextNote{Text: "x", X: 700, Y: 10}, apperr.ErrOutOfRange},
		{"negative", &TextNote{Text: "x", X: 10, Y: -1}, apperr.ErrOutOfRange},
		{"font size", &TextNote{Text: "x", X: 10, Y: 10, FontSize: -3}, apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Edit(in, out, Metadata{}, tt.note, nil); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
