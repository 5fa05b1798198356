package redact

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go-pdftools/internal/apperr"
	"go-pdftools/internal/geometry"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// splitLine cuts text at the given rune offsets into fragments of a single
// line, 10 units per character, starting at x=0.
func splitLine(page int, y float64, text string, cuts ...int) []TextFragment {
	runes := []rune(text)
	bounds := append(append([]int{0}, cuts...), len(runes))
	var out []TextFragment
	for i := 0; i+1 < len(bounds); i++ {
		a, b := bounds[i], bounds[i+1]
		out = append(out, TextFragment{
			Page:   page,
			Text:   string(runes[a:b]),
			X:      float64(a) * 10,
			Y:      y,
			Width:  float64(b-a) * 10,
			Height: 12,
		})
	}
	return out
}

func TestSearchIndependentOfFragmentation(t *testing.T) {
	const text = "THE QUICK BROWN FOX"
	want := []MatchRect{{Page: 0, X: 40, Y: 100, Width: 50, Height: 12}}

	splits := [][]int{
		nil,
		{4, 10, 16},
		{3, 4, 9, 10, 15, 16},
		{6},
		{2, 5, 7, 13},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18},
	}
	for _, cuts := range splits {
		frags := splitLine(0, 100, text, cuts...)
		// Extraction order is not guaranteed to be left to right.
		for i, j := 0, len(frags)-1; i < j; i, j = i+1, j-1 {
			frags[i], frags[j] = frags[j], frags[i]
		}
		got := Search(frags, "QUICK")
		if diff := cmp.Diff(want, got, approx); diff != "" {
			t.Errorf("cuts %v (-want +got):\n%s", cuts, diff)
		}
	}
}

func TestSearchCaseInsensitiveAndRepeated(t *testing.T) {
	frags := splitLine(1, 50, "Fox fox FOX", 4)
	got := Search(frags, "fOx")
	want := []MatchRect{
		{Page: 1, X: 0, Y: 50, Width: 30, Height: 12},
		{Page: 1, X: 40, Y: 50, Width: 30, Height: 12},
		{Page: 1, X: 80, Y: 50, Width: 30, Height: 12},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSearchResumesAfterMatchStart(t *testing.T) {
	got := Search(splitLine(0, 0, "aaaa"), "aa")
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3: %+v", len(got), got)
	}
	for i, m := range got {
		if m.X != float64(i)*10 {
			t.Errorf("match %d at x=%v", i, m.X)
		}
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	if got := Search(splitLine(0, 0, "anything"), ""); len(got) != 0 {
		t.Errorf("empty query returned %+v", got)
	}
	if got := Search(nil, "x"); len(got) != 0 {
		t.Errorf("no fragments returned %+v", got)
	}
}

func TestSearchDoesNotCrossLines(t *testing.T) {
	frags := append(splitLine(0, 100, "SECRET PLA"), splitLine(0, 130, "NS AHEAD")...)
	if got := Search(frags, "plans"); len(got) != 0 {
		t.Errorf("match across line break: %+v", got)
	}
	if got := Search(frags, "ahead"); len(got) != 1 {
		t.Errorf("second line: %+v", got)
	}
}

func TestSearchKeepsPagesApart(t *testing.T) {
	frags := append(splitLine(0, 100, "HELLO "), splitLine(1, 100, "WORLD")...)
	if got := Search(frags, "hello world"); len(got) != 0 {
		t.Errorf("match across pages: %+v", got)
	}
	got := Search(frags, "world")
	if len(got) != 1 || got[0].Page != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestLineGroupingTolerance(t *testing.T) {
	frags := []TextFragment{
		{Page: 0, Text: "ABC", X: 0, Y: 100, Width: 30, Height: 12},
		// Baseline jitter within the height joins the line.
		{Page: 0, Text: "DEF", X: 30, Y: 105, Width: 30, Height: 12},
		// A full line below does not.
		{Page: 0, Text: "GHI", X: 0, Y: 112, Width: 30, Height: 12},
	}
	idx := NewIndex(frags)
	if diff := cmp.Diff([]string{"abcdef", "ghi"}, idx.Lines()); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
	got := idx.Search("cde")
	want := []MatchRect{{Page: 0, X: 20, Y: 100, Width: 30, Height: 12}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestTextReadingOrder(t *testing.T) {
	var frags []TextFragment
	// Extracted bottom line first, second page before the first.
	frags = append(frags, splitLine(1, 40, "Page Two", 4)...)
	frags = append(frags, splitLine(0, 70, "  Total 12 ", 3, 8)...)
	frags = append(frags, splitLine(0, 40, "Invoice 1", 2)...)
	frags = append(frags, splitLine(0, 100, "   ")...)
	want := []string{"Invoice 1", "Total 12", "Page Two"}
	if diff := cmp.Diff(want, NewIndex(frags).Text()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestUniformCharWidthWithMultibyteText(t *testing.T) {
	frags := []TextFragment{{Page: 0, Text: "Grüße Welt", X: 0, Y: 0, Width: 100, Height: 10}}
	got := Search(frags, "GRÜSSE")
	if len(got) != 0 {
		t.Errorf("expansion changed rune count: %+v", got)
	}
	got = Search(frags, "ÜSSE")
	if len(got) != 0 {
		t.Errorf("unexpected match %+v", got)
	}
	got = Search(frags, "üße")
	want := []MatchRect{{Page: 0, X: 20, Y: 0, Width: 30, Height: 10}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestResize(t *testing.T) {
	box := MatchRect{Page: 0, X: 100, Y: 100, Width: 50, Height: 20}
	tests := []struct {
		handle string
		dx, dy float64
		want   MatchRect
	}{
		{"right", 10, 99, MatchRect{X: 100, Y: 100, Width: 60, Height: 20}},
		{"top-left", 5, 5, MatchRect{X: 105, Y: 105, Width: 45, Height: 15}},
		{"bottom", 0, -30, MatchRect{X: 100, Y: 100, Width: 50, Height: MinBoxSize}},
		{"left", 45, 0, MatchRect{X: 140, Y: 100, Width: MinBoxSize, Height: 20}},
		{"top", 0, 30, MatchRect{X: 100, Y: 110, Width: 50, Height: MinBoxSize}},
		{"top-left", -5, -5, MatchRect{X: 95, Y: 95, Width: 55, Height: 25}},
	}
	for _, tt := range tests {
		got := box.Resize(ParseEdges(tt.handle), tt.dx, tt.dy)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.handle, diff)
		}
		// The edges that were not dragged stay where they were.
		if edges := ParseEdges(tt.handle); edges&EdgeLeft != 0 && got.X+got.Width != box.X+box.Width {
			t.Errorf("%s moved the right edge to %v", tt.handle, got.X+got.Width)
		}
		if edges := ParseEdges(tt.handle); edges&EdgeTop != 0 && got.Y+got.Height != box.Y+box.Height {
			t.Errorf("%s moved the bottom edge to %v", tt.handle, got.Y+got.Height)
		}
	}
	if got := box.Move(-5, 7); got.X != 95 || got.Y != 107 || got.Width != 50 {
		t.Errorf("Move = %+v", got)
	}
}

func TestToDocument(t *testing.T) {
	m, err := geometry.NewPageMetrics(0, 600, 800, 2)
	if err != nil {
		t.Fatal(err)
	}
	boxes := []MatchRect{{Page: 0, X: 200, Y: 0, Width: 100, Height: 40}}
	got, err := ToDocument(boxes, []geometry.PageMetrics{m})
	if err != nil {
		t.Fatal(err)
	}
	want := map[int][]geometry.Rect{0: {{X: 100, Y: 780, Width: 50, Height: 20}}}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	_, err = ToDocument([]MatchRect{{Page: 5}}, []geometry.PageMetrics{m})
	if !errors.Is(err, apperr.ErrInvalidMetrics) {
		t.Errorf("missing page metrics err = %v", err)
	}
}
