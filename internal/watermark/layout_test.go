package watermark

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go-pdftools/internal/apperr"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

// fixedWidth measures every character as half the font size.
type fixedWidth struct{}

func (fixedWidth) TextWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize / 2
}

func TestFullPageDiagonalTileCount(t *testing.T) {
	spec := Spec{Text: "draft", FontSize: 20, Opacity: 0.5, Position: FullPageDiagonal}
	cmds, err := LayoutWithWidth(spec, 600, 800, 100)
	if err != nil {
		t.Fatal(err)
	}
	// rows = ceil(800/150)+2 = 8, cols = ceil(600/200)+2 = 5
	if len(cmds) != 40 {
		t.Fatalf("got %d commands, want 40", len(cmds))
	}
	for i, c := range cmds {
		if math.Abs(c.Opacity-0.15) > 1e-12 {
			t.Errorf("cmd %d opacity = %v, want 0.15", i, c.Opacity)
		}
		if c.Rotation != -45 {
			t.Errorf("cmd %d rotation = %v", i, c.Rotation)
		}
		if c.Text != "DRAFT" {
			t.Errorf("cmd %d text = %q", i, c.Text)
		}
	}

	// First row is row -1, first column is column -1.
	first := cmds[0]
	if diff := cmp.Diff(DrawCommand{
		Text: "DRAFT", X: -200 + 75, Y: 800 + 150, Width: 100, FontSize: 20,
		Rotation: -45, Opacity: 0.15, Color: Gray,
	}, first, approx); diff != "" {
		t.Errorf("first tile (-want +got):\n%s", diff)
	}
	// Second row (row 0) starts at column -1 without stagger.
	if got := cmds[5]; got.X != -200 || got.Y != 800 {
		t.Errorf("row 0 first tile at (%v, %v)", got.X, got.Y)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	spec := Spec{Text: "Confidential", FontSize: 36, Opacity: 0.4, Color: "red", Position: FullPageDiagonal}
	a, err := Layout(spec, 612, 792, fixedWidth{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Layout(spec, 612, 792, fixedWidth{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("layout not deterministic:\n%s", diff)
	}
}

func TestFixedPositions(t *testing.T) {
	const w, h, tw = 600.0, 800.0, 120.0
	tests := []struct {
		pos  Position
		x, y float64
	}{
		{Center, (w - tw) / 2, h / 2},
		{TopLeft, 50, h - 100},
		{TopRight, w - tw - 50, h - 100},
		{BottomLeft, 50, 100},
		{BottomRight, w - tw - 50, 100},
	}
	for _, tt := range tests {
		t.Run(string(tt.pos), func(t *testing.T) {
			cmds, err := LayoutWithWidth(Spec{Text: "Copy", FontSize: 30, Opacity: 0.5, Position: tt.pos}, w, h, tw)
			if err != nil {
				t.Fatal(err)
			}
			want := []DrawCommand{{Text: "Copy", X: tt.x, Y: tt.y, Width: tw, FontSize: 30, Opacity: 0.5, Color: Gray}}
			if diff := cmp.Diff(want, cmds, approx); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiagonal(t *testing.T) {
	cmds, err := Layout(Spec{Text: "straße", Color: "blue", Position: "Diagonal"}, 600, 800, fixedWidth{})
	if err != nil {
		t.Fatal(err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands", len(cmds))
	}
	c := cmds[0]
	if c.Text != "STRASSE" {
		t.Errorf("text = %q", c.Text)
	}
	// Defaults: font size 30, opacity 0.5. Width of "STRASSE" = 7*15.
	if c.FontSize != 30 || c.Opacity != 0.5 || c.Width != 105 {
		t.Errorf("cmd = %+v", c)
	}
	if c.X != 300-52.5 || c.Y != 400 || c.Rotation != -45 || c.Color != Blue {
		t.Errorf("cmd = %+v", c)
	}
}

func TestDefaults(t *testing.T) {
	s := Spec{}.WithDefaults()
	want := Spec{Text: "WATERMARK", FontSize: 30, Opacity: 0.5, Color: "gray", Position: Center}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name   string
		spec   Spec
		w, h   float64
		width  float64
		target error
	}{
		{"opacity", Spec{Opacity: 1.5}, 600, 800, 10, apperr.ErrOutOfRange},
		{"negative opacity", Spec{Opacity: -0.1}, 600, 800, 10, apperr.ErrOutOfRange},
		{"font size", Spec{FontSize: -3}, 600, 800, 10, apperr.ErrInvalidInput},
		{"position", Spec{Position: "middle"}, 600, 800, 10, apperr.ErrInvalidInput},
		{"page", Spec{}, 0, 800, 10, apperr.ErrInvalidMetrics},
		{"zero width tiles", Spec{Position: FullPageDiagonal}, 600, 800, 0, apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LayoutWithWidth(tt.spec, tt.w, tt.h, tt.width)
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestCommandCenter(t *testing.T) {
	c := DrawCommand{X: 10, Y: 20, Width: 100, FontSize: 30}
	got := c.Center()
	if math.Abs(got.X-60) > 1e-9 || math.Abs(got.Y-35) > 1e-9 {
		t.Errorf("Center = %v", got)
	}

	c.Rotation = 90
	got = c.Center()
	if math.Abs(got.X-(-5)) > 1e-9 || math.Abs(got.Y-70) > 1e-9 {
		t.Errorf("rotated Center = %v", got)
	}
}

func TestParseColor(t *testing.T) {
	for name, want := range map[string]Color{
		"red": Red, "Blue": Blue, " green ": Green, "black": Black, "gray": Gray, "purple": Gray,
	} {
		if got := ParseColor(name); got != want {
			t.Errorf("ParseColor(%q) = %v", name, got)
		}
	}
	if got := Gray.Hex(); got != "#808080" {
		t.Errorf("Gray.Hex() = %s", got)
	}
	if got := Green.Hex(); got != "#008000" {
		t.Errorf("Green.Hex() = %s", got)
	}
}
