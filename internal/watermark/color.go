package watermark

import (
	"fmt"
	"math"
	"strings"
)

// Color is an RGB triple with components in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var (
	Gray  = Color{0.5, 0.5, 0.5}
	Red   = Color{1, 0, 0}
	Blue  = Color{0, 0, 1}
	Green = Color{0, 0.5, 0}
	Black = Color{0, 0, 0}
)

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ParseColor maps a color name to RGB. Unknown names are gray.
func ParseColor(name string) Color {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "red":
		return Red
	case "blue":
		return Blue
	case "green":
		return Green
	case "black":
		return Black
	}
	return Gray
}
