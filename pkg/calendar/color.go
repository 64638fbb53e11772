package calendar

import (
	"slices"
	"strconv"
	"strings"
)

type Color string

const (
	Red     Color = "#ef4444"
	Amber   Color = "#f59e0b"
	Emerald Color = "#10b981"
	Blue    Color = "#3b82f6"
	Violet  Color = "#8b5cf6"
	Pink    Color = "#ec4899"
)

// Palette is the fixed set of colors an event can use. The first entry is the default.
var Palette = []Color{Red, Amber, Emerald, Blue, Violet, Pink}

func (c Color) InPalette() bool {
	return slices.Contains(Palette, Color(strings.ToLower(string(c))))
}

// RGB decodes a "#rrggbb" color. ok is false for any other format.
func (c Color) RGB() (r, g, b uint8, ok bool) {
	hex := strings.TrimPrefix(string(c), "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// Luminance is the perceived brightness of the color in [0, 1].
func (c Color) Luminance() float64 {
	r, g, b, ok := c.RGB()
	if !ok {
		return 0
	}
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
}

// ContrastText returns "black" for light backgrounds and "white" for dark ones.
func (c Color) ContrastText() string {
	if c.Luminance() > 0.5 {
		return "black"
	}
	return "white"
}
