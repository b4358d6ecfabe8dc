package render

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	lineColor    = color.RGBA{B: 180, A: 255}
	circuitColor = color.RGBA{R: 255, A: 255}
)

// namedColors covers the single letter and common color names used in
// map files.
var namedColors = map[string]color.RGBA{
	"b":       {B: 255, A: 255},
	"blue":    {B: 255, A: 255},
	"g":       {G: 128, A: 255},
	"green":   {G: 128, A: 255},
	"r":       {R: 255, A: 255},
	"red":     {R: 255, A: 255},
	"c":       {G: 191, B: 191, A: 255},
	"cyan":    {G: 255, B: 255, A: 255},
	"m":       {R: 191, B: 191, A: 255},
	"magenta": {R: 255, B: 255, A: 255},
	"y":       {R: 191, G: 191, A: 255},
	"yellow":  {R: 255, G: 255, A: 255},
	"k":       {A: 255},
	"black":   {A: 255},
	"w":       {R: 255, G: 255, B: 255, A: 255},
	"white":   {R: 255, G: 255, B: 255, A: 255},
	"orange":  {R: 255, G: 165, A: 255},
	"gray":    {R: 128, G: 128, B: 128, A: 255},
	"grey":    {R: 128, G: 128, B: 128, A: 255},
	"purple":  {R: 128, B: 128, A: 255},
	"brown":   {R: 165, G: 42, B: 42, A: 255},
}

// parseColor accepts a color name or #rrggbb. Unknown values are black.
func parseColor(s string) color.Color {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	if len(s) == 7 && s[0] == '#' {
		if v, err := strconv.ParseUint(s[1:], 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
		}
	}
	return color.Black
}

// glyphFor maps a marker code of a map file to a glyph shape.
func glyphFor(marker string) draw.GlyphDrawer {
	switch marker {
	case "o", ".":
		return draw.CircleGlyph{}
	case "s":
		return draw.BoxGlyph{}
	case "S":
		return draw.SquareGlyph{}
	case "^":
		return draw.TriangleGlyph{}
	case "v":
		return draw.PyramidGlyph{}
	case "+":
		return draw.PlusGlyph{}
	case "x", "X":
		return draw.CrossGlyph{}
	default:
		return draw.RingGlyph{}
	}
}

// markerRadius converts a marker area in points² to a glyph radius.
func markerRadius(area float64) vg.Length {
	if area <= 0 {
		return vg.Points(3)
	}
	return vg.Points(math.Sqrt(area) / 2)
}
