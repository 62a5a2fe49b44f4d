// Package colormap turns temperatures into a background colour taken from a
// diverging blue-yellow-red palette and a legible black or white text colour.
//
// All functions are pure and safe for concurrent use.
package colormap

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Comfortable indoor band in °C. A scale always contains it.
const (
	ComfortMin = 18.0
	ComfortMax = 25.0
)

// Thresholds of the W3C legacy contrast heuristic.
const (
	minBrightnessDelta = 125.0
	minColorDifference = 500
)

// Foreground candidates, tried in this order.
const (
	White = "#FFFFFF"
	Black = "#000000"
)

// ErrInvalidInput is returned by DetermineColorsChecked for NaN or infinite
// temperatures.
var ErrInvalidInput = errors.New("colormap: temperature must be finite")

// RGB is an 8-bit sRGB colour.
type RGB struct {
	R, G, B uint8
}

// Hex returns the colour as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHex decodes "#RRGGBB" or "RRGGBB" (any case).
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("colormap: invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("colormap: invalid hex colour %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Palette is an ordered list of anchors spread evenly over [0, 1].
type Palette []RGB

// RdYlBuR is ColorBrewer's 11-class RdYlBu reversed: dark blue for cold,
// pale yellow in the middle, dark red for warm.
var RdYlBuR = Palette{
	{0x31, 0x36, 0x95},
	{0x45, 0x75, 0xB4},
	{0x74, 0xAD, 0xD1},
	{0xAB, 0xD9, 0xE9},
	{0xE0, 0xF3, 0xF8},
	{0xFF, 0xFF, 0xBF},
	{0xFE, 0xE0, 0x90},
	{0xFD, 0xAE, 0x61},
	{0xF4, 0x6D, 0x43},
	{0xD7, 0x30, 0x27},
	{0xA5, 0x00, 0x26},
}

// At interpolates linearly between the two anchors surrounding t. t is
// clamped to [0, 1]; 0 and 1 return the first and last anchor exactly.
func (p Palette) At(t float64) RGB {
	if len(p) == 0 {
		return RGB{}
	}
	if len(p) == 1 || math.IsNaN(t) || t <= 0 {
		return p[0]
	}
	if t >= 1 {
		return p[len(p)-1]
	}

	pos := t * float64(len(p)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := p[i], p[i+1]
	return RGB{
		R: lerp(a.R, b.R, f),
		G: lerp(a.G, b.G, f),
		B: lerp(a.B, b.B, f),
	}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
}

// Scale is the temperature range mapped onto the palette.
type Scale struct {
	Min float64
	Max float64
}

// ScaleFor returns the scale used to colour a single temperature.
func ScaleFor(temp float64) Scale {
	return ScaleForRange(temp, temp)
}

// ScaleForRange widens the comfortable band to include [lo, hi].
func ScaleForRange(lo, hi float64) Scale {
	return Scale{Min: math.Min(lo, ComfortMin), Max: math.Max(hi, ComfortMax)}
}

// Normalize maps temp to [0, 1] within the scale. A zero-width scale maps
// everything to 0.
func (s Scale) Normalize(temp float64) float64 {
	span := s.Max - s.Min
	if span == 0 || math.IsNaN(span) {
		return 0
	}
	t := (temp - s.Min) / span
	switch {
	case t < 0 || math.IsNaN(t):
		return 0
	case t > 1:
		return 1
	}
	return t
}

// ColorPair is a background colour with the text colour to draw on it.
type ColorPair struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// DetermineColors colours temp on its own scale (see ScaleFor).
func DetermineColors(temp float64) ColorPair {
	return MapWithin(ScaleFor(temp), temp)
}

// DetermineColorsChecked is DetermineColors with non-finite input rejected.
func DetermineColorsChecked(temp float64) (ColorPair, error) {
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return ColorPair{}, ErrInvalidInput
	}
	return DetermineColors(temp), nil
}

// MapWithin colours temp on a caller-chosen scale, so that values sharing a
// chart share colours.
func MapWithin(s Scale, temp float64) ColorPair {
	bg := RdYlBuR.At(s.Normalize(temp)).Hex()
	return ColorPair{Background: bg, Foreground: foregroundFor(bg)}
}

var candidates = []string{White, Black}

// foregroundFor keeps White unless a later candidate passes the contrast
// test against bg.
func foregroundFor(bg string) string {
	bgRGB, err := ParseHex(bg)
	if err != nil {
		return White
	}
	fg := White
	for _, c := range candidates {
		cRGB, err := ParseHex(c)
		if err != nil {
			continue
		}
		if Readable(bgRGB, cRGB) {
			fg = c
		}
	}
	return fg
}

// Brightness is the ITU-R BT.601 luma of c on a 0-255 scale.
func Brightness(c RGB) float64 {
	return (299*float64(c.R) + 587*float64(c.G) + 114*float64(c.B)) / 1000
}

// ColorDifference is the sum of absolute per-channel differences.
func ColorDifference(a, b RGB) int {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// Readable reports whether fg on bg passes both the brightness and the
// colour difference thresholds.
func Readable(bg, fg RGB) bool {
	return math.Abs(Brightness(bg)-Brightness(fg)) >= minBrightnessDelta &&
		ColorDifference(bg, fg) >= minColorDifference
}
