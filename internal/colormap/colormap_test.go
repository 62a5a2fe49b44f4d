package colormap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleFor(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		want Scale
	}{
		{name: "inside band low edge", temp: 18, want: Scale{Min: 18, Max: 25}},
		{name: "inside band", temp: 21.5, want: Scale{Min: 18, Max: 25}},
		{name: "inside band high edge", temp: 25, want: Scale{Min: 18, Max: 25}},
		{name: "below band", temp: 10, want: Scale{Min: 10, Max: 25}},
		{name: "far below band", temp: -20, want: Scale{Min: -20, Max: 25}},
		{name: "above band", temp: 30, want: Scale{Min: 18, Max: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleFor(tt.temp)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.Min, tt.temp)
			assert.GreaterOrEqual(t, got.Max, tt.temp)
			assert.LessOrEqual(t, got.Min, ComfortMin)
			assert.GreaterOrEqual(t, got.Max, ComfortMax)
		})
	}
}

func TestScaleForRange(t *testing.T) {
	assert.Equal(t, Scale{Min: 18, Max: 25}, ScaleForRange(19, 23))
	assert.Equal(t, Scale{Min: 15.2, Max: 27}, ScaleForRange(15.2, 27))
}

func TestNormalize(t *testing.T) {
	s := Scale{Min: 18, Max: 25}
	assert.InDelta(t, 0.5, s.Normalize(21.5), 1e-9)
	assert.Equal(t, 0.0, s.Normalize(18))
	assert.Equal(t, 1.0, s.Normalize(25))
	assert.Equal(t, 0.0, s.Normalize(-100), "clamped low")
	assert.Equal(t, 1.0, s.Normalize(100), "clamped high")

	degenerate := Scale{Min: 20, Max: 20}
	assert.Equal(t, 0.0, degenerate.Normalize(20))
}

func TestNormalize_monotonicInsideBand(t *testing.T) {
	prev := -1.0
	for temp := 18.0; temp <= 25.0; temp += 0.1 {
		got := ScaleFor(temp).Normalize(temp)
		assert.GreaterOrEqual(t, got, prev, "temp=%v", temp)
		prev = got
	}
}

func TestPaletteAt_endpoints(t *testing.T) {
	assert.Equal(t, "#313695", RdYlBuR.At(0).Hex())
	assert.Equal(t, "#A50026", RdYlBuR.At(1).Hex())
	assert.Equal(t, "#313695", RdYlBuR.At(-3).Hex())
	assert.Equal(t, "#A50026", RdYlBuR.At(7).Hex())
	assert.Equal(t, "#313695", RdYlBuR.At(math.NaN()).Hex())
}

func TestPaletteAt_hitsAnchors(t *testing.T) {
	n := len(RdYlBuR) - 1
	for i, anchor := range RdYlBuR {
		assert.Equal(t, anchor, RdYlBuR.At(float64(i)/float64(n)), "anchor %d", i)
	}
}

func TestPaletteAt_betweenAnchors(t *testing.T) {
	// Halfway between #313695 and #4575B4.
	got := RdYlBuR.At(0.05)
	assert.Equal(t, RGB{R: 0x3B, G: 0x56, B: 0xA5}, got)
}

func TestPaletteAt_continuous(t *testing.T) {
	const step = 0.001
	prev := RdYlBuR.At(0)
	for x := step; x <= 1; x += step {
		cur := RdYlBuR.At(x)
		assert.LessOrEqual(t, ColorDifference(prev, cur), 6, "jump at t=%v", x)
		prev = cur
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#a50026")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 165, G: 0, B: 38}, c)

	c, err = ParseHex("FFFFBF")
	require.NoError(t, err)
	assert.Equal(t, RGB{R: 255, G: 255, B: 191}, c)

	for _, bad := range []string{"", "#fff", "#gggggg", "#1234567"} {
		_, err := ParseHex(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestBrightnessAndDifference(t *testing.T) {
	assert.InDelta(t, 255.0, Brightness(RGB{255, 255, 255}), 1e-9)
	assert.Equal(t, 0.0, Brightness(RGB{}))
	assert.InDelta(t, 63.335, Brightness(RGB{0x31, 0x36, 0x95}), 1e-9)
	assert.Equal(t, 765, ColorDifference(RGB{}, RGB{255, 255, 255}))
	assert.Equal(t, 203, ColorDifference(RGB{165, 0, 38}, RGB{}))
}

func TestDetermineColors_scenarios(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		want ColorPair
	}{
		{name: "below band maps to first anchor", temp: 5, want: ColorPair{Background: "#313695", Foreground: White}},
		{name: "own minimum maps to first anchor", temp: 10, want: ColorPair{Background: "#313695", Foreground: White}},
		{name: "band minimum", temp: 18, want: ColorPair{Background: "#313695", Foreground: White}},
		{name: "band centre is the middle anchor", temp: 21.5, want: ColorPair{Background: "#FFFFBF", Foreground: Black}},
		{name: "band maximum", temp: 25, want: ColorPair{Background: "#A50026", Foreground: White}},
		{name: "above band maps to last anchor", temp: 30, want: ColorPair{Background: "#A50026", Foreground: White}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineColors(tt.temp))
		})
	}
}

func TestDetermineColors_idempotent(t *testing.T) {
	for _, temp := range []float64{-3.3, 19.1, 22.75, 24.9, 41} {
		assert.Equal(t, DetermineColors(temp), DetermineColors(temp))
	}
}

func TestDetermineColors_contrastGuarantee(t *testing.T) {
	black, err := ParseHex(Black)
	require.NoError(t, err)

	for temp := -20; temp <= 50; temp++ {
		pair := DetermineColors(float64(temp))
		bg, err := ParseHex(pair.Background)
		require.NoError(t, err, "temp=%d", temp)

		if Readable(bg, black) {
			assert.Equal(t, Black, pair.Foreground, "temp=%d bg=%s", temp, pair.Background)
			continue
		}
		assert.Equal(t, White, pair.Foreground, "temp=%d bg=%s", temp, pair.Background)
	}
}

func TestMapWithin_sharedScale(t *testing.T) {
	s := ScaleForRange(16, 28)
	assert.Equal(t, "#313695", MapWithin(s, 16).Background)
	assert.Equal(t, "#A50026", MapWithin(s, 28).Background)
	assert.Equal(t, "#FFFFBF", MapWithin(s, 22).Background)
}

func TestDetermineColorsChecked(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := DetermineColorsChecked(v)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	got, err := DetermineColorsChecked(21.5)
	require.NoError(t, err)
	assert.Equal(t, DetermineColors(21.5), got)
}
