package pixelplot

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

var shortColors = map[string]color.Color{
	"k": color.Black,
	"w": color.White,
	"r": color.RGBA{R: 0xff, A: 0xff},
	"g": color.RGBA{G: 0x80, A: 0xff},
	"b": color.RGBA{B: 0xff, A: 0xff},
	"c": color.RGBA{G: 0xbf, B: 0xbf, A: 0xff},
	"m": color.RGBA{R: 0xbf, B: 0xbf, A: 0xff},
	"y": color.RGBA{R: 0xbf, G: 0xbf, A: 0xff},
}

// ParseColor understands CSS colour names, hex strings with or without a leading '#',
// single letter shorthands and grey levels written as a number between 0 and 1.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty colour")
	}
	lower := strings.ToLower(s)
	if lower == "none" {
		return color.Transparent, nil
	}
	if c, ok := shortColors[lower]; ok {
		return c, nil
	}
	if c, ok := colornames.Map[lower]; ok {
		return c, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !strings.HasPrefix(s, "#") && len(s) != 6 && len(s) != 8 {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("grey level %q must be between 0 and 1", s)
		}
		g := uint8(math.Round(v * 255))
		return color.Gray{Y: g}, nil
	}
	h := strings.TrimPrefix(lower, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 && len(h) != 8 {
		return nil, fmt.Errorf("unknown colour %q", s)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("unknown colour %q: %w", s, err)
	}
	c := color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}
	return c, nil
}

func withAlpha(c color.Color, alpha float64) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * alpha))
	return n
}

// ColorMapByName returns a continuous colour map. Names ending in "_r" are reversed.
// Gonum's moreland maps are available by their lower-case names and every ColorBrewer
// scheme by its usual name (Blues, YlGnBu, ...).
func ColorMapByName(name string) (palette.ColorMap, error) {
	reverse := strings.HasSuffix(name, "_r")
	base := strings.TrimSuffix(name, "_r")

	colors, err := colorsByName(base)
	if err != nil {
		return nil, err
	}
	if reverse {
		for i, j := 0, len(colors)-1; i < j; i, j = i+1, j-1 {
			colors[i], colors[j] = colors[j], colors[i]
		}
	}
	return &listedColorMap{colors: colors, max: 1, alpha: 1}, nil
}

func colorsByName(name string) ([]color.Color, error) {
	var cm palette.ColorMap
	switch strings.ToLower(name) {
	case "gray", "grey":
		colors := make([]color.Color, 256)
		for i := range colors {
			colors[i] = color.Gray{Y: uint8(i)}
		}
		return colors, nil
	case "kindlmann":
		cm = moreland.Kindlmann()
	case "kindlmann_extended":
		cm = moreland.ExtendedKindlmann()
	case "blackbody", "hot":
		cm = moreland.BlackBody()
	case "blackbody_extended":
		cm = moreland.ExtendedBlackBody()
	case "coolwarm":
		cm = moreland.SmoothBlueRed()
	case "bluetan":
		cm = moreland.SmoothBlueTan()
	case "greenred":
		cm = moreland.SmoothGreenRed()
	case "greenpurple":
		cm = moreland.SmoothGreenPurple()
	case "purpleorange":
		cm = moreland.SmoothPurpleOrange()
	}
	if cm != nil {
		cm.SetMin(0)
		cm.SetMax(1)
		return cm.Palette(256).Colors(), nil
	}

	p, err := brewer.GetPalette(brewer.TypeAny, name, 9)
	if err != nil {
		return nil, fmt.Errorf("unknown colour map %q: %w", name, err)
	}
	return p.Colors(), nil
}

// listedColorMap interpolates linearly between evenly spaced colours.
type listedColorMap struct {
	colors   []color.Color
	min, max float64
	alpha    float64
}

func (l *listedColorMap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < l.min:
		return nil, palette.ErrUnderflow
	case v > l.max:
		return nil, palette.ErrOverflow
	}
	n := len(l.colors)
	if n == 1 || l.max == l.min {
		return withAlpha(l.colors[0], l.alpha), nil
	}
	pos := (v - l.min) / (l.max - l.min) * float64(n-1)
	i := int(math.Floor(pos))
	if i >= n-1 {
		return withAlpha(l.colors[n-1], l.alpha), nil
	}
	frac := pos - float64(i)
	a := color.NRGBAModel.Convert(l.colors[i]).(color.NRGBA)
	b := color.NRGBAModel.Convert(l.colors[i+1]).(color.NRGBA)
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*frac))
	}
	c := color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
	return withAlpha(c, l.alpha), nil
}

func (l *listedColorMap) Max() float64 { return l.max }
func (l *listedColorMap) SetMax(v float64) { l.max = v }
func (l *listedColorMap) Min() float64 { return l.min }
func (l *listedColorMap) SetMin(v float64) { l.min = v }
func (l *listedColorMap) Alpha() float64 { return l.alpha }
func (l *listedColorMap) SetAlpha(v float64) { l.alpha = v }

func (l *listedColorMap) Palette(colors int) palette.Palette {
	out := make([]color.Color, colors)
	for i := range out {
		v := l.min
		if colors > 1 {
			v = l.min + (l.max-l.min)*float64(i)/float64(colors-1)
		}
		c, err := l.At(v)
		if err != nil {
			c = l.colors[0]
		}
		out[i] = c
	}
	return colorPalette(out)
}

type colorPalette []color.Color

func (p colorPalette) Colors() []color.Color { return p }
