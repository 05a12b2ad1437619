package pixelplot

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPercentileInterval(t *testing.T) {
	data := mat.NewDense(1, 5, []float64{0, 1, 2, 3, math.NaN()})
	lo, hi := PercentileInterval(data, 100)
	require.Equal(t, 0.0, lo)
	require.Equal(t, 3.0, hi)

	lo, hi = PercentileInterval(mat.NewDense(1, 1, []float64{math.Inf(1)}), 95)
	require.True(t, math.IsNaN(lo))
	require.True(t, math.IsNaN(hi))
}

func TestPlotImageDefaults(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	ax, err := PlotImage(nil, data, ImageOptions{Title: "frame"})
	require.NoError(t, err)
	require.Equal(t, "frame", ax.Title)
	require.Equal(t, "Pixel Column Number", ax.XLabel)
	require.Equal(t, "Pixel Row Number", ax.YLabel)
	require.Equal(t, Extent{Left: 0, Right: 3, Bottom: 0, Top: 2}, ax.Image().Extent)
	require.Equal(t, DefaultStyleName, ax.Style.Name)
	require.Equal(t, StretchLinear, ax.Image().Stretch)
}

func TestPlotImageNormalization(t *testing.T) {
	data := mat.NewDense(1, 4, []float64{0, 5, 10, math.NaN()})
	vmin, vmax := 0.0, 10.0

	ax, err := PlotImage(nil, data, ImageOptions{VMin: &vmin, VMax: &vmax})
	require.NoError(t, err)
	norm := ax.Image().Normalized
	require.InDelta(t, 0, norm.At(0, 0), 1e-12)
	require.InDelta(t, 0.5, norm.At(0, 1), 1e-12)
	require.InDelta(t, 1, norm.At(0, 2), 1e-12)
	require.True(t, math.IsNaN(norm.At(0, 3)))

	ax, err = PlotImage(nil, data, ImageOptions{VMin: &vmin, VMax: &vmax, Stretch: StretchSqrt})
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt(0.5), ax.Image().Normalized.At(0, 1), 1e-12)
}

func TestPlotImageRejectsBadInput(t *testing.T) {
	_, err := PlotImage(nil, nil, ImageOptions{})
	require.Error(t, err)

	_, err = PlotImage(nil, mat.NewDense(1, 1, nil), ImageOptions{Stretch: "asinh"})
	require.Error(t, err)

	_, err = PlotImage(nil, mat.NewDense(1, 1, nil), ImageOptions{ColorMap: "no-such-map"})
	require.Error(t, err)
}

func TestAxesRender(t *testing.T) {
	data := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	ax, err := PlotImage(nil, data, ImageOptions{ShowColorbar: true, Title: "render"})
	require.NoError(t, err)
	DrawMask(ax, FullMask(3, 3), 0, 0, color.White)

	img := ax.Render(320, 240)
	require.InDelta(t, 320, img.Bounds().Dx(), 1)
	require.InDelta(t, 240, img.Bounds().Dy(), 1)
}

func TestLoadStyle(t *testing.T) {
	s, err := LoadStyle("", nil)
	require.NoError(t, err)
	require.Equal(t, DefaultStyle.ColorMap, s.ColorMap)
	require.Equal(t, DefaultStyleName, s.Name)

	s, err = LoadStyle("ggplot", nil)
	require.NoError(t, err)
	require.True(t, s.Grid)

	path := filepath.Join(t.TempDir(), "custom.mplstyle")
	sheet := "image.cmap : Blues_r\naxes.grid : True\naxes.facecolor : \"#101010\"\nfont.size: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(sheet), 0o644))

	s, err = LoadStyle(path, nil)
	require.NoError(t, err)
	require.Equal(t, path, s.Name)
	require.Equal(t, "Blues_r", s.ColorMap)
	require.True(t, s.Grid)
	require.Equal(t, "#101010", s.FaceColor)
	require.Equal(t, 8.0, s.FontSize)
	require.Equal(t, 100.0, s.DPI, "unset keys come from the default style")

	_, err = LoadStyle(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestLoadStyleWithLoader(t *testing.T) {
	var asked string
	s, err := LoadStyle("https://example.com/sheet.mplstyle", func(ref string) ([]byte, error) {
		asked = ref
		return []byte("image.cmap: gray\n"), nil
	})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/sheet.mplstyle", asked)
	require.Equal(t, "gray", s.ColorMap)
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"pink":      {R: 0xff, G: 0xc0, B: 0xcb, A: 0xff},
		"#ff0000":   {R: 0xff, A: 0xff},
		"00ff0080":  {G: 0xff, A: 0x80},
		"#fff":      {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		"k":         {A: 0xff},
		"0.5":       {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
		"LightBlue": {R: 0xad, G: 0xd8, B: 0xe6, A: 0xff},
	}
	for in, want := range cases {
		c, err := ParseColor(in)
		require.NoError(t, err, in)
		require.Equal(t, want, color.NRGBAModel.Convert(c), in)
	}

	for _, bad := range []string{"", "notacolour", "#12345", "1.5"} {
		_, err := ParseColor(bad)
		require.Error(t, err, bad)
	}
}

func TestColorMapByName(t *testing.T) {
	for _, name := range []string{
		"kindlmann", "kindlmann_extended", "blackbody", "blackbody_extended", "gray", "coolwarm",
		"bluetan", "greenred", "greenpurple", "purpleorange", "Blues", "YlGnBu_r",
	} {
		cm, err := ColorMapByName(name)
		require.NoError(t, err, name)
		require.Len(t, cm.Palette(10).Colors(), 10)
	}

	fwd, err := ColorMapByName("gray")
	require.NoError(t, err)
	rev, err := ColorMapByName("gray_r")
	require.NoError(t, err)
	lo, err := fwd.At(0)
	require.NoError(t, err)
	hi, err := rev.At(1)
	require.NoError(t, err)
	require.Equal(t, color.NRGBAModel.Convert(lo), color.NRGBAModel.Convert(hi))

	_, err = fwd.At(2)
	require.Error(t, err)

	_, err = ColorMapByName("greenorange")
	require.Error(t, err)
}
