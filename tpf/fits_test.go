package tpf

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tpf-render/fitsdata/fitstest"
	"tpf-render/pixelplot"
)

func testPixels() fitstest.Pixels {
	// 2 rows x 3 columns, three cadences.
	return fitstest.Pixels{
		Object:   "TIC 261136679",
		Row:      240,
		Column:   1010,
		Rows:     2,
		Cols:     3,
		Cadences: []int32{7000, 7001, 7002},
		Time:     []float64{1325.3, 1325.32, 1325.34},
		Flux: [][]float32{
			{1, 2, 3, 4, 5, 6},
			{10, 20, 30, 40, 50, 60},
			{100, 200, 300, 400, 500, 600},
		},
		FluxBkg: [][]float32{
			{0.5, 0.5, 0.5, 1, 1, 1},
			{2, 2, 2, 3, 3, 3},
			{float32(math.NaN()), float32(math.NaN()), float32(math.NaN()), float32(math.NaN()), float32(math.NaN()), float32(math.NaN())},
		},
		Aperture: []int32{
			AperturePipeline, 0, ApertureBackground,
			AperturePipeline | ApertureBackground, 1, 0,
		},
	}
}

func TestOpen(t *testing.T) {
	data, err := fitstest.TargetPixelFile(testPixels())
	require.NoError(t, err)

	tp, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "TIC 261136679", tp.TargetID())
	require.Equal(t, "TESS", tp.Mission)
	require.Equal(t, []int{7000, 7001, 7002}, tp.Cadences())
	require.InDeltaSlice(t, []float64{1325.3, 1325.32, 1325.34}, tp.Time, 1e-9)

	rows, cols := tp.Shape()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)
	row, column := tp.Origin()
	require.Equal(t, 240, row)
	require.Equal(t, 1010, column)

	require.Equal(t, 6.0, tp.Flux(0).At(1, 2))
	require.Equal(t, 20.0, tp.Flux(1).At(0, 1))
	require.Equal(t, 3.0, tp.FluxBkg(1).At(1, 0))
	require.True(t, math.IsNaN(tp.FluxBkg(2).At(0, 0)))

	m, err := tp.ParseApertureMask("pipeline")
	require.NoError(t, err)
	require.Equal(t, pixelplot.Mask{{true, false, false}, {true, false, false}}, m)
	m, err = tp.ParseApertureMask("background")
	require.NoError(t, err)
	require.Equal(t, pixelplot.Mask{{false, false, true}, {true, false, false}}, m)
}

func TestOpenPlotBkg(t *testing.T) {
	data, err := fitstest.TargetPixelFile(testPixels())
	require.NoError(t, err)
	tp, err := Open(bytes.NewReader(data))
	require.NoError(t, err)

	ax, err := pixelplot.PlotBkg(nil, tp, pixelplot.WithCadence(7001), pixelplot.WithApertureMaskName("pipeline"))
	require.NoError(t, err)
	require.Equal(t, "Target ID: TIC 261136679", ax.Title)
	require.Equal(t, pixelplot.Extent{Left: 1010, Right: 1013, Bottom: 240, Top: 242}, ax.Image().Extent)
	require.Len(t, ax.Patches(), 2)

	_, err = pixelplot.PlotBkg(nil, tp, pixelplot.WithFrame(2))
	require.ErrorIs(t, err, pixelplot.ErrNoFiniteData)
}

func TestOpenWithoutOptionalData(t *testing.T) {
	p := testPixels()
	p.Time, p.FluxBkg, p.Aperture = nil, nil, nil
	data, err := fitstest.TargetPixelFile(p)
	require.NoError(t, err)

	tp, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	require.Nil(t, tp.Time)
	require.Nil(t, tp.FluxBkg(0))
	require.Nil(t, tp.Aperture)

	_, err = tp.ParseApertureMask("pipeline")
	require.ErrorIs(t, err, pixelplot.ErrInvalidMask)
}

func TestOpenRejectsOtherFiles(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("not a fits file")))
	require.Error(t, err)

	data, err := fitstest.Images(fitstest.Image{Name: "FLUX", Bitpix: -64, Axes: []int{2, 2}, Data: []float64{1, 2, 3, 4}})
	require.NoError(t, err)
	_, err = Open(bytes.NewReader(data))
	require.ErrorContains(t, err, "PIXELS")
}

func TestReadCube(t *testing.T) {
	data, err := fitstest.Images(fitstest.Image{
		Name:   "BKG_MODEL",
		Bitpix: -32,
		Axes:   []int{3, 2, 2},
		Data:   []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	})
	require.NoError(t, err)

	frames, err := ReadCube(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	rows, cols := frames[1].Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 3, cols)
	require.Equal(t, 6.0, frames[0].At(1, 2))
	require.Equal(t, 7.0, frames[1].At(0, 0))

	data, err = fitstest.Images(fitstest.Image{Name: "CADENCES", Bitpix: 32, Axes: []int{3}, Data: []int32{1, 2, 3}})
	require.NoError(t, err)
	_, err = ReadCube(bytes.NewReader(data))
	require.Error(t, err)
}
