package fitsdata

import (
	"bytes"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/require"

	"tpf-render/fitsdata/fitstest"
)

func TestParseTDIM(t *testing.T) {
	dims, err := ParseTDIM("(11,13)")
	require.NoError(t, err)
	require.Equal(t, []int{11, 13}, dims)

	dims, err = ParseTDIM(" ( 5 ) ")
	require.NoError(t, err)
	require.Equal(t, []int{5}, dims)

	_, err = ParseTDIM("()")
	require.Error(t, err)
	_, err = ParseTDIM("(a,2)")
	require.Error(t, err)
}

func TestFloats(t *testing.T) {
	got, err := Floats([3]float32{1, 2.5, -1})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2.5, -1}, got)

	got, err = Floats([]int16{4, 5})
	require.NoError(t, err)
	require.Equal(t, []float64{4, 5}, got)

	got, err = Floats(int32(7))
	require.NoError(t, err)
	require.Equal(t, []float64{7}, got)

	got, err = Floats([]interface{}{uint8(1), 2.0})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, got)

	_, err = Floats("nope")
	require.Error(t, err)
}

func TestReadImage(t *testing.T) {
	data, err := fitstest.Images(
		fitstest.Image{Name: "BYTES", Bitpix: 8, Axes: []int{2, 2}, Data: []byte{1, 2, 3, 255}},
		fitstest.Image{Name: "FLOATS", Bitpix: -32, Axes: []int{3}, Data: []float32{0.5, -1, 2}},
		fitstest.Image{
			Name:   "SCALED",
			Bitpix: 32,
			Axes:   []int{2},
			Data:   []int32{-1, 4},
			Cards:  []fitsio.Card{{Name: "BSCALE", Value: 0.5}, {Name: "BZERO", Value: 100.0}},
		},
	)
	require.NoError(t, err)

	f, err := fitsio.Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Nil(t, FindHDU(f, "MISSING"))

	axes, values, err := ReadImage(FindHDU(f, "bytes").(fitsio.Image))
	require.NoError(t, err)
	require.Equal(t, []int{2, 2}, axes)
	require.Equal(t, []float64{1, 2, 3, 255}, values)

	axes, values, err = ReadImage(FindHDU(f, "FLOATS").(fitsio.Image))
	require.NoError(t, err)
	require.Equal(t, []int{3}, axes)
	require.Equal(t, []float64{0.5, -1, 2}, values)

	_, values, err = ReadImage(FindHDU(f, "SCALED").(fitsio.Image))
	require.NoError(t, err)
	require.Equal(t, []float64{99.5, 102}, values)

	scale, ok := CardFloat(FindHDU(f, "SCALED").Header(), "BSCALE")
	require.True(t, ok)
	require.Equal(t, 0.5, scale)
	name, ok := CardString(FindHDU(f, "SCALED").Header(), "EXTNAME")
	require.True(t, ok)
	require.Equal(t, "SCALED", name)
	_, ok = CardInt(FindHDU(f, "SCALED").Header(), "NOPE")
	require.False(t, ok)
}
