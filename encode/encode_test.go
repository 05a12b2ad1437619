package encode

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 0x80, A: 0xff})
		}
	}
	return img
}

func TestEncodeImage(t *testing.T) {
	decoders := map[string]func(io.Reader) (image.Image, error){
		"png":  png.Decode,
		"tiff": tiff.Decode,
		"bmp":  bmp.Decode,
		"webp": func(r io.Reader) (image.Image, error) { return webp.Decode(r, &decoder.Options{}) },
	}
	for format, decode := range decoders {
		var buf bytes.Buffer
		require.NoError(t, Image(&buf, testImage(), format, 80), format)
		img, err := decode(&buf)
		require.NoError(t, err, format)
		require.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds(), format)
	}

	require.Error(t, Image(io.Discard, testImage(), "gif", 80))
}

func TestResizeImage(t *testing.T) {
	img := Resize(testImage(), 8, 0, 3)
	require.Equal(t, 8, img.Bounds().Dx())
	require.Equal(t, 4, img.Bounds().Dy())

	img = Rescale(testImage(), 0.5, 3)
	require.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"frame.png":  "png",
		"frame":      "png",
		"frame.TIF":  "tiff",
		"frame.tiff": "tiff",
		"frame.webp": "webp",
		"frame.bmp":  "bmp",
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		require.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("frame.jpg")
	require.Error(t, err)
}
