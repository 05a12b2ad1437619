// Package encode resizes rendered frames and writes them in the served image formats.
package encode

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"tpf-render/mime"
)

// Resize scales img to width x height; a zero dimension keeps the aspect ratio.
func Resize(img image.Image, width int, height int, interpolation resize.InterpolationFunction) image.Image {
	return resize.Resize(uint(width), uint(height), img, interpolation)
}

// Rescale multiplies both dimensions of img by scale.
func Rescale(img image.Image, scale float64, interpolation resize.InterpolationFunction) image.Image {
	dX := img.Bounds().Dx()
	dY := img.Bounds().Dy()

	return resize.Resize(uint(float64(dX)*scale), uint(float64(dY)*scale), img, interpolation)
}

// Image writes img in format. quality only applies to webp.
func Image(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case mime.FormatPNG:
		return png.Encode(w, img)

	case mime.FormatWebp:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("failed to create webp encoder options: %w", err)
		}
		return webp.Encode(w, img, options)

	case mime.FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})

	case mime.FormatBMP:
		return bmp.Encode(w, img)

	default:
		return fmt.Errorf("unsupported image format: %s", format)
	}
}

// FormatFromPath picks the output format from a file extension, png by default.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "", mime.FormatPNG:
		return mime.FormatPNG, nil
	case "tif", mime.FormatTIFF:
		return mime.FormatTIFF, nil
	case mime.FormatWebp, mime.FormatBMP:
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported output extension %q", ext)
	}
}
