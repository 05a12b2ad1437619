// Package fitstest writes small FITS files for tests.
package fitstest

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/astrogo/fitsio"
)

// Pixels describes a target pixel file. Frames are row-major, columns fastest.
type Pixels struct {
	Object      string
	Row, Column int
	Rows, Cols  int
	Cadences    []int32
	Time        []float64
	Flux        [][]float32
	FluxBkg     [][]float32
	// Aperture is optional, row-major.
	Aperture []int32
}

// Image is an image extension.
type Image struct {
	Name   string
	Bitpix int
	Axes   []int
	Data   interface{}
	Cards  []fitsio.Card
}

// TargetPixelFile encodes p as a primary HDU, a PIXELS binary table and, when
// p.Aperture is set, an APERTURE image.
func TargetPixelFile(p Pixels) ([]byte, error) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := writePrimary(f, fitsio.Card{Name: "OBJECT", Value: p.Object}, fitsio.Card{Name: "TELESCOP", Value: "TESS"}); err != nil {
		return nil, err
	}

	n := p.Rows * p.Cols
	dim := []int64{int64(p.Cols), int64(p.Rows)}
	cols := []fitsio.Column{{Name: "CADENCENO", Format: "J"}}
	if p.Time != nil {
		cols = append(cols, fitsio.Column{Name: "TIME", Format: "D"})
	}
	cols = append(cols, fitsio.Column{Name: "FLUX", Format: fmt.Sprintf("%dE", n), Dim: dim})
	fluxCol := len(cols)
	if p.FluxBkg != nil {
		cols = append(cols, fitsio.Column{Name: "FLUX_BKG", Format: fmt.Sprintf("%dE", n), Dim: dim})
	}

	tbl, err := fitsio.NewTable("PIXELS", cols, fitsio.BINARY_TBL)
	if err != nil {
		return nil, err
	}
	defer tbl.Close()
	err = tbl.Header().Append(
		fitsio.Card{Name: fmt.Sprintf("1CRV%dP", fluxCol), Value: p.Column},
		fitsio.Card{Name: fmt.Sprintf("2CRV%dP", fluxCol), Value: p.Row},
	)
	if err != nil {
		return nil, err
	}

	for i, cadence := range p.Cadences {
		c := cadence
		args := []interface{}{&c}
		if p.Time != nil {
			tm := p.Time[i]
			args = append(args, &tm)
		}
		args = append(args, array(p.Flux[i]))
		if p.FluxBkg != nil {
			args = append(args, array(p.FluxBkg[i]))
		}
		if err := tbl.Write(args...); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.Write(tbl); err != nil {
		return nil, err
	}

	if p.Aperture != nil {
		err = writeImage(f, Image{Name: "APERTURE", Bitpix: 32, Axes: []int{p.Cols, p.Rows}, Data: p.Aperture})
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Images encodes an empty primary HDU followed by the given image extensions.
func Images(images ...Image) ([]byte, error) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := writePrimary(f); err != nil {
		return nil, err
	}
	for _, img := range images {
		if err := writeImage(f, img); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writePrimary(f *fitsio.File, cards ...fitsio.Card) error {
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	defer phdu.Close()
	if err := phdu.Header().Append(cards...); err != nil {
		return err
	}
	return f.Write(phdu)
}

func writeImage(f *fitsio.File, img Image) error {
	hdu := fitsio.NewImage(img.Bitpix, img.Axes)
	defer hdu.Close()
	cards := append([]fitsio.Card{{Name: "EXTNAME", Value: img.Name}}, img.Cards...)
	if err := hdu.Header().Append(cards...); err != nil {
		return err
	}
	if err := hdu.Write(img.Data); err != nil {
		return fmt.Errorf("write %s: %w", img.Name, err)
	}
	return f.Write(hdu)
}

// array copies values into a fixed-size array, the form fitsio expects for
// repeated columns.
func array(values []float32) interface{} {
	arr := reflect.New(reflect.ArrayOf(len(values), reflect.TypeOf(float32(0))))
	reflect.Copy(arr.Elem(), reflect.ValueOf(values))
	return arr.Interface()
}
