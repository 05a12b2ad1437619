// Package fitsdata converts FITS headers, images and table cells into plain Go values.
package fitsdata

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// FindHDU returns the first HDU whose EXTNAME matches name, ignoring case.
func FindHDU(f *fitsio.File, name string) fitsio.HDU {
	for _, hdu := range f.HDUs() {
		if strings.EqualFold(hdu.Name(), name) {
			return hdu
		}
	}
	return nil
}

// CardInt reads an integer header card.
func CardInt(h *fitsio.Header, key string) (int, bool) {
	card := h.Get(key)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

// CardFloat reads a numeric header card.
func CardFloat(h *fitsio.Header, key string) (float64, bool) {
	card := h.Get(key)
	if card == nil {
		return 0, false
	}
	switch v := card.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// CardString reads a header card as text.
func CardString(h *fitsio.Header, key string) (string, bool) {
	card := h.Get(key)
	if card == nil || card.Value == nil {
		return "", false
	}
	return strings.TrimSpace(fmt.Sprint(card.Value)), true
}

// Floats flattens a numeric scalar, array or slice into float64 values.
func Floats(v interface{}) ([]float64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array, reflect.Slice:
		out := make([]float64, rv.Len())
		for i := range out {
			f, err := scalar(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		f, err := scalar(rv)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
}

func scalar(rv reflect.Value) (float64, error) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Interface:
		return scalar(rv.Elem())
	}
	return 0, fmt.Errorf("unsupported FITS value of kind %s", rv.Kind())
}

// ReadImage returns the axes (NAXIS1 first) and the scaled pixel values of an image HDU.
func ReadImage(img fitsio.Image) ([]int, []float64, error) {
	hdr := img.Header()
	axes := hdr.Axes()
	n := 1
	for _, a := range axes {
		n *= a
	}
	if len(axes) == 0 || n == 0 {
		return axes, nil, nil
	}

	var raw interface{}
	switch hdr.Bitpix() {
	case 8:
		data := make([]uint8, n)
		if err := img.Read(&data); err != nil {
			return nil, nil, err
		}
		raw = data
	case 16:
		data := make([]int16, n)
		if err := img.Read(&data); err != nil {
			return nil, nil, err
		}
		raw = data
	case 32:
		data := make([]int32, n)
		if err := img.Read(&data); err != nil {
			return nil, nil, err
		}
		raw = data
	case 64:
		data := make([]int64, n)
		if err := img.Read(&data); err != nil {
			return nil, nil, err
		}
		raw = data
	case -32:
		data := make([]float32, n)
		if err := img.Read(&data); err != nil {
			return nil, nil, err
		}
		raw = data
	case -64:
		data := make([]float64, n)
		if err := img.Read(&data); err != nil {
			return nil, nil, err
		}
		raw = data
	default:
		return nil, nil, fmt.Errorf("unsupported BITPIX %d", hdr.Bitpix())
	}

	values, err := Floats(raw)
	if err != nil {
		return nil, nil, err
	}
	scale, ok := CardFloat(hdr, "BSCALE")
	if !ok {
		scale = 1
	}
	zero, _ := CardFloat(hdr, "BZERO")
	if scale != 1 || zero != 0 {
		for i := range values {
			values[i] = values[i]*scale + zero
		}
	}
	return axes, values, nil
}

// ParseTDIM parses a TDIMn value such as "(11,13)" into its dimensions, NAXIS1 first.
func ParseTDIM(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "()")
	if s == "" {
		return nil, fmt.Errorf("empty TDIM")
	}
	parts := strings.Split(s, ",")
	dims := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid TDIM %q: %w", s, err)
		}
		dims[i] = n
	}
	return dims, nil
}
