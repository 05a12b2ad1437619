package tpf

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"

	"tpf-render/fitsdata"
)

const (
	pixelsHDU   = "PIXELS"
	apertureHDU = "APERTURE"
)

var targetKeys = []string{"OBJECT", "TICID", "KEPLERID"}

// Open reads a mission target pixel file: the PIXELS binary table holding one row per
// cadence and, when present, the APERTURE image.
func Open(r io.Reader) (*TargetPixelFile, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open target pixel file: %w", err)
	}
	defer f.Close()

	if len(f.HDUs()) == 0 {
		return nil, errors.New("target pixel file has no HDU")
	}
	primary := f.HDU(0)
	target := "unknown"
	for _, key := range targetKeys {
		if v, ok := fitsdata.CardString(primary.Header(), key); ok && v != "" {
			target = v
			break
		}
	}
	mission, _ := fitsdata.CardString(primary.Header(), "TELESCOP")

	hdu := fitsdata.FindHDU(f, pixelsHDU)
	tbl, ok := hdu.(*fitsio.Table)
	if !ok {
		return nil, errors.New("target pixel file has no PIXELS table")
	}

	fluxCol := tbl.Index("FLUX")
	if fluxCol < 0 {
		return nil, errors.New("PIXELS table has no FLUX column")
	}
	tdim, _ := fitsdata.CardString(tbl.Header(), fmt.Sprintf("TDIM%d", fluxCol+1))
	dims, err := fitsdata.ParseTDIM(tdim)
	if err != nil || len(dims) != 2 {
		return nil, fmt.Errorf("FLUX column has no usable TDIM %q", tdim)
	}
	cols, rows := dims[0], dims[1]
	hasBkg := tbl.Index("FLUX_BKG") >= 0
	hasTime := tbl.Index("TIME") >= 0

	// iCRVnP holds the physical coordinate of the first pixel along image axis i.
	column, _ := fitsdata.CardInt(tbl.Header(), fmt.Sprintf("1CRV%dP", fluxCol+1))
	row, _ := fitsdata.CardInt(tbl.Header(), fmt.Sprintf("2CRV%dP", fluxCol+1))

	t := &TargetPixelFile{
		Target:  target,
		Mission: mission,
		Row:     row,
		Column:  column,
		Rows:    rows,
		Cols:    cols,
	}

	it, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("read PIXELS table: %w", err)
	}
	defer it.Close()

	for it.Next() {
		data := map[string]interface{}{}
		if err := it.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan PIXELS row %d: %w", len(t.Cadence), err)
		}

		cadence, err := fitsdata.Floats(data["CADENCENO"])
		if err != nil || len(cadence) != 1 {
			return nil, fmt.Errorf("PIXELS row %d has no cadence number", len(t.Cadence))
		}
		flux, err := frameFromCell(data["FLUX"], rows, cols)
		if err != nil {
			return nil, fmt.Errorf("FLUX of row %d: %w", len(t.Cadence), err)
		}
		t.Cadence = append(t.Cadence, int(cadence[0]))
		t.Fluxes = append(t.Fluxes, flux)

		if hasBkg {
			bkg, err := frameFromCell(data["FLUX_BKG"], rows, cols)
			if err != nil {
				return nil, fmt.Errorf("FLUX_BKG of row %d: %w", len(t.Cadence)-1, err)
			}
			t.FluxBkgs = append(t.FluxBkgs, bkg)
		}
		if hasTime {
			tm, err := fitsdata.Floats(data["TIME"])
			if err != nil || len(tm) != 1 {
				tm = []float64{math.NaN()}
			}
			t.Time = append(t.Time, tm[0])
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("read PIXELS table: %w", err)
	}
	if len(t.Fluxes) == 0 {
		return nil, fmt.Errorf("target %s has no frames", target)
	}

	if img, ok := fitsdata.FindHDU(f, apertureHDU).(fitsio.Image); ok {
		axes, values, err := fitsdata.ReadImage(img)
		if err != nil {
			return nil, fmt.Errorf("read APERTURE image: %w", err)
		}
		if len(axes) == 2 && axes[0] == cols && axes[1] == rows {
			t.Aperture = make([][]int32, rows)
			for i := range t.Aperture {
				t.Aperture[i] = make([]int32, cols)
				for j := range t.Aperture[i] {
					t.Aperture[i][j] = int32(values[i*cols+j])
				}
			}
		}
	}
	return t, nil
}

func frameFromCell(v interface{}, rows, cols int) (*mat.Dense, error) {
	values, err := fitsdata.Floats(v)
	if err != nil {
		return nil, err
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("cell holds %d values, expected %dx%d", len(values), rows, cols)
	}
	return mat.NewDense(rows, cols, values), nil
}

// ReadCube reads a FITS image cube of shape (frames, rows, cols) from the first image HDU
// with data. A two dimensional image is returned as a single frame.
func ReadCube(r io.Reader) ([]*mat.Dense, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("open image cube: %w", err)
	}
	defer f.Close()

	for _, hdu := range f.HDUs() {
		img, ok := hdu.(fitsio.Image)
		if !ok || len(img.Header().Axes()) < 2 {
			continue
		}
		axes, values, err := fitsdata.ReadImage(img)
		if err != nil {
			return nil, fmt.Errorf("read image cube: %w", err)
		}
		return CubeFrames(axes, values)
	}
	return nil, errors.New("no image data in FITS file")
}

// CubeFrames splits flat image values laid out NAXIS1 fastest into frames.
func CubeFrames(axes []int, values []float64) ([]*mat.Dense, error) {
	if len(axes) < 2 || len(axes) > 3 {
		return nil, fmt.Errorf("image has %d axes, expected 2 or 3", len(axes))
	}
	cols, rows, n := axes[0], axes[1], 1
	if len(axes) == 3 {
		n = axes[2]
	}
	if cols*rows*n != len(values) || cols*rows == 0 {
		return nil, fmt.Errorf("image holds %d values for axes %v", len(values), axes)
	}
	frames := make([]*mat.Dense, n)
	size := rows * cols
	for k := range frames {
		frames[k] = mat.NewDense(rows, cols, append([]float64(nil), values[k*size:(k+1)*size]...))
	}
	return frames, nil
}
