// Package tpf holds target pixel files: per-target time series of pixel images.
package tpf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"tpf-render/pixelplot"
)

// Aperture bits set by the mission pipeline.
const (
	AperturePipeline   = 2
	ApertureBackground = 4
)

// TargetPixelFile is a fully loaded target pixel file.
type TargetPixelFile struct {
	Target   string
	Mission  string
	Row      int
	Column   int
	Rows     int
	Cols     int
	Cadence  []int
	Time     []float64
	Fluxes   []*mat.Dense
	FluxBkgs []*mat.Dense
	// Aperture is the pipeline aperture bit mask, indexed [row][column]; may be nil.
	Aperture [][]int32
}

// New builds a target pixel file from in-memory frames. bkg may be nil.
func New(target string, row, column int, cadences []int, flux, bkg []*mat.Dense) (*TargetPixelFile, error) {
	if len(flux) == 0 {
		return nil, fmt.Errorf("target %s has no frames", target)
	}
	if len(cadences) != len(flux) {
		return nil, fmt.Errorf("target %s has %d cadences for %d frames", target, len(cadences), len(flux))
	}
	if bkg != nil && len(bkg) != len(flux) {
		return nil, fmt.Errorf("target %s has %d background frames for %d frames", target, len(bkg), len(flux))
	}
	rows, cols := flux[0].Dims()
	for i, f := range flux {
		if r, c := f.Dims(); r != rows || c != cols {
			return nil, fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, r, c, rows, cols)
		}
	}
	return &TargetPixelFile{
		Target:   target,
		Row:      row,
		Column:   column,
		Rows:     rows,
		Cols:     cols,
		Cadence:  cadences,
		Fluxes:   flux,
		FluxBkgs: bkg,
	}, nil
}

func (t *TargetPixelFile) TargetID() string { return t.Target }

func (t *TargetPixelFile) Cadences() []int { return t.Cadence }

func (t *TargetPixelFile) NumFrames() int { return len(t.Fluxes) }

func (t *TargetPixelFile) Shape() (rows, cols int) { return t.Rows, t.Cols }

func (t *TargetPixelFile) Origin() (row, column int) { return t.Row, t.Column }

func (t *TargetPixelFile) Flux(frame int) mat.Matrix {
	if frame < 0 || frame >= len(t.Fluxes) {
		return nil
	}
	return t.Fluxes[frame]
}

func (t *TargetPixelFile) FluxBkg(frame int) mat.Matrix {
	if frame < 0 || frame >= len(t.FluxBkgs) {
		return nil
	}
	return t.FluxBkgs[frame]
}

var _ pixelplot.TargetPixels = (*TargetPixelFile)(nil)
