package pixelplot

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// TargetPixels is a per-target time series of pixel frames.
type TargetPixels interface {
	TargetID() string
	Cadences() []int
	NumFrames() int
	// Shape returns the number of pixel rows and columns of every frame.
	Shape() (rows, cols int)
	// Origin returns the detector row and column of the lower left pixel.
	Origin() (row, column int)
	Flux(frame int) mat.Matrix
	// FluxBkg returns nil when the source carries no background model.
	FluxBkg(frame int) mat.Matrix
	ParseApertureMask(name string) (Mask, error)
}

// BackgroundArchive is a hierarchical handle holding full-frame background images
// under zero-padded keys of the backgrounds group.
type BackgroundArchive interface {
	Cadences() []int
	NumBackgrounds() int
	Background(key string) (mat.Matrix, bool)
}

// Mask marks pixels to highlight, indexed [row][column].
type Mask [][]bool

// NewMask returns an all-false mask of the given shape.
func NewMask(rows, cols int) Mask {
	m := make(Mask, rows)
	for i := range m {
		m[i] = make([]bool, cols)
	}
	return m
}

// FullMask returns an all-true mask of the given shape.
func FullMask(rows, cols int) Mask {
	m := NewMask(rows, cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] = true
		}
	}
	return m
}

// Dims returns the mask shape.
func (m Mask) Dims() (rows, cols int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// Count returns the number of true cells.
func (m Mask) Count() int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

func (m Mask) matches(rows, cols int) bool {
	if len(m) != rows {
		return false
	}
	for _, row := range m {
		if len(row) != cols {
			return false
		}
	}
	return true
}

// AnyFinite reports whether the matrix holds at least one finite value.
func AnyFinite(m mat.Matrix) bool {
	if m == nil {
		return false
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
