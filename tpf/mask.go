package tpf

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"tpf-render/pixelplot"
)

// DefaultThreshold is the number of standard deviations above the median used by the
// "threshold" aperture mask.
const DefaultThreshold = 3.0

// ApertureMaskNames lists the names accepted by ParseApertureMask.
var ApertureMaskNames = []string{"all", "pipeline", "background", "threshold", "empty", "none"}

// IsApertureMaskName reports whether ParseApertureMask knows name.
func IsApertureMaskName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return true
	}
	for _, n := range ApertureMaskNames {
		if n == name {
			return true
		}
	}
	return false
}

// ParseApertureMask resolves a symbolic aperture mask name. Unknown names and masks the
// file cannot provide fail with pixelplot.ErrInvalidMask.
//
//	all         every pixel
//	pipeline    pixels the pipeline used for photometry
//	background  pixels the pipeline used for background estimation
//	threshold   ThresholdMask(DefaultThreshold)
//	empty, none no pixel
func (t *TargetPixelFile) ParseApertureMask(name string) (pixelplot.Mask, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "all":
		return pixelplot.FullMask(t.Rows, t.Cols), nil
	case "pipeline":
		return t.apertureBits(AperturePipeline)
	case "background":
		return t.apertureBits(ApertureBackground)
	case "threshold":
		return t.ThresholdMask(DefaultThreshold), nil
	case "empty", "none", "":
		return pixelplot.NewMask(t.Rows, t.Cols), nil
	default:
		return nil, fmt.Errorf("%w: unknown name %q, use all, pipeline, background, threshold or empty", pixelplot.ErrInvalidMask, name)
	}
}

func (t *TargetPixelFile) apertureBits(bit int32) (pixelplot.Mask, error) {
	if t.Aperture == nil {
		return nil, fmt.Errorf("%w: target %s has no pipeline aperture", pixelplot.ErrInvalidMask, t.Target)
	}
	m := pixelplot.NewMask(t.Rows, t.Cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] = t.Aperture[i][j]&bit != 0
		}
	}
	return m, nil
}

// MedianImage returns the per-pixel median of the finite flux values over all frames.
func (t *TargetPixelFile) MedianImage() [][]float64 {
	img := make([][]float64, t.Rows)
	values := make([]float64, 0, len(t.Fluxes))
	for i := 0; i < t.Rows; i++ {
		img[i] = make([]float64, t.Cols)
		for j := 0; j < t.Cols; j++ {
			values = values[:0]
			for _, f := range t.Fluxes {
				if v := f.At(i, j); !math.IsNaN(v) && !math.IsInf(v, 0) {
					values = append(values, v)
				}
			}
			img[i][j] = median(values)
		}
	}
	return img
}

// ThresholdMask selects pixels whose median flux is at least threshold standard deviations
// above the image median, NaN pixels counting as zero, the deviation estimated from the median absolute
// deviation. Only the contiguous region closest to the centre of the frame is kept.
func (t *TargetPixelFile) ThresholdMask(threshold float64) pixelplot.Mask {
	img := t.MedianImage()

	finite := make([]float64, 0, t.Rows*t.Cols)
	for _, row := range img {
		for _, v := range row {
			if !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
	}
	med := median(finite)
	dev := make([]float64, len(finite))
	for i, v := range finite {
		dev[i] = math.Abs(v - med)
	}
	std := 1.4826 * median(dev)

	cut := med + threshold*std
	above := pixelplot.NewMask(t.Rows, t.Cols)
	for i, row := range img {
		for j, v := range row {
			if math.IsNaN(v) {
				v = 0
			}
			above[i][j] = v >= cut
		}
	}
	return closestRegion(above)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// closestRegion labels 4-connected regions of m and keeps the one containing the pixel
// nearest to the frame centre.
func closestRegion(m pixelplot.Mask) pixelplot.Mask {
	rows, cols := m.Dims()
	out := pixelplot.NewMask(rows, cols)
	cy, cx := float64(rows-1)/2, float64(cols-1)/2

	bestI, bestJ, bestD := -1, -1, math.Inf(1)
	for i := range m {
		for j := range m[i] {
			if !m[i][j] {
				continue
			}
			d := math.Hypot(float64(i)-cy, float64(j)-cx)
			if d < bestD {
				bestI, bestJ, bestD = i, j, d
			}
		}
	}
	if bestI < 0 {
		return out
	}

	stack := [][2]int{{bestI, bestJ}}
	out[bestI][bestJ] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			i, j := p[0]+d[0], p[1]+d[1]
			if i < 0 || j < 0 || i >= rows || j >= cols || !m[i][j] || out[i][j] {
				continue
			}
			out[i][j] = true
			stack = append(stack, [2]int{i, j})
		}
	}
	return out
}
