package pixelplot

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
)

const (
	StretchLinear = "linear"
	StretchSqrt   = "sqrt"
	StretchLog    = "log"
)

const (
	defaultXLabel = "Pixel Column Number"
	defaultYLabel = "Pixel Row Number"
	defaultCLabel = "Flux (e-/s)"
)

// ImageOptions configures PlotImage.
type ImageOptions struct {
	Title string
	// Extent defaults to (0, cols, 0, rows).
	Extent       *Extent
	ShowColorbar bool
	// Style defaults to DefaultStyle.
	Style *Style
	// ColorMap overrides the style colour map.
	ColorMap string
	Stretch  string
	// VMin and VMax default to the 95% percentile interval of the finite values.
	VMin, VMax *float64
	XLabel     string
	YLabel     string
	CLabel     string
}

// PlotImage draws a 2-D frame into ax, creating new axes when ax is nil. Row 0 of
// data is drawn at the bottom.
func PlotImage(ax *Axes, data mat.Matrix, opts ImageOptions) (*Axes, error) {
	if data == nil {
		return nil, errors.New("no image data")
	}
	rows, cols := data.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.New("empty image data")
	}

	style := opts.Style
	if style == nil {
		s := DefaultStyle
		style = &s
	}
	cmapName := opts.ColorMap
	if cmapName == "" {
		cmapName = style.ColorMap
	}
	cm, err := ColorMapByName(cmapName)
	if err != nil {
		return nil, err
	}

	stretch := opts.Stretch
	if stretch == "" {
		stretch = StretchLinear
	}
	if _, err := stretchFunc(stretch); err != nil {
		return nil, err
	}

	extent := Extent{Left: 0, Right: float64(cols), Bottom: 0, Top: float64(rows)}
	if opts.Extent != nil {
		extent = *opts.Extent
	}

	vmin, vmax := PercentileInterval(data, 95)
	if opts.VMin != nil {
		vmin = *opts.VMin
	}
	if opts.VMax != nil {
		vmax = *opts.VMax
	}
	if math.IsNaN(vmin) || math.IsNaN(vmax) {
		vmin, vmax = 0, 1
	}

	if ax == nil {
		ax = NewAxes()
	}
	ax.Style = style
	ax.Grid = style.Grid
	ax.Title = opts.Title
	ax.XLabel = firstNonEmpty(opts.XLabel, defaultXLabel)
	ax.YLabel = firstNonEmpty(opts.YLabel, defaultYLabel)
	ax.Colorbar = opts.ShowColorbar
	ax.ColorbarLabel = firstNonEmpty(opts.CLabel, defaultCLabel)
	ax.image = &ImageLayer{
		Data:       mat.DenseCopyOf(data),
		Normalized: normalize(data, vmin, vmax, stretch),
		Extent:     extent,
		VMin:       vmin,
		VMax:       vmax,
		Stretch:    stretch,
		ColorMap:   cm,
	}
	return ax, nil
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// PercentileInterval returns the limits enclosing the central percent of the finite
// values, or NaNs when there are none.
func PercentileInterval(data mat.Matrix, percent float64) (lo, hi float64) {
	rows, cols := data.Dims()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := data.At(i, j)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	sort.Float64s(values)
	tail := (1 - percent/100) / 2
	return stat.Quantile(tail, stat.LinInterp, values, nil), stat.Quantile(1-tail, stat.LinInterp, values, nil)
}

func stretchFunc(name string) (func(float64) float64, error) {
	switch name {
	case StretchLinear:
		return func(x float64) float64 { return x }, nil
	case StretchSqrt:
		return math.Sqrt, nil
	case StretchLog:
		const a = 1000.0
		return func(x float64) float64 { return math.Log(a*x+1) / math.Log(a+1) }, nil
	default:
		return nil, fmt.Errorf("unknown stretch %q", name)
	}
}

// normalize clips values to [vmin, vmax], rescales them to [0, 1] and stretches them.
// NaNs are kept.
func normalize(data mat.Matrix, vmin, vmax float64, stretch string) *mat.Dense {
	f, _ := stretchFunc(stretch)
	rows, cols := data.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return v
		}
		if vmax <= vmin {
			return 0
		}
		x := (v - vmin) / (vmax - vmin)
		x = math.Max(0, math.Min(1, x))
		return f(x)
	}, data)
	return out
}

// stretchTicker labels a [0, 1] stretched colorbar in data units.
type stretchTicker struct {
	vmin, vmax float64
	stretch    string
}

func (t stretchTicker) Ticks(_, _ float64) []plot.Tick {
	f, err := stretchFunc(t.stretch)
	if err != nil || t.vmax <= t.vmin {
		return plot.DefaultTicks{}.Ticks(0, 1)
	}
	var ticks []plot.Tick
	for _, tick := range (plot.DefaultTicks{}).Ticks(t.vmin, t.vmax) {
		pos := f((tick.Value - t.vmin) / (t.vmax - t.vmin))
		if math.IsNaN(pos) || pos < 0 || pos > 1 {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: pos, Label: tick.Label})
	}
	return ticks
}
