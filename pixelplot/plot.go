// Package pixelplot renders single frames of target pixel files and full-frame image
// backgrounds, optionally highlighting an aperture mask.
package pixelplot

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Cut selects rows [Row0, Row1) and columns [Col0, Col1) of a full-frame image.
type Cut struct {
	Row0, Row1 int
	Col0, Col1 int
}

func (c Cut) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", c.Row0, c.Row1, c.Col0, c.Col1)
}

// ParseCut parses "row0,row1,col0,col1".
func ParseCut(s string) (Cut, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(s), "()"), ",")
	if len(parts) != 4 {
		return Cut{}, fmt.Errorf("cut %q must have four comma separated bounds", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Cut{}, fmt.Errorf("cut %q: %w", s, err)
		}
		v[i] = n
	}
	return Cut{Row0: v[0], Row1: v[1], Col0: v[2], Col1: v[3]}, nil
}

func (c Cut) check(rows, cols int) error {
	if c.Row0 < 0 || c.Col0 < 0 || c.Row1 > rows || c.Col1 > cols || c.Row0 >= c.Row1 || c.Col0 >= c.Col1 {
		return &RangeError{Name: "cut", Value: c.String(), Range: fmt.Sprintf("0-(%d, %d)", rows, cols)}
	}
	return nil
}

// Option customises PlotBkg, PlotFFIBkg and PlotNew. Options that do not apply to a
// function are ignored by it.
type Option func(*options)

type options struct {
	frame        int
	cadence      *int
	mask         Mask
	maskName     string
	hasMask      bool
	showColorbar bool
	maskColor    string
	style        string
	styleLoader  StyleLoader
	cut          *Cut
	bkg          bool
	image        ImageOptions
}

func newOptions(opts []Option) *options {
	o := &options{
		showColorbar: true,
		maskColor:    "pink",
		style:        DefaultStyleName,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFrame selects the frame by zero-based index. The default is the first frame.
func WithFrame(frame int) Option {
	return func(o *options) { o.frame = frame }
}

// WithCadence selects the frame by cadence number and takes priority over WithFrame.
func WithCadence(cadence int) Option {
	return func(o *options) { o.cadence = &cadence }
}

// WithApertureMask highlights the true cells of mask.
func WithApertureMask(mask Mask) Option {
	return func(o *options) {
		o.mask, o.maskName, o.hasMask = mask, "", mask != nil
	}
}

// WithApertureMaskName highlights a mask resolved by the source, e.g. "pipeline".
func WithApertureMaskName(name string) Option {
	return func(o *options) {
		o.mask, o.maskName, o.hasMask = nil, name, true
	}
}

// WithColorbar toggles the colorbar, shown by default.
func WithColorbar(show bool) Option {
	return func(o *options) { o.showColorbar = show }
}

// WithMaskColor sets the aperture mask colour, "pink" by default.
func WithMaskColor(c string) Option {
	return func(o *options) { o.maskColor = c }
}

// WithStyle selects a built-in style name, a style sheet path or URL.
func WithStyle(style string) Option {
	return func(o *options) { o.style = style }
}

// WithStyleLoader replaces the loader used for style sheets that are not built in.
func WithStyleLoader(load StyleLoader) Option {
	return func(o *options) { o.styleLoader = load }
}

// WithCut crops a full-frame image.
func WithCut(cut Cut) Option {
	return func(o *options) { o.cut = &cut }
}

// WithBackground makes PlotNew render flux plus background instead of subtracting
// the new background model.
func WithBackground(bkg bool) Option {
	return func(o *options) { o.bkg = bkg }
}

// WithStretch selects the image stretch: linear, sqrt or log.
func WithStretch(stretch string) Option {
	return func(o *options) { o.image.Stretch = stretch }
}

// WithLimits fixes the colour limits.
func WithLimits(vmin, vmax float64) Option {
	return func(o *options) { o.image.VMin, o.image.VMax = &vmin, &vmax }
}

// WithColorMap overrides the style colour map.
func WithColorMap(name string) Option {
	return func(o *options) { o.image.ColorMap = name }
}

func (o *options) render(ax *Axes, data mat.Matrix, title string, extent Extent) (*Axes, error) {
	style, err := LoadStyle(o.style, o.styleLoader)
	if err != nil {
		return nil, err
	}
	imgOpts := o.image
	imgOpts.Title = title
	imgOpts.Extent = &extent
	imgOpts.ShowColorbar = o.showColorbar
	imgOpts.Style = style
	ax, err = PlotImage(ax, data, imgOpts)
	if err != nil {
		return nil, err
	}
	ax.Grid = false
	return ax, nil
}

func targetExtent(src TargetPixels) Extent {
	row, column := src.Origin()
	rows, cols := src.Shape()
	return Extent{
		Left:   float64(column),
		Right:  float64(column + cols),
		Bottom: float64(row),
		Top:    float64(row + rows),
	}
}

func targetTitle(src TargetPixels) string {
	return fmt.Sprintf("Target ID: %s", src.TargetID())
}

func sameShape(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

//#region PlotBkg

// PlotBkg plots the background flux of a single frame of a target pixel source.
func PlotBkg(ax *Axes, src TargetPixels, opts ...Option) (*Axes, error) {
	o := newOptions(opts)

	frame, err := ResolveFrame(src.Cadences(), o.frame, o.cadence)
	if err != nil {
		return nil, err
	}
	if err := checkFrame(frame, src.NumFrames()); err != nil {
		return nil, err
	}
	bkg := src.FluxBkg(frame)
	if !AnyFinite(bkg) {
		return nil, fmt.Errorf("background of frame %d: %w", frame, ErrNoFiniteData)
	}
	overlay, err := o.resolveMask(src)
	if err != nil {
		return nil, err
	}

	ax, err = o.render(ax, bkg, targetTitle(src), targetExtent(src))
	if err != nil {
		return nil, err
	}
	overlay.draw(ax)
	return ax, nil
}

//#endregion

//#region PlotFFIBkg

// PlotFFIBkg plots the background of a single full-frame image, optionally cropped.
func PlotFFIBkg(ax *Axes, archive BackgroundArchive, opts ...Option) (*Axes, error) {
	o := newOptions(opts)

	frame, err := ResolveFrame(archive.Cadences(), o.frame, o.cadence)
	if err != nil {
		return nil, err
	}
	key := FrameKey(frame)
	bkg, ok := archive.Background(key)
	if frame < 0 || !ok {
		return nil, frameRangeError(key, archive.NumBackgrounds(), "backgrounds")
	}
	if !AnyFinite(bkg) {
		return nil, fmt.Errorf("background %s: %w", key, ErrNoFiniteData)
	}

	rows, cols := bkg.Dims()
	data := bkg
	extent := Extent{Left: 0, Right: float64(cols), Bottom: 0, Top: float64(rows)}
	if o.cut != nil {
		c := *o.cut
		if err := c.check(rows, cols); err != nil {
			return nil, err
		}
		data = sliceMatrix(bkg, c)
		extent = Extent{
			Left:   float64(c.Col0),
			Right:  float64(c.Col1),
			Bottom: float64(c.Row0),
			Top:    float64(c.Row1),
		}
	}

	return o.render(ax, data, "FFI background", extent)
}

type slicer interface {
	Slice(i, k, j, l int) mat.Matrix
}

func sliceMatrix(m mat.Matrix, c Cut) mat.Matrix {
	if s, ok := m.(slicer); ok {
		return s.Slice(c.Row0, c.Row1, c.Col0, c.Col1)
	}
	return mat.DenseCopyOf(m).Slice(c.Row0, c.Row1, c.Col0, c.Col1)
}

//#endregion

//#region PlotNew

// PlotNew plots flux plus background minus a new background model for a single frame.
// With WithBackground(true) and a finite background the model is not subtracted.
func PlotNew(ax *Axes, src TargetPixels, newBkg []mat.Matrix, opts ...Option) (*Axes, error) {
	o := newOptions(opts)

	frame, err := ResolveFrame(src.Cadences(), o.frame, o.cadence)
	if err != nil {
		return nil, err
	}
	if err := checkFrame(frame, src.NumFrames()); err != nil {
		return nil, err
	}

	data, err := newFrame(src, newBkg, frame, o.bkg)
	if err != nil {
		return nil, err
	}
	overlay, err := o.resolveMask(src)
	if err != nil {
		return nil, err
	}

	ax, err = o.render(ax, data, targetTitle(src), targetExtent(src))
	if err != nil {
		return nil, err
	}
	overlay.draw(ax)
	return ax, nil
}

func newFrame(src TargetPixels, newBkg []mat.Matrix, frame int, bkgOnly bool) (*mat.Dense, error) {
	flux := src.Flux(frame)
	bkg := src.FluxBkg(frame)
	if flux == nil || bkg == nil {
		return nil, fmt.Errorf("target %s has no flux or background for frame %d: %w", src.TargetID(), frame, ErrNoFiniteData)
	}
	if !sameShape(flux, bkg) {
		return nil, fmt.Errorf("background of frame %d: %w", frame, ErrShapeMismatch)
	}

	var out mat.Dense
	out.Add(flux, bkg)
	if bkgOnly && AnyFinite(bkg) {
		return &out, nil
	}

	if frame >= len(newBkg) {
		return nil, frameRangeError(fmt.Sprint(frame), len(newBkg), "new background frames")
	}
	nb := newBkg[frame]
	if nb == nil || !sameShape(flux, nb) {
		return nil, fmt.Errorf("new background of frame %d: %w", frame, ErrShapeMismatch)
	}
	out.Sub(&out, nb)
	return &out, nil
}

//#endregion

//#region aperture mask

// maskOverlay is a resolved aperture mask ready to be drawn. The zero value draws nothing.
type maskOverlay struct {
	mask        Mask
	row, column int
	color       color.Color
}

func (m maskOverlay) draw(ax *Axes) {
	if m.mask != nil {
		DrawMask(ax, m.mask, m.row, m.column, m.color)
	}
}

// resolveMask resolves and checks the requested mask and colour without touching any axes.
func (o *options) resolveMask(src TargetPixels) (maskOverlay, error) {
	if !o.hasMask {
		return maskOverlay{}, nil
	}
	mask := o.mask
	if o.maskName != "" {
		var err error
		mask, err = src.ParseApertureMask(o.maskName)
		if err != nil {
			return maskOverlay{}, err
		}
	}
	rows, cols := src.Shape()
	if !mask.matches(rows, cols) {
		r, c := mask.Dims()
		return maskOverlay{}, fmt.Errorf("aperture mask is %dx%d, frame is %dx%d: %w", r, c, rows, cols, ErrShapeMismatch)
	}
	c, err := ParseColor(o.maskColor)
	if err != nil {
		return maskOverlay{}, fmt.Errorf("%w: mask colour: %v", ErrInvalidMask, err)
	}
	row, column := src.Origin()
	return maskOverlay{mask: mask, row: row, column: column, color: c}, nil
}

// DrawMask adds a filled, semi-transparent unit rectangle for every true cell of mask,
// offset by the frame origin. It returns the number of rectangles added.
func DrawMask(ax *Axes, mask Mask, row, column int, c color.Color) int {
	n := 0
	for i := range mask {
		for j := range mask[i] {
			if !mask[i][j] {
				continue
			}
			ax.AddPatch(Rectangle{
				X:      float64(j + column),
				Y:      float64(i + row),
				Width:  1,
				Height: 1,
				Color:  c,
				Fill:   true,
				Alpha:  0.6,
			})
			n++
		}
	}
	return n
}

//#endregion
