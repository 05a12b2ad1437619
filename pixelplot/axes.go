package pixelplot

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Extent is the data-space rectangle covered by an image, in matplotlib order.
type Extent struct {
	Left, Right, Bottom, Top float64
}

// Rectangle is an overlay patch in data coordinates.
type Rectangle struct {
	X, Y          float64
	Width, Height float64
	Color         color.Color
	Fill          bool
	Alpha         float64
}

// ImageLayer is the image drawn into an Axes.
type ImageLayer struct {
	// Data is the frame as passed to PlotImage.
	Data *mat.Dense
	// Normalized holds Data mapped through the colour limits and stretch onto [0, 1].
	Normalized *mat.Dense
	Extent     Extent
	VMin, VMax float64
	Stretch    string
	ColorMap   palette.ColorMap
}

// Axes collects everything drawn for one frame. The zero value is not usable, see NewAxes.
type Axes struct {
	Title         string
	XLabel        string
	YLabel        string
	Grid          bool
	Colorbar      bool
	ColorbarLabel string
	Style         *Style

	image   *ImageLayer
	patches []Rectangle
}

// NewAxes returns empty axes styled with DefaultStyle.
func NewAxes() *Axes {
	s := DefaultStyle
	return &Axes{Style: &s}
}

// Image returns the image layer, nil before anything was plotted.
func (a *Axes) Image() *ImageLayer {
	return a.image
}

// AddPatch adds an overlay rectangle.
func (a *Axes) AddPatch(r Rectangle) {
	a.patches = append(a.patches, r)
}

// Patches returns the overlay rectangles in drawing order.
func (a *Axes) Patches() []Rectangle {
	return a.patches
}

func (a *Axes) style() *Style {
	if a.Style == nil {
		s := DefaultStyle
		a.Style = &s
	}
	return a.Style
}

func mustColor(s string, fallback color.Color) color.Color {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

func applyAxisStyle(ax *plot.Axis, s *Style) {
	text := mustColor(s.TextColor, color.Black)
	edge := mustColor(s.EdgeColor, color.Black)
	ax.Label.TextStyle.Font.Size = vg.Points(s.LabelSize)
	ax.Label.TextStyle.Color = text
	ax.Tick.Label.Font.Size = vg.Points(s.FontSize)
	ax.Tick.Label.Color = text
	ax.LineStyle.Color = edge
	ax.Tick.LineStyle.Color = edge
}

// Plots builds the gonum plots for the axes and, when enabled, the colorbar.
func (a *Axes) Plots() (*plot.Plot, *plot.Plot) {
	s := a.style()

	p := plot.New()
	p.Title.Text = a.Title
	p.Title.TextStyle.Font.Size = vg.Points(s.TitleSize)
	p.Title.TextStyle.Color = mustColor(s.TextColor, color.Black)
	p.BackgroundColor = mustColor(s.FigureColor, color.White)
	p.X.Label.Text = a.XLabel
	p.Y.Label.Text = a.YLabel
	applyAxisStyle(&p.X, s)
	applyAxisStyle(&p.Y, s)

	p.Add(faceLayer{color: mustColor(s.FaceColor, color.White)})

	var cb *plot.Plot
	if img := a.image; img != nil {
		rows, cols := img.Normalized.Dims()
		pal := img.ColorMap.Palette(255).Colors()
		hm := plotter.NewHeatMap(frameGrid{m: img.Normalized, ext: img.Extent}, colorPalette(pal))
		hm.Min, hm.Max = 0, 1
		hm.Underflow = pal[0]
		hm.Overflow = pal[len(pal)-1]
		hm.NaN = color.Transparent
		hm.Rasterized = rows*cols > 64*64
		p.Add(hm)

		p.X.Min, p.X.Max = img.Extent.Left, img.Extent.Right
		p.Y.Min, p.Y.Max = img.Extent.Bottom, img.Extent.Top

		if a.Colorbar {
			cb = a.colorbar(s, img)
		}
	}

	if a.Grid {
		g := plotter.NewGrid()
		g.Vertical.Color = mustColor(s.GridColor, color.Gray{Y: 0xb0})
		g.Horizontal.Color = g.Vertical.Color
		p.Add(g)
	}
	if len(a.patches) > 0 {
		p.Add(patchLayer(a.patches))
	}
	return p, cb
}

func (a *Axes) colorbar(s *Style, img *ImageLayer) *plot.Plot {
	cb := plot.New()
	cb.BackgroundColor = mustColor(s.FigureColor, color.White)
	cb.HideX()
	cb.Y.Label.Text = a.ColorbarLabel
	applyAxisStyle(&cb.Y, s)
	cb.Y.Tick.Marker = stretchTicker{vmin: img.VMin, vmax: img.VMax, stretch: img.Stretch}

	cm := &listedColorMap{colors: img.ColorMap.Palette(255).Colors(), max: 1, alpha: 1}
	cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	return cb
}

// Draw draws the axes, and the colorbar to their right, onto dc.
func (a *Axes) Draw(dc draw.Canvas) {
	p, cb := a.Plots()
	if cb == nil {
		p.Draw(dc)
		return
	}
	w := dc.Rectangle.Size().X
	p.Draw(draw.Crop(dc, 0, -w*0.2, 0, 0))
	cb.Draw(draw.Crop(dc, w*0.82, 0, 0, 0))
}

// Render rasterises the axes. Zero sizes fall back to 6.4x4.8 inches at the style DPI.
func (a *Axes) Render(widthPx, heightPx int) image.Image {
	dpi := a.style().DPI
	if dpi <= 0 {
		dpi = 100
	}
	w := vg.Length(6.4) * vg.Inch
	h := vg.Length(4.8) * vg.Inch
	if widthPx > 0 {
		w = vg.Length(float64(widthPx)/dpi) * vg.Inch
	}
	if heightPx > 0 {
		h = vg.Length(float64(heightPx)/dpi) * vg.Inch
	}
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(int(dpi)))
	a.Draw(draw.New(c))
	return c.Image()
}

// frameGrid exposes a matrix as a heat map grid with cells spread over an extent.
// Row 0 is the bottom of the image.
type frameGrid struct {
	m   mat.Matrix
	ext Extent
}

func (g frameGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g frameGrid) Z(c, r int) float64 {
	return g.m.At(r, c)
}

func (g frameGrid) X(c int) float64 {
	_, cols := g.m.Dims()
	return g.ext.Left + (float64(c)+0.5)*(g.ext.Right-g.ext.Left)/float64(cols)
}

func (g frameGrid) Y(r int) float64 {
	rows, _ := g.m.Dims()
	return g.ext.Bottom + (float64(r)+0.5)*(g.ext.Top-g.ext.Bottom)/float64(rows)
}

type faceLayer struct {
	color color.Color
}

func (f faceLayer) Plot(c draw.Canvas, _ *plot.Plot) {
	c.FillPolygon(f.color, []vg.Point{
		c.Min,
		{X: c.Max.X, Y: c.Min.Y},
		c.Max,
		{X: c.Min.X, Y: c.Max.Y},
	})
}

type patchLayer []Rectangle

func (l patchLayer) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for _, r := range l {
		pts := []vg.Point{
			{X: trX(r.X), Y: trY(r.Y)},
			{X: trX(r.X + r.Width), Y: trY(r.Y)},
			{X: trX(r.X + r.Width), Y: trY(r.Y + r.Height)},
			{X: trX(r.X), Y: trY(r.Y + r.Height)},
		}
		col := withAlpha(r.Color, r.Alpha)
		if r.Fill {
			c.FillPolygon(col, c.ClipPolygonXY(pts))
			continue
		}
		outline := append(pts, pts[0])
		c.StrokeLines(draw.LineStyle{Color: col, Width: vg.Points(1)}, c.ClipLinesXY(outline)...)
	}
}
