// Command tpfplot renders one frame of a target pixel file or FFI background archive to
// an image file.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"tpf-render/config"
	"tpf-render/encode"
	"tpf-render/ffi"
	"tpf-render/pixelplot"
	"tpf-render/storage"
	"tpf-render/tpf"
)

func main() {
	var (
		mode       = flag.String("mode", "bkg", "What to plot: bkg (TPF background), ffi (FFI background) or new (flux + bkg - new background)")
		in         = flag.String("in", "", "Source file path, http(s) URL or s3:<key>")
		newBkg     = flag.String("newbkg", "", "New background cube (FITS) for -mode new")
		frame      = flag.Int("frame", 0, "Zero-based frame index")
		cadence    = flag.Int("cadenceno", -1, "Cadence number, takes priority over -frame when set")
		mask       = flag.String("mask", "", "Aperture mask: all, pipeline, background, threshold or empty")
		maskColor  = flag.String("mask-color", "pink", "Aperture mask colour")
		noColorbar = flag.Bool("no-colorbar", false, "Hide the colorbar")
		style      = flag.String("style", "", "Built-in style name, style sheet path or URL")
		cut        = flag.String("cut", "", "FFI cut as row0,row1,col0,col1")
		stretch    = flag.String("stretch", "linear", "Image stretch: linear, sqrt or log")
		bkg        = flag.Bool("bkg", false, "For -mode new, plot flux + bkg without subtracting the new background")
		width      = flag.Int("width", 0, "Output width in pixels")
		height     = flag.Int("height", 0, "Output height in pixels")
		quality    = flag.Int("quality", 90, "WebP quality")
		out        = flag.String("out", "frame.png", "Output image; the extension selects png, webp, tiff or bmp")
		timeout    = flag.Duration("timeout", 2*time.Minute, "Timeout for fetching sources")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if *in == "" {
		logger.Fatal("in is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("parse environment", zap.Error(err))
	}
	if cfg.LocalRoot == "" {
		cfg.LocalRoot = string(filepath.Separator)
	}
	cfg.MaxUploadMB = 0

	s3, err := storage.NewS3Store(&cfg)
	if err != nil {
		logger.Fatal("create s3 store", zap.Error(err))
	}
	loader := storage.NewLoader(logger, &cfg, s3, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	load := func(ref string) ([]byte, error) {
		data, _, err := loader.Load(ctx, localRef(ref))
		return data, err
	}

	format, err := encode.FormatFromPath(*out)
	if err != nil {
		logger.Fatal("output format", zap.Error(err))
	}

	opts := []pixelplot.Option{
		pixelplot.WithFrame(*frame),
		pixelplot.WithMaskColor(*maskColor),
		pixelplot.WithColorbar(!*noColorbar),
		pixelplot.WithStyle(*style),
		pixelplot.WithStyleLoader(load),
		pixelplot.WithStretch(*stretch),
		pixelplot.WithBackground(*bkg),
	}
	if *cadence >= 0 {
		opts = append(opts, pixelplot.WithCadence(*cadence))
	}
	if *mask != "" {
		opts = append(opts, pixelplot.WithApertureMaskName(*mask))
	}
	if *cut != "" {
		c, err := pixelplot.ParseCut(*cut)
		if err != nil {
			logger.Fatal("parse cut", zap.Error(err))
		}
		opts = append(opts, pixelplot.WithCut(c))
	}

	source, err := load(*in)
	if err != nil {
		logger.Fatal("load source", zap.String("in", *in), zap.Error(err))
	}

	ax, err := plot(*mode, source, *newBkg, load, opts)
	if err != nil {
		logger.Fatal("plot", zap.String("mode", *mode), zap.Error(err))
	}

	img := ax.Render(*width, *height)

	var buf bytes.Buffer
	if err := encode.Image(&buf, img, format, *quality); err != nil {
		logger.Fatal("encode", zap.String("format", format), zap.Error(err))
	}
	if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
		logger.Fatal("write output", zap.String("out", *out), zap.Error(err))
	}

	logger.Info("frame written", zap.String("out", *out), zap.String("mode", *mode), zap.Int("bytes", buf.Len()), zap.String("title", ax.Title))
}

func plot(mode string, source []byte, newBkgRef string, load func(string) ([]byte, error), opts []pixelplot.Option) (*pixelplot.Axes, error) {
	switch mode {
	case "ffi":
		archive, err := ffi.Open(bytes.NewReader(source))
		if err != nil {
			return nil, err
		}
		return pixelplot.PlotFFIBkg(nil, archive, opts...)

	case "bkg", "new":
		target, err := tpf.Open(bytes.NewReader(source))
		if err != nil {
			return nil, err
		}
		if mode == "bkg" {
			return pixelplot.PlotBkg(nil, target, opts...)
		}

		var newBkg []mat.Matrix
		if newBkgRef != "" {
			data, err := load(newBkgRef)
			if err != nil {
				return nil, fmt.Errorf("load new background: %w", err)
			}
			cube, err := tpf.ReadCube(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("read new background: %w", err)
			}
			for _, m := range cube {
				newBkg = append(newBkg, m)
			}
		}
		return pixelplot.PlotNew(nil, target, newBkg, opts...)

	default:
		return nil, fmt.Errorf("unknown mode %q, use bkg, ffi or new", mode)
	}
}

// localRef makes plain paths absolute so they resolve below the filesystem root.
func localRef(ref string) string {
	if strings.HasPrefix(ref, storage.S3Scheme) || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if abs, err := filepath.Abs(ref); err == nil {
		return abs
	}
	return ref
}
