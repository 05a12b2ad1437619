package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"tpf-render/config"
	"tpf-render/encode"
	"tpf-render/ffi"
	"tpf-render/metrics"
	"tpf-render/mime"
	"tpf-render/pixelplot"
	"tpf-render/pool"
	"tpf-render/storage"
	"tpf-render/tpf"
	"tpf-render/validation"
)

const (
	kindTPFBackground = "tpf_background"
	kindTPFCorrected  = "tpf_corrected"
	kindFFIBackground = "ffi_background"
)

// sources holds the decoded inputs of one render.
type sources struct {
	target  *tpf.TargetPixelFile
	archive *ffi.Archive
	newBkg  []mat.Matrix
}

// errorStatus maps render and storage errors to a status code and a metrics reason.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pixelplot.ErrOutOfBounds):
		return fiber.StatusBadRequest, "out_of_bounds"
	case errors.Is(err, pixelplot.ErrNoFiniteData):
		return fiber.StatusBadRequest, "no_finite_data"
	case errors.Is(err, pixelplot.ErrShapeMismatch):
		return fiber.StatusBadRequest, "shape_mismatch"
	case errors.Is(err, pixelplot.ErrInvalidMask):
		return fiber.StatusBadRequest, "invalid_mask"
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, storage.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, storage.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "unavailable"
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}

func fail(c *fiber.Ctx, counters *metrics.Metrics, kind string, status int, reason, message string) error {
	counters.RenderFailures.WithLabelValues(kind, reason).Inc()
	return c.Status(status).SendString(message)
}

func observeRequest(c *fiber.Ctx, performance *metrics.PerformanceMetrics, kind string, start time.Time) {
	if performance == nil {
		return
	}
	status := strconv.Itoa(c.Response().StatusCode())
	performance.RequestDuration.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
}

//#region decodeSources

// decodeSources parses the FITS inputs a render kind needs.
func decodeSources(kind string, data, newBkgData []byte) (*sources, error) {
	s := &sources{}
	var err error
	switch kind {
	case kindFFIBackground:
		s.archive, err = ffi.Open(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}

	case kindTPFBackground, kindTPFCorrected:
		s.target, err = tpf.Open(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if newBkgData != nil {
			cube, err := tpf.ReadCube(bytes.NewReader(newBkgData))
			if err != nil {
				return nil, fmt.Errorf("new background: %w", err)
			}
			s.newBkg = make([]mat.Matrix, len(cube))
			for i, m := range cube {
				s.newBkg[i] = m
			}
		}

	default:
		return nil, fmt.Errorf("unknown render kind %q", kind)
	}
	return s, nil
}

//#endregion

//#region renderFrame

// renderFrame plots the requested frame and rasterises it.
func renderFrame(kind string, s *sources, params *validation.RenderContext, styleLoader pixelplot.StyleLoader, config *config.Config) (image.Image, error) {
	opts := append(params.Options(), pixelplot.WithStyleLoader(styleLoader))

	var ax *pixelplot.Axes
	var err error
	switch kind {
	case kindTPFBackground:
		ax, err = pixelplot.PlotBkg(nil, s.target, opts...)
	case kindTPFCorrected:
		ax, err = pixelplot.PlotNew(nil, s.target, s.newBkg, opts...)
	case kindFFIBackground:
		ax, err = pixelplot.PlotFFIBkg(nil, s.archive, opts...)
	default:
		err = fmt.Errorf("unknown render kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	return ax.Render(config.RenderWidth, config.RenderHeight), nil
}

//#endregion

//#region sendImage

// sendImage resizes and encodes img and writes it to the response.
func sendImage(c *fiber.Ctx, logger *zap.Logger, config *config.Config, counters *metrics.Metrics, performance *metrics.PerformanceMetrics, kind string, params *validation.RenderContext, img image.Image) error {
	if params.Width > 0 || params.Height > 0 {
		img = encode.Resize(img, params.Width, params.Height, params.Interpolation)
	}

	if params.Scale > 0 {
		img = encode.Rescale(img, params.Scale, params.Interpolation)
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	_, err := metrics.TimeFunction(func() (struct{}, error) {
		return struct{}{}, encode.Image(buf, img, params.Format, params.Quality)
	}, "encode_"+params.Format, performance)
	if err != nil {
		logger.Error("failed to encode image", zap.Error(err), zap.String("format", params.Format), zap.Int("quality", params.Quality), zap.String("ref", params.Ref))
		return fail(c, counters, kind, fiber.StatusInternalServerError, "encode", "failed to encode image")
	}

	contentType, _ := mime.OutputMime(params.Format)
	c.Set("Content-Type", contentType)
	c.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", config.HTTPCacheTTL))

	if performance != nil {
		performance.ImageSizeBytes.WithLabelValues(params.Format).Observe(float64(buf.Len()))
	}
	counters.SuccessfullyServed.WithLabelValues(kind, metrics.CleanHostname(params.Hostname), metrics.HashRef(params.Ref)).Inc()

	logger.Info("frame served successfully", zap.String("kind", kind), zap.String("content_type", contentType), zap.String("origin", params.Hostname), zap.String("ref", params.Ref), zap.String("params", params.String()))

	// the buffer returns to the pool before fiber writes the body
	return c.Send(bytes.Clone(buf.Bytes()))
}

//#endregion

//#region processRender

// processRender decodes the fetched sources, plots the frame and sends the image
func processRender(c *fiber.Ctx, logger *zap.Logger, config *config.Config, counters *metrics.Metrics, performance *metrics.PerformanceMetrics, loader *storage.Loader, kind string, params *validation.RenderContext, data, newBkgData []byte) error {
	s, err := metrics.TimeFunction(func() (*sources, error) {
		return decodeSources(kind, data, newBkgData)
	}, "decode", performance)
	if err != nil {
		logger.Error("failed to decode source", zap.Error(err), zap.String("kind", kind), zap.String("ref", params.Ref), zap.Int("source_size", len(data)))
		return fail(c, counters, kind, fiber.StatusUnprocessableEntity, "decode", "failed to read source: "+err.Error())
	}

	ctx := c.UserContext()
	styleLoader := func(ref string) ([]byte, error) {
		body, _, err := loader.Load(ctx, ref)
		return body, err
	}

	img, err := metrics.TimeFunction(func() (image.Image, error) {
		return renderFrame(kind, s, params, styleLoader, config)
	}, "plot_"+kind, performance)
	if err != nil {
		status, reason := errorStatus(err)
		logger.Error("failed to render frame", zap.Error(err), zap.String("kind", kind), zap.String("ref", params.Ref), zap.String("params", params.String()))
		return fail(c, counters, kind, status, reason, err.Error())
	}

	return sendImage(c, logger, config, counters, performance, kind, params, img)
}

//#endregion

// loadSource fetches ref and records its size.
func loadSource(ctx context.Context, loader *storage.Loader, performance *metrics.PerformanceMetrics, ref, kind string) ([]byte, error) {
	data, _, err := loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if performance != nil {
		performance.SourceSizeBytes.WithLabelValues(kind).Observe(float64(len(data)))
	}
	return data, nil
}
