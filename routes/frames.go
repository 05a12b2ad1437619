package routes

import (
	"context"
	"fmt"
	"io"
	stdmime "mime"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"tpf-render/config"
	"tpf-render/metrics"
	"tpf-render/mime"
	"tpf-render/storage"
	"tpf-render/validation"
)

const fitsContentType = "application/fits"

// RegisterFrameRoutes sets up the frame rendering routes
func RegisterFrameRoutes(logger *zap.Logger, config *config.Config, app *fiber.App, counters *metrics.Metrics, performance *metrics.PerformanceMetrics, loader *storage.Loader, s3 *storage.S3Store) {
	// Path-based routes: /tpf/background/f:3/m:pipeline/w:800/webp/{base64-encoded-ref}
	app.Get("/tpf/background/*", handleRenderRequest(logger, config, counters, performance, loader, kindTPFBackground))
	app.Get("/tpf/corrected/*", handleRenderRequest(logger, config, counters, performance, loader, kindTPFCorrected))
	app.Get("/ffi/background/*", handleRenderRequest(logger, config, counters, performance, loader, kindFFIBackground))

	// Upload routes with path parameters, the source comes as a multipart file
	app.Post("/tpf/background/*", handleRenderUpload(logger, config, counters, performance, loader, s3, kindTPFBackground, "tpf"))
	app.Post("/ffi/background/*", handleRenderUpload(logger, config, counters, performance, loader, s3, kindFFIBackground, "ffi"))
}

//#region handleRenderRequest

// handleRenderRequest processes render requests for sources named by reference
func handleRenderRequest(logger *zap.Logger, config *config.Config, counters *metrics.Metrics, performance *metrics.PerformanceMetrics, loader *storage.Loader, kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		defer observeRequest(c, performance, kind, start)

		pathParams := c.Params("*")
		logger.Info("render request received", zap.String("kind", kind), zap.String("pathParams", pathParams), zap.String("method", c.Method()), zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessRenderContextFromPath(logger, pathParams, config)
		if !ok {
			logger.Error("failed to process render context from path", zap.String("pathParams", pathParams), zap.Int("status", status), zap.Error(err))
			return fail(c, counters, kind, status, "validation", err.Error())
		}

		if kind == kindTPFCorrected && params.NewBkgRef == "" && !params.Bkg {
			return fail(c, counters, kind, fiber.StatusBadRequest, "validation", "new background reference (nb) is required")
		}

		logger.Debug("processed render parameters", zap.String("params", params.String()), zap.String("ref", params.Ref), zap.String("hostname", params.Hostname))

		ctx := c.UserContext()
		data, err := loadSource(ctx, loader, performance, params.Ref, kind)
		if err != nil {
			return sourceFailure(c, logger, counters, kind, params.Ref, err)
		}

		var newBkgData []byte
		if params.NewBkgRef != "" {
			newBkgData, err = loadSource(ctx, loader, performance, params.NewBkgRef, "new_background")
			if err != nil {
				return sourceFailure(c, logger, counters, kind, params.NewBkgRef, err)
			}
		}

		return processRender(c, logger, config, counters, performance, loader, kind, params, data, newBkgData)
	}
}

func sourceFailure(c *fiber.Ctx, logger *zap.Logger, counters *metrics.Metrics, kind, ref string, err error) error {
	status, reason := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		status, reason = fiber.StatusBadGateway, "fetch"
	}
	logger.Error("failed to fetch source", zap.Error(err), zap.String("kind", kind), zap.String("ref", ref), zap.Int("status", status))
	return fail(c, counters, kind, status, reason, fmt.Sprintf("failed to fetch source: %v", err))
}

//#endregion

//#region handleRenderUpload

// handleRenderUpload renders an uploaded source file
// Requires: token (in path parameters), optional location and signature to keep the upload in S3
func handleRenderUpload(logger *zap.Logger, config *config.Config, counters *metrics.Metrics, performance *metrics.PerformanceMetrics, loader *storage.Loader, s3 *storage.S3Store, kind, field string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		defer observeRequest(c, performance, kind, start)

		logger.Info("render upload request received", zap.String("kind", kind), zap.String("remote_ip", c.IP()))

		pathParams := c.Params("*")
		ok, status, params, err := validation.ProcessUploadFromPath(logger, pathParams, config)
		if !ok {
			return fail(c, counters, kind, status, "validation", err.Error())
		}

		// Check if S3 is required and enabled (when CustomObjectKey is provided)
		if params.CustomObjectKey != "" && (s3 == nil || !s3.Enabled || s3.Client == nil) {
			logger.Error("S3 storage is not enabled or configured")
			return fail(c, counters, kind, fiber.StatusServiceUnavailable, "unavailable", "upload storage unavailable")
		}

		body, err := c.FormFile(field)
		if err != nil {
			return fail(c, counters, kind, fiber.StatusBadRequest, "validation", fmt.Sprintf("failed to get %s file", field))
		}

		if err := validation.ValidateFileSize(body.Size, config.MaxUploadMB); err != nil {
			return fail(c, counters, kind, fiber.StatusRequestEntityTooLarge, "too_large", err.Error())
		}

		contentType := body.Header.Get("Content-Type")
		if contentType != "" {
			parsedContentType, _, err := stdmime.ParseMediaType(contentType)
			if err != nil {
				return fail(c, counters, kind, fiber.StatusBadRequest, "validation", "failed to parse content type")
			}
			if !mime.IsSourceMime(parsedContentType) {
				return fail(c, counters, kind, fiber.StatusForbidden, "validation", fmt.Sprintf("content type '%s' is not allowed", parsedContentType))
			}
		}

		sourceFile, err := body.Open()
		if err != nil {
			return fail(c, counters, kind, fiber.StatusBadRequest, "validation", fmt.Sprintf("failed to open %s file", field))
		}
		defer sourceFile.Close()

		data, err := io.ReadAll(sourceFile)
		if err != nil {
			return fail(c, counters, kind, fiber.StatusInternalServerError, "internal", fmt.Sprintf("failed to read %s file", field))
		}
		if performance != nil {
			performance.SourceSizeBytes.WithLabelValues(kind).Observe(float64(len(data)))
		}

		if params.CustomObjectKey != "" {
			// keep the upload in S3 asynchronously
			go func(key string) {
				if err := s3.Put(context.Background(), key, data, fitsContentType); err != nil {
					logger.Error("failed to store uploaded source in S3", zap.Error(err), zap.String("s3_location", key))
				}
			}(params.CustomObjectKey)
			params.Ref = storage.S3Scheme + params.CustomObjectKey
		}
		params.Hostname = "upload"

		return processRender(c, logger, config, counters, performance, loader, kind, params, data, nil)
	}
}

//#endregion
