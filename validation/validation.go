package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"tpf-render/config"
	"tpf-render/mime"
	"tpf-render/pixelplot"
	"tpf-render/pool"
	"tpf-render/storage"
	"tpf-render/tpf"

	"github.com/gofiber/fiber/v2"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

type RenderContext struct {
	Ref       string
	NewBkgRef string
	StyleRef  string

	Frame     int
	Cadence   *int
	Mask      string
	MaskColor string
	Colorbar  bool
	Stretch   string
	VMin      *float64
	VMax      *float64
	Cut       *pixelplot.Cut
	Bkg       bool

	Quality int

	Width  int
	Height int

	Scale         float64
	Interpolation resize.InterpolationFunction

	Format string

	Hostname string

	// Optional explicit S3 object key for an uploaded source (requires signature)
	CustomObjectKey string
}

func (c *RenderContext) String() string {
	return fmt.Sprintf("frame=%d;cadence=%v;mask=%s;colorbar=%t;style=%s;stretch=%s;cut=%v;bkg=%t;quality=%d;width=%d;height=%d;scale=%f;format=%s",
		c.Frame, c.Cadence, c.Mask, c.Colorbar, c.StyleRef, c.Stretch, c.Cut, c.Bkg, c.Quality, c.Width, c.Height, c.Scale, c.Format)
}

// Options converts the frame selection and styling parameters into plot options.
func (c *RenderContext) Options() []pixelplot.Option {
	opts := []pixelplot.Option{
		pixelplot.WithFrame(c.Frame),
		pixelplot.WithColorbar(c.Colorbar),
		pixelplot.WithBackground(c.Bkg),
	}
	if c.Cadence != nil {
		opts = append(opts, pixelplot.WithCadence(*c.Cadence))
	}
	if c.Mask != "" {
		opts = append(opts, pixelplot.WithApertureMaskName(c.Mask))
	}
	if c.MaskColor != "" {
		opts = append(opts, pixelplot.WithMaskColor(c.MaskColor))
	}
	if c.StyleRef != "" {
		opts = append(opts, pixelplot.WithStyle(c.StyleRef))
	}
	if c.Stretch != "" {
		opts = append(opts, pixelplot.WithStretch(c.Stretch))
	}
	if c.VMin != nil && c.VMax != nil {
		opts = append(opts, pixelplot.WithLimits(*c.VMin, *c.VMax))
	}
	if c.Cut != nil {
		opts = append(opts, pixelplot.WithCut(*c.Cut))
	}
	return opts
}

// PathParams holds the parsed parameters from the URL path
type PathParams struct {
	Frame     int
	Cadence   *int
	Mask      string
	MaskColor string
	Colorbar  bool
	Style     string
	StyleURL  string
	Stretch   string
	VMin      *float64
	VMax      *float64
	Cut       *pixelplot.Cut
	Bkg       bool
	NewBkg    string

	Quality       int
	Width         int
	Height        int
	Scale         float64
	Interpolation resize.InterpolationFunction
	Webp          bool
	Format        string
	Signature     string
	Token         string
	EncodedRef    string
	Location      string
}

// ParsePathParams extracts parameters from the URL path
// Expected format: /tpf/background/f:3/m:pipeline/cb:0/sc:log/w:800/webp/sig:abc123/{base64-ref}
// Or for uploads: /tpf/background/loc:base64location/c:1234/sig:abc123
func ParsePathParams(pathParams string) (*PathParams, error) {
	params := &PathParams{
		Colorbar:      true,
		Quality:       100,
		Interpolation: resize.Lanczos3,
	}

	parts := strings.Split(strings.Trim(pathParams, "/"), "/")
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return nil, fmt.Errorf("no path parameters found")
	}

	// The last part is the encoded reference unless it looks like a parameter.
	// A parameter either contains ":" or is exactly "webp"
	processParts := parts
	lastPart := parts[len(parts)-1]
	if !strings.Contains(lastPart, ":") && lastPart != "webp" {
		params.EncodedRef = lastPart
		processParts = parts[:len(parts)-1]
	}

	for _, part := range processParts {
		if part == "webp" {
			params.Webp = true
			continue
		}

		key, value, found := strings.Cut(part, ":")
		if !found {
			continue // Skip malformed parameters
		}

		switch key {
		case "f", "frame":
			f, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid frame %q", value)
			}
			params.Frame = f
		case "c", "cadence":
			c, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid cadence %q", value)
			}
			params.Cadence = &c
		case "m", "mask":
			params.Mask = value
		case "mc", "maskColor":
			params.MaskColor = value
		case "cb", "colorbar":
			if b, err := strconv.ParseBool(value); err == nil {
				params.Colorbar = b
			}
		case "st", "style":
			params.Style = value
		case "stu", "styleUrl":
			params.StyleURL = value
		case "sc", "stretch":
			params.Stretch = value
		case "vmin":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid vmin %q", value)
			}
			params.VMin = &v
		case "vmax":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid vmax %q", value)
			}
			params.VMax = &v
		case "cut":
			c, err := pixelplot.ParseCut(value)
			if err != nil {
				return nil, err
			}
			params.Cut = &c
		case "bkg":
			if b, err := strconv.ParseBool(value); err == nil {
				params.Bkg = b
			}
		case "nb", "newBkg":
			params.NewBkg = value
		case "q", "quality":
			if q, err := strconv.Atoi(value); err == nil && q >= 1 && q <= 100 {
				params.Quality = q
			}
		case "w", "width":
			if w, err := strconv.Atoi(value); err == nil && w > 0 {
				params.Width = w
			}
		case "h", "height":
			if h, err := strconv.Atoi(value); err == nil && h > 0 {
				params.Height = h
			}
		case "s", "scale":
			if s, err := strconv.ParseFloat(value, 64); err == nil && s > 0 && s <= 1 {
				params.Scale = s
			}
		case "i", "interpolation":
			if i, err := strconv.Atoi(value); err == nil && i >= 0 && i <= 5 {
				params.Interpolation = resize.InterpolationFunction(i)
			}
		case "fmt", "format":
			params.Format = strings.ToLower(value)
		case "sig", "signature":
			params.Signature = value
		case "t", "token":
			params.Token = value
		case "loc", "location":
			params.Location = value
		}
	}

	return params, nil
}

// DecodeBase64URL decodes a base64 URL-safe encoded string, padded or not
func DecodeBase64URL(encoded string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return string(decoded), nil
}

// compareHmacForMessage validates HMAC for an arbitrary message
func compareHmacForMessage(message, providedSignature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expectedMAC := mac.Sum(nil)

	// Decode provided signature (hex to bytes)
	providedMAC, err := hex.DecodeString(providedSignature)
	if err != nil {
		return false
	}

	// Use constant-time comparison
	return hmac.Equal(expectedMAC, providedMAC)
}

// sanitizeLocation ensures an S3 object key or local path is in an acceptable format
func sanitizeLocation(loc string) (string, error) {
	if len(loc) == 0 || len(loc) > 512 {
		return "", fmt.Errorf("invalid location length")
	}
	// Disallow parent traversal and backslashes
	if strings.Contains(loc, "..") || strings.Contains(loc, "\\") {
		return "", fmt.Errorf("invalid location characters")
	}
	// Only allow a conservative charset
	for _, r := range loc {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '/' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", fmt.Errorf("invalid character in location")
	}
	// Trim leading slash to keep it relative to prefix
	loc = strings.TrimLeft(loc, "/")
	return loc, nil
}

// checkRef validates a decoded source reference and returns it in canonical form with
// the host it will be fetched from.
func checkRef(logger *zap.Logger, ref string, config *config.Config) (string, string, int, error) {
	switch {
	case strings.HasPrefix(ref, storage.S3Scheme):
		key, err := sanitizeLocation(strings.TrimPrefix(ref, storage.S3Scheme))
		if err != nil {
			return "", "", fiber.StatusBadRequest, err
		}
		return storage.S3Scheme + key, "s3", fiber.StatusOK, nil

	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		validOrigin, hostname := pool.ValidateUrl(logger, ref, config.AllowedOrigins)
		if !validOrigin {
			return "", "", fiber.StatusForbidden, fmt.Errorf("url is not allowed")
		}
		return ref, hostname, fiber.StatusOK, nil

	default:
		if config.LocalRoot == "" {
			return "", "", fiber.StatusForbidden, fmt.Errorf("local sources are not allowed")
		}
		path, err := sanitizeLocation(ref)
		if err != nil {
			return "", "", fiber.StatusBadRequest, err
		}
		return path, "local", fiber.StatusOK, nil
	}
}

func decodeRef(logger *zap.Logger, encoded, name string, config *config.Config) (string, string, int, error) {
	decoded, err := DecodeBase64URL(encoded)
	if err != nil {
		return "", "", fiber.StatusBadRequest, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return checkRef(logger, decoded, config)
}

func renderContext(logger *zap.Logger, params *PathParams, config *config.Config) (bool, int, *RenderContext, error) {
	ctx := &RenderContext{
		Frame:         params.Frame,
		Cadence:       params.Cadence,
		Mask:          params.Mask,
		MaskColor:     params.MaskColor,
		Colorbar:      params.Colorbar,
		Stretch:       params.Stretch,
		VMin:          params.VMin,
		VMax:          params.VMax,
		Cut:           params.Cut,
		Bkg:           params.Bkg,
		Quality:       params.Quality,
		Width:         params.Width,
		Height:        params.Height,
		Scale:         params.Scale,
		Interpolation: params.Interpolation,
	}

	if (params.VMin == nil) != (params.VMax == nil) {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("vmin and vmax must be given together")
	}
	if params.VMin != nil && *params.VMin >= *params.VMax {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("vmin must be less than vmax")
	}

	switch params.Stretch {
	case "", pixelplot.StretchLinear, pixelplot.StretchSqrt, pixelplot.StretchLog:
	default:
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("stretch must be linear, sqrt or log")
	}

	if !tpf.IsApertureMaskName(params.Mask) {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("mask must be one of %s", strings.Join(tpf.ApertureMaskNames, ", "))
	}

	if params.MaskColor != "" {
		if _, err := pixelplot.ParseColor(params.MaskColor); err != nil {
			return false, fiber.StatusBadRequest, nil, err
		}
	}

	switch {
	case params.StyleURL != "":
		ref, _, status, err := decodeRef(logger, params.StyleURL, "style url", config)
		if err != nil {
			return false, status, nil, err
		}
		ctx.StyleRef = ref
	case params.Style != "":
		if !slices.Contains(pixelplot.StyleNames(), params.Style) {
			return false, fiber.StatusBadRequest, nil, fmt.Errorf("unknown style %q", params.Style)
		}
		ctx.StyleRef = params.Style
	default:
		ctx.StyleRef = config.DefaultStyle
	}

	format := params.Format
	if params.Webp {
		format = mime.FormatWebp
	}
	if format == "" {
		format = mime.FormatPNG
		// Apply default webp setting if not specified
		if config.Webp {
			format = mime.FormatWebp
		}
	}
	if _, ok := mime.OutputMime(format); !ok {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("format must be png, webp, tiff or bmp")
	}
	ctx.Format = format

	if params.Quality < 1 || params.Quality > 100 {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("quality must be between 1 and 100")
	}

	if params.Scale < 0 || params.Scale > 1 {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("scale must be between 0 and 1")
	}

	return true, fiber.StatusOK, ctx, nil
}

// ProcessRenderContextFromPath processes a render request from path parameters.
// When an HMAC key is configured the signature covers the source reference, joined
// with "|" and the new background reference when one is given.
func ProcessRenderContextFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *RenderContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	if params.EncodedRef == "" {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("source reference is required")
	}
	ref, hostname, status, err := decodeRef(logger, params.EncodedRef, "source reference", config)
	if err != nil {
		return false, status, nil, err
	}

	newBkgRef := ""
	if params.NewBkg != "" {
		newBkgRef, _, status, err = decodeRef(logger, params.NewBkg, "new background reference", config)
		if err != nil {
			return false, status, nil, err
		}
	}

	if config.HmacKey != "" {
		if params.Signature == "" {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("signature is required")
		}
		signedMsg := ref
		if newBkgRef != "" {
			signedMsg = ref + "|" + newBkgRef
		}
		if !compareHmacForMessage(signedMsg, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature")
		}
	} else if params.Signature != "" {
		return false, fiber.StatusForbidden, nil, fmt.Errorf("hmac key is not set")
	}

	ok, status, ctx, err := renderContext(logger, params, config)
	if !ok {
		return ok, status, ctx, err
	}
	ctx.Ref = ref
	ctx.NewBkgRef = newBkgRef
	ctx.Hostname = hostname
	return true, fiber.StatusOK, ctx, nil
}

// ProcessUploadFromPath processes upload parameters from path
// Validation: Either validate token OR if location and signature provided, validate signature
func ProcessUploadFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *RenderContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	var customObjectKey string
	if params.Location != "" && params.Signature != "" {
		// Signature validation mode for S3 storage of the upload
		if config.HmacKey == "" {
			return false, fiber.StatusInternalServerError, nil, fmt.Errorf("hmac key not configured")
		}

		decodedLocation, err := DecodeBase64URL(params.Location)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid location encoding: %w", err)
		}

		sanitized, err := sanitizeLocation(decodedLocation)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid location: %w", err)
		}

		// Validate signature: HMAC(location)
		if !compareHmacForMessage(sanitized, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature")
		}

		customObjectKey = sanitized
	} else {
		// Token validation mode (default)
		if config.Token == "" || params.Token != config.Token {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid token")
		}
	}

	ok, status, ctx, err := renderContext(logger, params, config)
	if !ok {
		return ok, status, ctx, err
	}
	ctx.CustomObjectKey = customObjectKey
	return true, fiber.StatusOK, ctx, nil
}

// ValidateFileSize checks if the file size is within acceptable limits
func ValidateFileSize(size int64, maxSizeMB int) error {
	if maxSizeMB <= 0 {
		return nil // No limit set
	}

	maxSizeBytes := int64(maxSizeMB) * 1024 * 1024
	if size > maxSizeBytes {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d MB", size, maxSizeMB)
	}

	return nil
}
