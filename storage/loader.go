// Package storage resolves source references to the bytes of FITS files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"tpf-render/client"
	"tpf-render/config"
	"tpf-render/metrics"
	"tpf-render/pool"
)

const S3Scheme = "s3:"

var (
	ErrNotFound    = errors.New("source not found")
	ErrForbidden   = errors.New("source not allowed")
	ErrUnavailable = errors.New("source storage unavailable")
	ErrTooLarge    = errors.New("source too large")
)

// Loader fetches sources named by reference: "s3:<key>", an http(s) URL or, when a
// local root is configured, a path below it.
type Loader struct {
	Logger      *zap.Logger
	Config      *config.Config
	S3          *S3Store
	Client      *http.Client
	Performance *metrics.PerformanceMetrics
}

func NewLoader(logger *zap.Logger, cfg *config.Config, s3 *S3Store, performance *metrics.PerformanceMetrics) *Loader {
	return &Loader{
		Logger:      logger,
		Config:      cfg,
		S3:          s3,
		Client:      client.GetHTTPClient(),
		Performance: performance,
	}
}

func (l *Loader) maxBytes() int64 {
	if l.Config.MaxUploadMB <= 0 {
		return 0
	}
	return int64(l.Config.MaxUploadMB) * 1024 * 1024
}

// Load returns the content of ref and the host it came from ("s3", "local" or the URL host).
func (l *Loader) Load(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, S3Scheme):
		key := strings.TrimPrefix(ref, S3Scheme)
		done := metrics.TimeHTTPRequest("s3", l.Performance)
		data, err := l.S3.Get(ctx, key, l.maxBytes())
		done()
		return data, "s3", err

	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return l.loadURL(ctx, ref)

	default:
		data, err := l.loadLocal(ref)
		return data, "local", err
	}
}

func (l *Loader) loadURL(ctx context.Context, ref string) ([]byte, string, error) {
	valid, hostname := pool.ValidateUrl(l.Logger, ref, l.Config.AllowedOrigins)
	if !valid {
		return nil, "", fmt.Errorf("%s: %w", ref, ErrForbidden)
	}
	host := metrics.CleanHostname(hostname)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, host, err
	}

	done := metrics.TimeHTTPRequest(host, l.Performance)
	response, err := l.Client.Do(req)
	done()
	if err != nil {
		return nil, host, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			l.Logger.Error("failed to close response body", zap.Error(closeErr), zap.String("url", ref))
		}
	}()

	switch {
	case response.StatusCode == http.StatusNotFound:
		return nil, host, fmt.Errorf("%s: %w", ref, ErrNotFound)
	case response.StatusCode >= 300:
		return nil, host, fmt.Errorf("%s returned status %d", ref, response.StatusCode)
	}

	var body io.Reader = response.Body
	if limit := l.maxBytes(); limit > 0 {
		body = io.LimitReader(response.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, host, fmt.Errorf("failed to read response body: %w", err)
	}
	if limit := l.maxBytes(); limit > 0 && int64(len(data)) > limit {
		return nil, host, fmt.Errorf("%s: %w", ref, ErrTooLarge)
	}
	return data, host, nil
}

func (l *Loader) loadLocal(ref string) ([]byte, error) {
	root := l.Config.LocalRoot
	if root == "" {
		return nil, fmt.Errorf("local sources are disabled: %w", ErrForbidden)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	p := filepath.Join(root, filepath.Clean(string(filepath.Separator)+ref))
	if rel, err := filepath.Rel(root, p); err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%s: %w", ref, ErrForbidden)
	}

	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if limit := l.maxBytes(); limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%s: %w", ref, ErrTooLarge)
	}
	return os.ReadFile(p)
}
