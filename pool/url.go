package pool

import (
	"net/url"
	"strings"
	"sync"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"go.uber.org/zap"
)

// Parsed source URLs, shared by validation and the loader
var (
	urlCache     = make(map[string]*url.URL)
	urlCacheMux  sync.RWMutex
	urlCacheSize = 1000
)

func parseUrl(urlStr string) (*url.URL, error) {
	urlCacheMux.RLock()
	parsedUrl, exists := urlCache[urlStr]
	urlCacheMux.RUnlock()
	if exists {
		return parsedUrl, nil
	}

	parsedUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	urlCacheMux.Lock()
	if len(urlCache) >= urlCacheSize {
		urlCache = make(map[string]*url.URL)
	}
	urlCache[urlStr] = parsedUrl
	urlCacheMux.Unlock()

	return parsedUrl, nil
}

// ValidateUrl reports whether a source URL may be fetched. With no origins configured
// every URL is allowed and the hostname is left empty.
func ValidateUrl(logger *zap.Logger, urlStr string, origins []string) (valid bool, hostname string) {
	parsedUrl, err := parseUrl(urlStr)
	if err != nil {
		return false, ""
	}

	return ValidateHostname(parsedUrl, origins, logger)
}

func ValidateHostname(parsedUrl *url.URL, origins []string, logger *zap.Logger) (valid bool, hostname string) {
	if len(origins) == 0 {
		return true, ""
	}

	if parsedUrl.Scheme != "http" && parsedUrl.Scheme != "https" {
		return false, ""
	}

	// Credentials in the URL would be forwarded to the archive
	if parsedUrl.User != nil {
		return false, ""
	}

	hostname = strings.ToLower(parsedUrl.Hostname())

	for _, origin := range origins {
		if strings.EqualFold(origin, hostname) {
			logger.Debug("origin matched", zap.String("origin", origin), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	for _, origin := range origins {
		if strings.Contains(origin, "*") && wildcard.Match(strings.ToLower(origin), hostname) {
			logger.Debug("origin matched", zap.String("origin", origin), zap.String("hostname", hostname))
			return true, hostname
		}
	}

	return false, ""
}
