package client

import (
	"net/http"
	"time"
)

const userAgent = "tpf-render/1.0"

var httpClient *http.Client

// userAgentTransport identifies the service to data archives
type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.base.RoundTrip(req)
}

func init() {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	httpClient = &http.Client{
		Transport: userAgentTransport{base: transport},
		// Target pixel files and FFI cubes run to hundreds of megabytes
		Timeout: 2 * time.Minute,
	}
}

// GetHTTPClient returns the shared client used to fetch sources
func GetHTTPClient() *http.Client {
	return httpClient
}
