package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PerformanceMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RenderTime      *prometheus.HistogramVec
	HTTPRequestTime *prometheus.HistogramVec
	SourceSizeBytes *prometheus.HistogramVec
	ImageSizeBytes  *prometheus.HistogramVec
}

func InitializePerformanceMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "request_duration_seconds",
			Help:        "Request duration in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"type", "status"}),

		RenderTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "render_time_seconds",
			Help:        "Frame decoding, plotting and encoding time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		HTTPRequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_time_seconds",
			Help:        "Source fetch time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"hostname"}),

		SourceSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "source_size_bytes",
			Help:        "Source file size in bytes",
			ConstLabels: constLabels,
			Buckets:     []float64{102400, 1048576, 10485760, 104857600, 1073741824}, // 100KB to 1GB
		}, []string{"kind"}),

		ImageSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "image_size_bytes",
			Help:        "Rendered image size in bytes",
			ConstLabels: constLabels,
			Buckets:     []float64{1024, 10240, 102400, 1048576, 10485760}, // 1KB to 10MB
		}, []string{"format"}),
	}

	registry.MustRegister(
		metrics.RequestDuration,
		metrics.RenderTime,
		metrics.HTTPRequestTime,
		metrics.SourceSizeBytes,
		metrics.ImageSizeBytes,
	)

	return metrics
}

// TimeFunction measures the execution time of a render step
func TimeFunction[T any](fn func() (T, error), operation string, metrics *PerformanceMetrics) (T, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Seconds()

	if metrics != nil {
		metrics.RenderTime.WithLabelValues(operation).Observe(duration)
	}

	return result, err
}

// TimeHTTPRequest measures source fetch duration
func TimeHTTPRequest(hostname string, metrics *PerformanceMetrics) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		if metrics != nil {
			metrics.HTTPRequestTime.WithLabelValues(hostname).Observe(duration)
		}
	}
}
