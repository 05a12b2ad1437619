package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	SuccessfullyServed *prometheus.CounterVec
	RenderFailures     *prometheus.CounterVec
}

func InitializeMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	metrics := &Metrics{
		SuccessfullyServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "successfully_served",
			Help:        "Number of successfully served renders",
			ConstLabels: constLabels,
		}, []string{"type", "hostname", "ref_hash"}), // Use reference hash instead of full reference
		RenderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "render_failures",
			Help:        "Number of failed renders by reason",
			ConstLabels: constLabels,
		}, []string{"type", "reason"}),
	}

	registry.MustRegister(metrics.SuccessfullyServed)
	registry.MustRegister(metrics.RenderFailures)

	return metrics
}

// HashRef creates a short hash of a source reference to reduce metric cardinality
func HashRef(ref string) string {
	if len(ref) > 100 {
		ref = ref[:100]
	}

	hash := sha256.Sum256([]byte(ref))
	return hex.EncodeToString(hash[:8])
}

// CleanHostname removes port numbers and normalizes hostname for metrics
func CleanHostname(hostname string) string {
	if hostname == "" {
		return "unknown"
	}

	if idx := strings.Index(hostname, ":"); idx != -1 {
		hostname = hostname[:idx]
	}

	if len(hostname) > 50 {
		hostname = hostname[:50]
	}

	return hostname
}
