package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the minimal Prometheus surface for the update engine
// (SPEC_FULL.md §6.7). Wiring the registry to an HTTP /metrics handler
// is left to the host application.
type Metrics struct {
	Registry *prometheus.Registry

	AttemptsTotal       *prometheus.CounterVec
	DownloadDurationSec prometheus.Histogram
	BadVersionsTotal    prometheus.Counter
}

// NewMetrics builds a fresh registry and its counters and histogram.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "update",
			Name:      "attempts_total",
			Help:      "Total number of check_and_update invocations, by outcome.",
		}, []string{"outcome"}),
		DownloadDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "update",
			Name:      "download_duration_seconds",
			Help:      "Duration of release asset downloads.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		BadVersionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "update",
			Name:      "bad_versions_total",
			Help:      "Total number of versions marked bad after a failed health check.",
		}),
	}

	reg.MustRegister(m.AttemptsTotal, m.DownloadDurationSec, m.BadVersionsTotal)
	return m
}
