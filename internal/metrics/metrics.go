package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the hunt and drift instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	HuntsTotal     prometheus.Counter
	SourceFailures *prometheus.CounterVec
	SourceDuration *prometheus.HistogramVec
	DriftCompares  prometheus.Counter
}

// New creates a metrics set on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HuntsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pivothunt_hunts_total",
			Help: "Number of hunt requests executed.",
		}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pivothunt_source_failures_total",
			Help: "Number of source branches that failed and degraded to zero hits.",
		}, []string{"source"}),
		SourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pivothunt_source_duration_seconds",
			Help:    "Wall-clock latency of each source branch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		DriftCompares: factory.NewCounter(prometheus.CounterOpts{
			Name: "pivothunt_drift_compares_total",
			Help: "Number of drift comparisons executed.",
		}),
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
