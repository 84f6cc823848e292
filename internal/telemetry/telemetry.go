package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "walletnav"

// Collector owns the service's Prometheus metrics and their registry.
type Collector struct {
	registry       *prometheus.Registry
	sourceFailures *prometheus.CounterVec
	navOutcomes    *prometheus.CounterVec
	valuations     prometheus.Histogram
	snapshots      *prometheus.CounterVec
}

// NewCollector creates a collector with Go and process metrics registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		sourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed per-chain provider queries.",
		}, []string{"source", "chain"}),
		navOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nav_resolutions_total",
			Help:      "Composite token resolutions by outcome.",
		}, []string{"outcome"}),
		valuations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "valuation_duration_seconds",
			Help:      "Wall time of a full portfolio valuation.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshot generation attempts by result.",
		}, []string{"result"}),
	}
}

// SourceFailed counts a failed chain query.
func (c *Collector) SourceFailed(source string, chainID int64) {
	c.sourceFailures.WithLabelValues(source, strconv.FormatInt(chainID, 10)).Inc()
}

// NAVOutcome counts one composite token resolution.
func (c *Collector) NAVOutcome(outcome string) {
	c.navOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveValuation records a valuation duration.
func (c *Collector) ObserveValuation(d time.Duration) {
	c.valuations.Observe(d.Seconds())
}

// SnapshotTaken counts a snapshot attempt.
func (c *Collector) SnapshotTaken(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.snapshots.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
