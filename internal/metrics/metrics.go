// Package metrics exposes overlay engine metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warroom"

// Metrics holds the engine collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	syncPasses       prometheus.Counter
	syncPassDuration prometheus.Histogram
	syncFailures     prometheus.Counter
	syncCoalesced    prometheus.Counter
	markers          prometheus.Gauge
	routes           prometheus.Gauge

	geocodeRequests *prometheus.CounterVec
	geocodeCacheHit *prometheus.CounterVec
	geocodeInflight prometheus.Gauge

	captures        *prometheus.CounterVec
	captureDuration prometheus.Histogram
	layersSkipped   *prometheus.CounterVec
}

// New creates a fresh registry with every collector registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_passes_total",
			Help:      "Overlay synchronization passes completed",
		}),
		syncPassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_pass_duration_seconds",
			Help:      "Duration of overlay synchronization passes",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1, 5},
		}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_pass_failures_total",
			Help:      "Overlay synchronization passes that failed and kept the previous view",
		}),
		syncCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_triggers_coalesced_total",
			Help:      "Triggers absorbed by an already pending pass",
		}),
		markers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overlay_markers",
			Help:      "Markers in the latest overlay snapshot",
		}),
		routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overlay_routes",
			Help:      "Routes in the latest overlay snapshot",
		}),
		geocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding network requests by result",
		}, []string{"result"}),
		geocodeCacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_hits_total",
			Help:      "Geocode lookups answered without a network call, by tier",
		}, []string{"tier"}),
		geocodeInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_inflight",
			Help:      "Geocoding requests currently in flight",
		}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Composite captures by result",
		}, []string{"result"}),
		captureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Duration of composite captures",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}),
		layersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_layers_skipped_total",
			Help:      "Overlay layers left out of a capture because they were empty",
		}, []string{"layer"}),
	}

	m.registry.MustRegister(
		m.syncPasses,
		m.syncPassDuration,
		m.syncFailures,
		m.syncCoalesced,
		m.markers,
		m.routes,
		m.geocodeRequests,
		m.geocodeCacheHit,
		m.geocodeInflight,
		m.captures,
		m.captureDuration,
		m.layersSkipped,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSyncPass records a completed pass and the size of its output.
func (m *Metrics) ObserveSyncPass(d time.Duration, markers, routes int) {
	if m == nil {
		return
	}
	m.syncPasses.Inc()
	m.syncPassDuration.Observe(d.Seconds())
	m.markers.Set(float64(markers))
	m.routes.Set(float64(routes))
}

// IncSyncFailure counts a failed pass.
func (m *Metrics) IncSyncFailure() {
	if m == nil {
		return
	}
	m.syncFailures.Inc()
}

// IncCoalesced counts a trigger absorbed by a pending pass.
func (m *Metrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.syncCoalesced.Inc()
}

// ObserveGeocode records a network lookup; result is "ok", "timeout" or "error".
func (m *Metrics) ObserveGeocode(result string) {
	if m == nil {
		return
	}
	m.geocodeRequests.WithLabelValues(result).Inc()
}

// IncGeocodeCacheHit counts a lookup served from a cache tier.
func (m *Metrics) IncGeocodeCacheHit(tier string) {
	if m == nil {
		return
	}
	m.geocodeCacheHit.WithLabelValues(tier).Inc()
}

// GeocodeInflight adjusts the in-flight gauge by delta.
func (m *Metrics) GeocodeInflight(delta float64) {
	if m == nil {
		return
	}
	m.geocodeInflight.Add(delta)
}

// ObserveCapture records a capture outcome.
func (m *Metrics) ObserveCapture(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(result).Inc()
	m.captureDuration.Observe(d.Seconds())
}

// IncLayerSkipped counts an empty layer left out of a capture.
func (m *Metrics) IncLayerSkipped(layer string) {
	if m == nil {
		return
	}
	m.layersSkipped.WithLabelValues(layer).Inc()
}
