package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the portgraph collectors.
type Metrics struct {
	registry prometheus.Gatherer

	saves        *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadFailures *prometheus.CounterVec
	deletes      prometheus.Counter
	conversions  *prometheus.CounterVec
	prunedNodes  prometheus.Counter
	archiveBytes *prometheus.HistogramVec
	duration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portgraph_model_saves_total",
			Help: "Models archived, by codec",
		}, []string{"codec"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portgraph_model_loads_total",
			Help: "Models restored from an archive, by codec",
		}, []string{"codec"}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portgraph_model_load_failures_total",
			Help: "Archive loads that failed, by error kind",
		}, []string{"kind"}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portgraph_model_deletes_total",
			Help: "Stored models deleted",
		}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portgraph_archive_conversions_total",
			Help: "Archives re-encoded, by target codec",
		}, []string{"codec"}),
		prunedNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portgraph_pruned_nodes_total",
			Help: "Nodes removed by pruning",
		}),
		archiveBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portgraph_archive_bytes",
			Help:    "Encoded archive size",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"codec"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portgraph_operation_duration_seconds",
			Help:    "Duration of model service operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(m.saves, m.loads, m.loadFailures, m.deletes, m.conversions,
		m.prunedNodes, m.archiveBytes, m.duration)
	return m
}

// ObserveSave records an archived model of size bytes.
func (m *Metrics) ObserveSave(codec string, size int) {
	m.saves.WithLabelValues(codec).Inc()
	m.archiveBytes.WithLabelValues(codec).Observe(float64(size))
}

// IncLoad records a successful load.
func (m *Metrics) IncLoad(codec string) { m.loads.WithLabelValues(codec).Inc() }

// IncLoadFailure records a failed load classified as kind.
func (m *Metrics) IncLoadFailure(kind string) { m.loadFailures.WithLabelValues(kind).Inc() }

// IncDelete records a deleted model.
func (m *Metrics) IncDelete() { m.deletes.Inc() }

// IncConversion records a re-encoded archive.
func (m *Metrics) IncConversion(codec string) { m.conversions.WithLabelValues(codec).Inc() }

// AddPruned records n pruned nodes.
func (m *Metrics) AddPruned(n int) { m.prunedNodes.Add(float64(n)) }

// ObserveDuration records how long operation took since start.
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
