// Package prom adapts cache and text-processing events to Prometheus
// collectors.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/typify/typify/cache"
	"github.com/typify/typify/internal/processor"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
// One Adapter serves one cache; distinguish caches with const labels,
// e.g. prometheus.Labels{"cache": "grammar"}.
type Adapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  prometheus.Counter
	sizeEnt prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Entries removed by cleanup passes",
			ConstLabels: constLabels,
		}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict adds the number of entries removed by one cleanup pass.
func (a *Adapter) Evict(removed int) { a.evicts.Add(float64(removed)) }

// Size updates the resident entry gauge.
func (a *Adapter) Size(entries int) { a.sizeEnt.Set(float64(entries)) }

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)

// ProcessingAdapter implements processor.Metrics and exports request
// outcome counters and a latency histogram per operation.
type ProcessingAdapter struct {
	requests *prometheus.CounterVec   // op, source
	failures *prometheus.CounterVec   // op, kind
	duration *prometheus.HistogramVec // op
}

// NewProcessing constructs a Prometheus adapter for processing metrics.
// Arguments follow New.
func NewProcessing(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *ProcessingAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &ProcessingAdapter{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "requests_total",
				Help:        "Completed requests by operation and serving source",
				ConstLabels: constLabels,
			},
			[]string{"op", "source"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "failures_total",
				Help:        "Failed requests by operation and failure kind",
				ConstLabels: constLabels,
			},
			[]string{"op", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "processing_seconds",
				Help:        "Wall-clock time of model-backed requests",
				ConstLabels: constLabels,
				Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(a.requests, a.failures, a.duration)
	return a
}

// Observe records a successful request; cache hits skip the histogram since
// they do no model work.
func (a *ProcessingAdapter) Observe(kind processor.Kind, d time.Duration, fromCache bool) {
	source := "model"
	if fromCache {
		source = "cache"
	}
	a.requests.WithLabelValues(kind.String(), source).Inc()
	if !fromCache {
		a.duration.WithLabelValues(kind.String()).Observe(d.Seconds())
	}
}

// Fail records a failed request by failure class.
func (a *ProcessingAdapter) Fail(kind processor.Kind, failure processor.FailureKind) {
	a.failures.WithLabelValues(kind.String(), failure.String()).Inc()
}

// Compile-time check: ensure ProcessingAdapter implements processor.Metrics.
var _ processor.Metrics = (*ProcessingAdapter)(nil)
