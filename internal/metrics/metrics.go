// Package metrics exposes runtime counters in the Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. It satisfies app.Observer and app.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	intents    *prometheus.CounterVec
	intentTime *prometheus.HistogramVec
	loads      *prometheus.CounterVec
	loadTime   prometheus.Histogram
	queueDepth prometheus.Gauge
	events     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playdeck",
			Name:      "intents_total",
			Help:      "Intents processed, by kind and result.",
		}, []string{"kind", "result"}),
		intentTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "playdeck",
			Name:      "intent_duration_seconds",
			Help:      "Time spent applying one intent.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"kind"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playdeck",
			Name:      "image_loads_total",
			Help:      "Image loads finished, by result.",
		}, []string{"result"}),
		loadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "playdeck",
			Name:      "image_load_duration_seconds",
			Help:      "Time spent loading one image.",
			Buckets:   prometheus.DefBuckets,
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "playdeck",
			Name:      "intent_queue_depth",
			Help:      "Intents waiting in the runtime queue.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "playdeck",
			Name:      "events_total",
			Help:      "Domain events emitted, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.intents, m.intentTime, m.loads, m.loadTime, m.queueDepth, m.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) IntentProcessed(kind string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.intents.WithLabelValues(kind, result).Inc()
	m.intentTime.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) LoadFinished(err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.loads.WithLabelValues(result).Inc()
	m.loadTime.Observe(elapsed.Seconds())
}

func (m *Metrics) QueueDepth(n int) { m.queueDepth.Set(float64(n)) }

// Record counts a domain event, so Metrics can also serve as an app.Recorder.
func (m *Metrics) Record(kind, _ string, _ any) { m.events.WithLabelValues(kind).Inc() }

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
