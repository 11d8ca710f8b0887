// Package metrics holds the Prometheus collectors for recognition and
// summarization. Collectors live on a private registry so tests and multiple
// servers in one process never collide on registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ocrsum"

// Metrics is safe for concurrent use. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	recognitions    *prometheus.CounterVec
	recognitionTime prometheus.Histogram
	upstreamCalls   *prometheus.CounterVec
	coldStarts      prometheus.Counter
	summaries       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recognitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "recognitions_total",
			Help:      "OCR recognitions by outcome.",
		}, []string{"outcome"}),
		recognitionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ocr",
			Name:      "recognition_duration_seconds",
			Help:      "Wall-clock time of one recognition call.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summarize",
			Name:      "upstream_calls_total",
			Help:      "Calls to the inference API by classified outcome.",
		}, []string{"outcome"}),
		coldStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summarize",
			Name:      "cold_starts_total",
			Help:      "Requests that waited for the model to warm up.",
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summarize",
			Name:      "requests_total",
			Help:      "Summarize requests by response status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.recognitions,
		m.recognitionTime,
		m.upstreamCalls,
		m.coldStarts,
		m.summaries,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveRecognition(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.recognitions.WithLabelValues(outcome).Inc()
	m.recognitionTime.Observe(d.Seconds())
}

func (m *Metrics) UpstreamCall(outcome string) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ColdStart() {
	if m == nil {
		return
	}
	m.coldStarts.Inc()
}

func (m *Metrics) SummarizeResponse(status string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that gather collector values.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
