// Package metrics exposes prometheus collectors for the job pipeline and the
// HTTP boundary. All recording methods are safe on a nil *Metrics so
// components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidtrack"

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	jobsSubmitted        prometheus.Counter
	jobsFinished         *prometheus.CounterVec
	stageDuration        *prometheus.HistogramVec
	detectorCalls        *prometheus.CounterVec
	tracksCreated        prometheus.Counter
	translationFallbacks prometheus.Counter
	workersBusy          prometheus.Gauge
	queueJobs            *prometheus.GaugeVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	uploadBytes          prometheus.Histogram
}

// New builds the collector set on a fresh registry, including the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted through the upload endpoint",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Jobs finalized by workers, by terminal status",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 9),
		}, []string{"stage", "outcome"}),
		detectorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detector_calls_total",
			Help:      "Per-frame detector invocations",
		}, []string{"detector", "outcome"}),
		tracksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_created_total",
			Help:      "Object tracks allocated across all jobs",
		}),
		translationFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_fallbacks_total",
			Help:      "Primary labels reported untranslated after a translator failure",
		}),
		workersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Workers currently running a job",
		}),
		queueJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs",
			Help:      "Jobs in the store by status, sampled on each poll",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route template and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_size_bytes",
			Help:      "Size of accepted video uploads",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobsSubmitted,
		m.jobsFinished,
		m.stageDuration,
		m.detectorCalls,
		m.tracksCreated,
		m.translationFallbacks,
		m.workersBusy,
		m.queueJobs,
		m.httpRequests,
		m.httpDuration,
		m.uploadBytes,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) JobSubmitted(size int64) {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
	if size > 0 {
		m.uploadBytes.Observe(float64(size))
	}
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) StageObserved(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) DetectorCalled(detector string, err error) {
	if m == nil {
		return
	}
	m.detectorCalls.WithLabelValues(detector, outcome(err)).Inc()
}

func (m *Metrics) TracksCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tracksCreated.Add(float64(n))
}

func (m *Metrics) TranslationFallback() {
	if m == nil {
		return
	}
	m.translationFallbacks.Inc()
}

func (m *Metrics) WorkerBusy(delta int) {
	if m == nil {
		return
	}
	m.workersBusy.Add(float64(delta))
}

// QueueSnapshot replaces the per-status job gauges.
func (m *Metrics) QueueSnapshot(stats map[string]int) {
	if m == nil {
		return
	}
	m.queueJobs.Reset()
	for status, count := range stats {
		m.queueJobs.WithLabelValues(status).Set(float64(count))
	}
}

func (m *Metrics) HTTPObserved(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
