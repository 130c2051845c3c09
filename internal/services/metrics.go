package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	ocrAttempts    *prometheus.CounterVec
	llmRequests    *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	reconcileTotal *prometheus.CounterVec
	jobsTotal      *prometheus.CounterVec
	jobsInFlight   prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	ocrAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polisher",
			Subsystem: "ocr",
			Name:      "attempts_total",
			Help:      "OCR provider attempts by outcome.",
		},
		[]string{"provider", "outcome"},
	)
	llmRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polisher",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM completion requests by schema and outcome.",
		},
		[]string{"schema", "outcome"},
	)
	llmDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "polisher",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "LLM completion latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"schema"},
	)
	reconcileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polisher",
			Subsystem: "reconciler",
			Name:      "results_total",
			Help:      "Reconciled LLM responses by schema and outcome.",
		},
		[]string{"schema", "outcome"},
	)
	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "polisher",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Processed analysis jobs by status.",
		},
		[]string{"kind", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "polisher",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of analysis jobs being processed.",
		},
	)

	registry.MustRegister(ocrAttempts, llmRequests, llmDuration, reconcileTotal, jobsTotal, jobsInFlight)

	return &Metrics{
		registry:       registry,
		ocrAttempts:    ocrAttempts,
		llmRequests:    llmRequests,
		llmDuration:    llmDuration,
		reconcileTotal: reconcileTotal,
		jobsTotal:      jobsTotal,
		jobsInFlight:   jobsInFlight,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveOCR(provider, outcome string) {
	if m == nil {
		return
	}
	m.ocrAttempts.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveLLM(schema string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.llmRequests.WithLabelValues(schema, outcome).Inc()
	m.llmDuration.WithLabelValues(schema).Observe(duration.Seconds())
}

func (m *Metrics) ObserveReconcile(schema string, outcome ReconcileOutcome) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(schema, string(outcome)).Inc()
}

func (m *Metrics) StartJob() {
	if m == nil {
		return
	}
	m.jobsInFlight.Inc()
}

func (m *Metrics) FinishJob(kind string, err error) {
	if m == nil {
		return
	}
	m.jobsInFlight.Dec()

	status := "completed"
	if err != nil {
		status = "failed"
	}
	m.jobsTotal.WithLabelValues(kind, status).Inc()
}
