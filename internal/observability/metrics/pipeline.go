package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmrl/docintel/internal/core/domain"
)

// PipelineMetrics implements ports.PipelineMetrics on Prometheus collectors.
type PipelineMetrics struct {
	registry *prometheus.Registry
	service  string

	fileTotal          *prometheus.CounterVec
	fileDuration       *prometheus.HistogramVec
	extractionDuration *prometheus.HistogramVec
	aiFallbackTotal    *prometheus.CounterVec
}

// NewPipelineMetrics registers on registry, or on a fresh registry when nil.
func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	fileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "files_total",
			Help:      "Total files run through the intake pipeline by outcome and analysis path.",
		},
		[]string{"service", "outcome", "processed_with"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "file_duration_seconds",
			Help:      "End-to-end pipeline duration per file in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "outcome"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Text extraction duration in seconds by method.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)
	aiFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "analysis",
			Name:      "ai_fallback_total",
			Help:      "Total generative analyses replaced by the rule-based classifier.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(fileTotal, fileDuration, extractionDuration, aiFallbackTotal)

	return &PipelineMetrics{
		registry:           registry,
		service:            service,
		fileTotal:          fileTotal,
		fileDuration:       fileDuration,
		extractionDuration: extractionDuration,
		aiFallbackTotal:    aiFallbackTotal,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) RecordFile(outcome string, processedWith domain.ProcessedWith, duration time.Duration) {
	with := string(processedWith)
	if with == "" {
		with = "none"
	}
	m.fileTotal.WithLabelValues(m.service, outcome, with).Inc()
	m.fileDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordExtraction(method string, duration time.Duration) {
	if method == "" {
		method = "unknown"
	}
	m.extractionDuration.WithLabelValues(m.service, method).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordAIFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.aiFallbackTotal.WithLabelValues(m.service, reason).Inc()
}
