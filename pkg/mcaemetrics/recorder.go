// Package mcaemetrics provides Prometheus-based metrics recording and
// querying for the MCAE subsystems, generalized from the teacher's
// pkg/agent/middleware/metrics package (LLM-request metrics) onto RAMR,
// the Knowledge Extractor, and the Context Orchestrator.
package mcaemetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the interface the core subsystems call into; a Recorder
// never holds a handle back to its caller, matching the teacher's own
// Recorder interface in pkg/agent/middleware/metrics/recorder.go.
type Recorder interface {
	ObserveCacheGet(cacheType string, hit bool)
	ObserveCacheEviction(tier, reason string)
	ObserveExtractionScored(artifactType string, accepted bool)
	ObserveAssemble(duration time.Duration, degraded bool)
	ObserveSummaryLMCall(model string, success bool)
}

// NoopRecorder discards every observation, matching the teacher's
// NoopRecorder for when metrics collection is disabled.
type NoopRecorder struct{}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return &NoopRecorder{} }

func (NoopRecorder) ObserveCacheGet(string, bool)          {}
func (NoopRecorder) ObserveCacheEviction(string, string)   {}
func (NoopRecorder) ObserveExtractionScored(string, bool)  {}
func (NoopRecorder) ObserveAssemble(time.Duration, bool)   {}
func (NoopRecorder) ObserveSummaryLMCall(string, bool)     {}

// PrometheusRecorder implements Recorder with real Prometheus metrics,
// generalized from the teacher's PrometheusRecorder
// (pkg/agent/middleware/metrics/prometheus.go): the same promauto
// constructor style, CounterVec/HistogramVec pairing, retargeted at
// RAMR/Extractor/Orchestrator label sets instead of LLM-request labels.
type PrometheusRecorder struct {
	ramrGetsTotal      *prometheus.CounterVec
	ramrHitsTotal      *prometheus.CounterVec
	ramrEvictionsTotal *prometheus.CounterVec

	extractionScoredTotal   *prometheus.CounterVec
	extractionAcceptedTotal *prometheus.CounterVec

	assembleDuration       *prometheus.HistogramVec
	summaryLMCallsTotal    *prometheus.CounterVec
}

// NewPrometheusRecorder registers and returns a Prometheus-backed Recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		ramrGetsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ramr_gets_total",
				Help: "Total number of RAMR cache get operations by cache type",
			},
			[]string{"cache_type"},
		),
		ramrHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ramr_hits_total",
				Help: "Total number of RAMR cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		ramrEvictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ramr_evictions_total",
				Help: "Total number of RAMR cache evictions by tier and reason",
			},
			[]string{"tier", "reason"},
		),
		extractionScoredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extraction_scored_total",
				Help: "Total number of knowledge extraction scoring passes by artifact type",
			},
			[]string{"artifact_type"},
		),
		extractionAcceptedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extraction_accepted_total",
				Help: "Total number of knowledge extraction results accepted (should_extract=true) by artifact type",
			},
			[]string{"artifact_type"},
		),
		assembleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_assemble_duration_seconds",
				Help:    "Duration of Context Orchestrator Assemble calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"degraded"},
		),
		summaryLMCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_summary_lm_calls_total",
				Help: "Total number of LanguageModel calls made by the summary cache path",
			},
			[]string{"model", "status"},
		),
	}
}

func (p *PrometheusRecorder) ObserveCacheGet(cacheType string, hit bool) {
	p.ramrGetsTotal.WithLabelValues(cacheType).Inc()
	if hit {
		p.ramrHitsTotal.WithLabelValues(cacheType).Inc()
	}
}

func (p *PrometheusRecorder) ObserveCacheEviction(tier, reason string) {
	p.ramrEvictionsTotal.WithLabelValues(tier, reason).Inc()
}

func (p *PrometheusRecorder) ObserveExtractionScored(artifactType string, accepted bool) {
	p.extractionScoredTotal.WithLabelValues(artifactType).Inc()
	if accepted {
		p.extractionAcceptedTotal.WithLabelValues(artifactType).Inc()
	}
}

func (p *PrometheusRecorder) ObserveAssemble(duration time.Duration, degraded bool) {
	label := "false"
	if degraded {
		label = "true"
	}
	p.assembleDuration.WithLabelValues(label).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveSummaryLMCall(model string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	p.summaryLMCallsTotal.WithLabelValues(model, status).Inc()
}
