// Package metrics exposes Prometheus collectors for dubbing jobs.
//
// Each Metrics value owns its registry so tests and one-shot CLI runs never
// share state. WriteTextfile exports the registry in the node_exporter
// textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal          *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	TranslationTiers   *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	SpeedAdjustments   *prometheus.CounterVec
	SilentSubstitutes  prometheus.Counter
	SpeakerResolutions *prometheus.CounterVec
	Errors             *prometheus.CounterVec
	TrackSeconds       prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubber_jobs_total",
			Help: "Dubbing jobs by result (success/failed)",
		}, []string{"result"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dubber_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		TranslationTiers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubber_translation_tier_total",
			Help: "Segments translated by winning tier (llm/mt/passthrough)",
		}, []string{"tier"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubber_tts_cache_lookups_total",
			Help: "Synthesis cache lookups by result (hit/miss)",
		}, []string{"result"}),
		SpeedAdjustments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubber_speed_adjustments_total",
			Help: "Speed correction outcomes per segment",
		}, []string{"action"}),
		SilentSubstitutes: factory.NewCounter(prometheus.CounterOpts{
			Name: "dubber_silent_substitutions_total",
			Help: "Segments replaced with silence after synthesis failed",
		}),
		SpeakerResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubber_speaker_resolution_total",
			Help: "Jobs by speaker resolution method",
		}, []string{"method"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubber_job_errors_total",
			Help: "Failed jobs by stage and error class",
		}, []string{"stage", "class"}),
		TrackSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dubber_last_track_duration_seconds",
			Help: "Duration of the most recently assembled track",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records a stage duration.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordJob counts a finished job. A non-empty class marks it failed.
func (m *Metrics) RecordJob(stage, class string) {
	if m == nil {
		return
	}
	if class == "" {
		m.JobsTotal.WithLabelValues("success").Inc()
		return
	}
	m.JobsTotal.WithLabelValues("failed").Inc()
	m.Errors.WithLabelValues(stage, class).Inc()
}

// RecordTier counts a translated segment.
func (m *Metrics) RecordTier(tier string) {
	if m == nil {
		return
	}
	m.TranslationTiers.WithLabelValues(tier).Inc()
}

// RecordClip counts the synthesis outcome of one segment.
func (m *Metrics) RecordClip(cacheHit, silent bool, action string) {
	if m == nil {
		return
	}
	if cacheHit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
	if silent {
		m.SilentSubstitutes.Inc()
	}
	m.SpeedAdjustments.WithLabelValues(action).Inc()
}

// RecordResolution counts the speaker resolution method of a job.
func (m *Metrics) RecordResolution(method string) {
	if m == nil {
		return
	}
	m.SpeakerResolutions.WithLabelValues(method).Inc()
}

// SetTrackSeconds records the assembled track length.
func (m *Metrics) SetTrackSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.TrackSeconds.Set(seconds)
}

// WriteTextfile writes every collector to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
