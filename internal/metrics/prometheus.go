package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmcdonald/wprelease/internal/artifact"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

// PrometheusRecorder implements Recorder using Prometheus metrics on a private
// registry. A release is a short-lived process, so metrics are exported with
// WriteTextfile for the node_exporter textfile collector instead of served.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	stageTotal      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	artifactBytes   *prometheus.GaugeVec
	artifactEntries *prometheus.GaugeVec
	lastSuccess     *prometheus.GaugeVec
}

// NewPrometheusRecorder creates a PrometheusRecorder and registers its metrics.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wprelease_stage_total",
				Help: "Total number of release stage runs",
			},
			[]string{"stage", "success", "code"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wprelease_stage_duration_seconds",
				Help:    "Duration of release stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage", "success"},
		),
		artifactBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wprelease_artifact_size_bytes",
				Help: "Size of the archives produced by the last release",
			},
			[]string{"name"},
		),
		artifactEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wprelease_artifact_entries",
				Help: "Number of files in the archives produced by the last release",
			},
			[]string{"name"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wprelease_stage_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run of each stage",
			},
			[]string{"stage"},
		),
	}

	r.registry.MustRegister(
		r.stageTotal,
		r.stageDuration,
		r.artifactBytes,
		r.artifactEntries,
		r.lastSuccess,
	)
	return r
}

// RecordStage records a stage run with its outcome. Failures are labelled
// with their release error code.
func (r *PrometheusRecorder) RecordStage(stage string, err error, duration time.Duration) {
	successLabel := "true"
	code := ""
	if err != nil {
		successLabel = "false"
		code = string(releaseerr.CodeOf(err))
		if code == "" {
			code = "unknown"
		}
	}

	r.stageTotal.WithLabelValues(stage, successLabel, code).Inc()
	r.stageDuration.WithLabelValues(stage, successLabel).Observe(duration.Seconds())
	if err == nil {
		r.lastSuccess.WithLabelValues(stage).SetToCurrentTime()
	}
}

// RecordArtifact records the size and entry count of an archive.
func (r *PrometheusRecorder) RecordArtifact(a *artifact.Artifact) {
	if a == nil {
		return
	}
	r.artifactBytes.WithLabelValues(a.Name).Set(float64(a.Size))
	r.artifactEntries.WithLabelValues(a.Name).Set(float64(a.Entries))
}

// Registry returns the registry holding the release metrics.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

var _ Recorder = (*PrometheusRecorder)(nil)
