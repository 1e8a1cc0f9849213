package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPipelineMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // ok, rebuild_failed, error
	)

	r.StageDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalpatch_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"stage"},
	)

	r.ArtifactsWrittenTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "signalpatch_artifacts_written_total",
			Help: "Total number of artifacts written",
		},
	)

	r.ArtifactBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "signalpatch_artifact_bytes_total",
			Help: "Total bytes of artifacts written",
		},
	)

	r.LastRunTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "signalpatch_last_run_timestamp_seconds",
			Help: "Completion time of the last run as Unix timestamp",
		},
	)
}
