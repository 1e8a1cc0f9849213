package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRebuildMetrics() {
	r.RebuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_rebuilds_total",
			Help: "Total number of network compiler runs",
		},
		[]string{"status"}, // success, failure, skipped
	)

	r.RebuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalpatch_rebuild_duration_seconds",
			Help:    "Network compiler run duration in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 300.0},
		},
	)
}
