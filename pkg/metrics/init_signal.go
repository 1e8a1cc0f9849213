package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSignalMetrics() {
	r.SignalsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "signalpatch_signals",
			Help: "Number of signals controlling at least one connection",
		},
	)

	r.LinkedConnections = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "signalpatch_linked_connections",
			Help: "Number of connections linked to a signal in the last run",
		},
	)

	r.UnmatchedConnections = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "signalpatch_unmatched_connections",
			Help: "Number of connections with a via that matched no signalized junction",
		},
	)

	r.ViaRuleMatches = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_via_rule_matches_total",
			Help: "Total number of connections linked, by via rule",
		},
		[]string{"rule"},
	)

	r.ProgramsRegenerated = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_programs_regenerated_total",
			Help: "Total number of signal programs regenerated",
		},
		[]string{"reason"}, // missing, not-actuated, no-phases, state-length
	)

	r.ProgramsUnchanged = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "signalpatch_programs_unchanged_total",
			Help: "Total number of signal programs left untouched",
		},
	)

	r.ProgramViolations = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "signalpatch_program_violations",
			Help: "Structural program violations found by the final check",
		},
	)

	r.LinksPerSignal = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalpatch_links_per_signal",
			Help:    "Number of controlled connections per signal",
			Buckets: []float64{1, 2, 4, 8, 12, 16, 24, 32, 64},
		},
	)

	r.TuningOverridesActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "signalpatch_tuning_overrides",
			Help: "Number of per-signal tuning overrides loaded",
		},
	)
}
