package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initProposalMetrics() {
	r.ProposalsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_proposals_total",
			Help: "Total number of proposals interpreted, by decoding method",
		},
		[]string{"method"}, // document, span, candidate, none
	)

	r.FragmentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_fragments_total",
			Help: "Total number of proposal fragments merged",
		},
		[]string{"result"}, // added, replaced, skipped
	)

	r.JunctionLinks = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_junction_links_total",
			Help: "Total number of junctions bound to proposed signals",
		},
		[]string{"result"}, // exact, substring, unlinked
	)

	r.AttributeUpdates = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_attribute_updates_total",
			Help: "Total number of attribute update actions",
		},
		[]string{"result"}, // applied, ignored
	)

	r.Diagnostics = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalpatch_diagnostics_total",
			Help: "Total number of non-fatal diagnostics recorded",
		},
		[]string{"stage"},
	)
}
