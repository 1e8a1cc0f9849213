package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RecordRun records a finished pipeline run
func (r *Registry) RecordRun(status string, finished time.Time) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.LastRunTimestamp.Set(float64(finished.Unix()))
}

// RecordStage records the duration of one pipeline stage
func (r *Registry) RecordStage(stage string, duration time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordArtifact records one artifact write
func (r *Registry) RecordArtifact(size int) {
	r.ArtifactsWrittenTotal.Inc()
	r.ArtifactBytesTotal.Add(float64(size))
}

// RecordProposal records how a proposal was decoded
func (r *Registry) RecordProposal(method string) {
	if method == "" {
		method = "none"
	}
	r.ProposalsTotal.WithLabelValues(method).Inc()
}

// RecordMerge records the outcome of merging one proposal
func (r *Registry) RecordMerge(added, replaced, skipped, exactLinks, substringLinks, unlinked, applied, ignored int) {
	r.FragmentsTotal.WithLabelValues("added").Add(float64(added))
	r.FragmentsTotal.WithLabelValues("replaced").Add(float64(replaced))
	r.FragmentsTotal.WithLabelValues("skipped").Add(float64(skipped))

	r.JunctionLinks.WithLabelValues("exact").Add(float64(exactLinks))
	r.JunctionLinks.WithLabelValues("substring").Add(float64(substringLinks))
	r.JunctionLinks.WithLabelValues("unlinked").Add(float64(unlinked))

	r.AttributeUpdates.WithLabelValues("applied").Add(float64(applied))
	r.AttributeUpdates.WithLabelValues("ignored").Add(float64(ignored))
}

// RecordDiagnostics adds n diagnostics for a stage
func (r *Registry) RecordDiagnostics(stage string, n int) {
	if n > 0 {
		r.Diagnostics.WithLabelValues(stage).Add(float64(n))
	}
}

// RecordLink records the result of linking connections to signals
func (r *Registry) RecordLink(signals, linked, unmatched int, byRule, linksBySignal map[string]int) {
	r.SignalsTotal.Set(float64(signals))
	r.LinkedConnections.Set(float64(linked))
	r.UnmatchedConnections.Set(float64(unmatched))
	for rule, n := range byRule {
		r.ViaRuleMatches.WithLabelValues(rule).Add(float64(n))
	}
	for _, n := range linksBySignal {
		r.LinksPerSignal.Observe(float64(n))
	}
}

// RecordRegeneration records one regenerated signal program
func (r *Registry) RecordRegeneration(reason string) {
	r.ProgramsRegenerated.WithLabelValues(reason).Inc()
}

// RecordSynthesis records programs left as they were and the violations
// found afterwards
func (r *Registry) RecordSynthesis(unchanged, violations int) {
	r.ProgramsUnchanged.Add(float64(unchanged))
	r.ProgramViolations.Set(float64(violations))
}

// SetTuningOverrides sets the number of per-signal overrides in effect
func (r *Registry) SetTuningOverrides(n int) {
	r.TuningOverridesActive.Set(float64(n))
}

// RecordRebuild records a network compiler run. A zero duration with
// status "skipped" records a run that was not attempted.
func (r *Registry) RecordRebuild(status string, duration time.Duration) {
	r.RebuildsTotal.WithLabelValues(status).Inc()
	if status != "skipped" {
		r.RebuildDuration.Observe(duration.Seconds())
	}
}

// WriteTextfile writes the registry in the Prometheus text format, as
// read by the node exporter textfile collector
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Text returns the registry in the Prometheus text format
func (r *Registry) Text() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir, err := os.MkdirTemp("", "signalpatch-metrics-")
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "metrics.prom")
	if err := r.WriteTextfile(path); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return os.ReadFile(path)
}
