package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Pipeline Metrics
	RunsTotal             *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec
	ArtifactsWrittenTotal prometheus.Counter
	ArtifactBytesTotal    prometheus.Counter
	LastRunTimestamp      prometheus.Gauge

	// Proposal Metrics
	ProposalsTotal   *prometheus.CounterVec
	FragmentsTotal   *prometheus.CounterVec
	JunctionLinks    *prometheus.CounterVec
	AttributeUpdates *prometheus.CounterVec
	Diagnostics      *prometheus.CounterVec

	// Signal Metrics
	SignalsTotal          prometheus.Gauge
	LinkedConnections     prometheus.Gauge
	UnmatchedConnections  prometheus.Gauge
	ViaRuleMatches        *prometheus.CounterVec
	ProgramsRegenerated   *prometheus.CounterVec
	ProgramsUnchanged     prometheus.Counter
	ProgramViolations     prometheus.Gauge
	LinksPerSignal        prometheus.Histogram
	TuningOverridesActive prometheus.Gauge

	// Rebuild Metrics
	RebuildsTotal   *prometheus.CounterVec
	RebuildDuration prometheus.Histogram

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initPipelineMetrics()
	r.initProposalMetrics()
	r.initSignalMetrics()
	r.initRebuildMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
