package pipeline

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dd0wney/cluso-signalpatch/pkg/artifact"
	"github.com/dd0wney/cluso-signalpatch/pkg/diag"
	"github.com/dd0wney/cluso-signalpatch/pkg/link"
	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/merge"
	"github.com/dd0wney/cluso-signalpatch/pkg/metrics"
	"github.com/dd0wney/cluso-signalpatch/pkg/rebuild"
	"github.com/dd0wney/cluso-signalpatch/pkg/synth"
	"github.com/dd0wney/cluso-signalpatch/pkg/tuning"
)

// ErrInvalidOptions is returned when Run is given unusable options.
var ErrInvalidOptions = errors.New("invalid pipeline options")

// DefaultPrefix names artifacts when Options.Prefix is empty.
const DefaultPrefix = "osm_policy"

// Run statuses
const (
	StatusOK            = "ok"
	StatusRebuildFailed = "rebuild_failed"
	StatusError         = "error"
)

// Stage names used in logs, metrics and reports
const (
	StageTuning    = "tuning"
	StageLoad      = "load"
	StageInterpret = "interpret"
	StageMerge     = "merge"
	StageLink      = "link"
	StageSynth     = "synth"
	StageValidate  = "validate"
	StageRebuild   = "rebuild"
)

// Options configures one pipeline run.
type Options struct {
	NetworkPath string `validate:"required"`
	// Proposal is a file path, a glob pattern or inline text. Empty means
	// no proposal.
	Proposal   string
	TuningPath string
	OutDir     string `validate:"required"`
	Prefix     string

	NetconvertPath string
	SkipRebuild    bool
	RebuildTimeout time.Duration

	ApplyAttributeUpdates bool

	// Mirrors receive a copy of every artifact after the local write.
	Mirrors []artifact.Store `validate:"-"`
	// Metrics defaults to a fresh registry per run.
	Metrics *metrics.Registry `validate:"-"`
	Logger  logging.Logger    `validate:"-"`
}

// ProposalReport summarizes the interpreted proposal.
type ProposalReport struct {
	Found       bool            `json:"found"`
	Source      string          `json:"source,omitempty"`
	Method      string          `json:"method"`
	Snippets    int             `json:"snippets"`
	Actions     int             `json:"actions"`
	Reasoning   json.RawMessage `json:"reasoning,omitempty"`
	Diagnostics diag.List       `json:"diagnostics,omitempty"`
}

// TuningReport describes the policy source in effect.
type TuningReport struct {
	Source    string        `json:"source,omitempty"`
	Defaults  tuning.Policy `json:"defaults"`
	Overrides []string      `json:"overrides,omitempty"`
}

// Report is the outcome of one run, written as <prefix>_report.json.
type Report struct {
	RunID      string            `json:"runId"`
	Status     string            `json:"status"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Network    string            `json:"network"`
	Tuning     TuningReport      `json:"tuning"`
	Proposal   ProposalReport    `json:"proposal"`
	Merge      *merge.Report     `json:"merge"`
	Link       *link.Report      `json:"link"`
	Synth      *synth.Report     `json:"synth"`
	Violations synth.Violations  `json:"violations"`
	Rebuild    *rebuild.Result   `json:"rebuild,omitempty"`
	Artifacts  []artifact.Record `json:"artifacts"`
}

// Artifact names for a prefix
func MergedName(prefix string) string  { return prefix + "_merged.net.xml" }
func LinkedName(prefix string) string  { return prefix + "_linked.net.xml" }
func EnsuredName(prefix string) string { return prefix + "_ensured.net.xml" }
func RebuiltName(prefix string) string { return prefix + "_rebuilt.net.xml" }
func ReportName(prefix string) string  { return prefix + "_report.json" }
func MetricsName(prefix string) string { return prefix + "_metrics.prom" }
