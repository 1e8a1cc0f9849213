// Package pipeline runs the patch pipeline end to end: tuning, network
// load, proposal interpretation, merge, link, synthesis, validation and
// rebuild, persisting an artifact after every mutating stage.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-signalpatch/pkg/artifact"
	"github.com/dd0wney/cluso-signalpatch/pkg/link"
	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/merge"
	"github.com/dd0wney/cluso-signalpatch/pkg/metrics"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/proposal"
	"github.com/dd0wney/cluso-signalpatch/pkg/rebuild"
	"github.com/dd0wney/cluso-signalpatch/pkg/synth"
	"github.com/dd0wney/cluso-signalpatch/pkg/tuning"
	"github.com/dd0wney/cluso-signalpatch/pkg/validation"
)

// Validate checks that the options can drive a run.
func (o Options) Validate() error {
	if err := validation.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	prefix := validation.DefaultOr(o.Prefix, DefaultPrefix)
	err := validation.NewConfigValidator("Options").
		Custom("Prefix", func() error { return artifact.ValidateName(ReportName(prefix)) }).
		When(!o.SkipRebuild, func(cv *validation.ConfigValidator) {
			cv.MinDuration("RebuildTimeout", o.RebuildTimeout, 0)
		}).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

type run struct {
	opts    Options
	prefix  string
	logger  logging.Logger
	metrics *metrics.Registry
	local   *artifact.FSStore
	store   *artifact.Recorder
	report  *Report
}

// Run executes the pipeline. Only a failure to load the network, to
// write an artifact or to rebuild is returned as an error; a rebuild
// failure is returned after every artifact, including the report, has
// been written. The report is returned whenever the run got far enough
// to produce one.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r, err := newRun(opts)
	if err != nil {
		return nil, err
	}

	report, err := r.execute(ctx)
	if err != nil && !errors.Is(err, rebuild.ErrRebuildFailed) {
		r.metrics.RecordRun(StatusError, time.Now())
		r.logger.Error("pipeline failed", logging.Error(err))
	}
	return report, err
}

func newRun(opts Options) (*run, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	local, err := artifact.NewFSStore(opts.OutDir)
	if err != nil {
		return nil, err
	}
	var store artifact.Store = local
	if len(opts.Mirrors) > 0 {
		store = artifact.NewTeeStore(local, opts.Mirrors...)
	}

	id := uuid.NewString()
	return &run{
		opts:    opts,
		prefix:  validation.DefaultOr(opts.Prefix, DefaultPrefix),
		logger:  logger.With(logging.Component("pipeline"), logging.RunID(id)),
		metrics: reg,
		local:   local,
		store:   artifact.NewRecorder(store),
		report: &Report{
			RunID:     id,
			StartedAt: time.Now().UTC(),
			Network:   opts.NetworkPath,
		},
	}, nil
}

func (r *run) execute(ctx context.Context) (*Report, error) {
	r.logger.Info("starting run",
		logging.Path(r.opts.NetworkPath),
		logging.String("out_dir", r.opts.OutDir),
		logging.String("prefix", r.prefix))

	var policies *tuning.Config
	r.stage(StageTuning, func() {
		policies = tuning.Load(r.opts.TuningPath, r.logger)
		r.report.Tuning = TuningReport{
			Source:    policies.Source(),
			Defaults:  policies.Defaults(),
			Overrides: policies.Signals(),
		}
		r.metrics.SetTuningOverrides(len(r.report.Tuning.Overrides))
	})

	var (
		net *network.Network
		err error
	)
	r.stage(StageLoad, func() {
		net, err = network.LoadFile(r.opts.NetworkPath)
	})
	if err != nil {
		return nil, err
	}

	var prop *proposal.Proposal
	r.stage(StageInterpret, func() {
		prop = r.interpret(ctx)
	})

	r.stage(StageMerge, func() {
		m := merge.New(merge.Options{ApplyAttributeUpdates: r.opts.ApplyAttributeUpdates}, r.logger)
		rep := m.Merge(net, prop)
		r.report.Merge = rep
		r.recordMerge(rep)
	})
	if err := r.writeNetwork(ctx, MergedName(r.prefix), net); err != nil {
		return nil, err
	}

	var assignment *link.Assignment
	r.stage(StageLink, func() {
		var rep *link.Report
		assignment, rep = link.Link(net, r.logger)
		r.report.Link = rep
		r.metrics.RecordLink(rep.Signals, rep.Linked, rep.Unmatched, rep.ByRule, rep.LinksBySignal)
	})
	if err := r.writeNetwork(ctx, LinkedName(r.prefix), net); err != nil {
		return nil, err
	}

	r.stage(StageSynth, func() {
		rep := synth.New(policies, r.logger).Ensure(net, assignment)
		r.report.Synth = rep
		for _, g := range rep.Regenerated {
			r.metrics.RecordRegeneration(string(g.Reason))
		}
	})
	ensured := EnsuredName(r.prefix)
	if err := r.writeNetwork(ctx, ensured, net); err != nil {
		return nil, err
	}

	r.stage(StageValidate, func() {
		r.report.Violations = synth.Validate(net, assignment)
		r.metrics.RecordSynthesis(r.report.Synth.Unchanged, len(r.report.Violations))
		for _, v := range r.report.Violations {
			r.logger.Warn("program violation", logging.SignalID(v.SignalID), logging.String("rule", v.Rule), logging.String("detail", v.Message))
		}
	})

	var rebuildErr error
	r.stage(StageRebuild, func() {
		rebuildErr = r.rebuild(ctx, ensured)
	})

	r.report.Status = StatusOK
	if rebuildErr != nil {
		r.report.Status = StatusRebuildFailed
	}
	if err := r.finish(ctx); err != nil {
		return r.report, err
	}
	return r.report, rebuildErr
}

// stage times fn under the stage name.
func (r *run) stage(name string, fn func()) {
	timer := logging.StartTimer(r.logger, "stage", logging.Stage(name))
	fn()
	r.metrics.RecordStage(name, timer.End())
}

func (r *run) interpret(ctx context.Context) *proposal.Proposal {
	in := proposal.NewInterpreter(r, r.logger)
	p, err := in.Interpret(ctx, r.opts.Proposal)
	if err != nil {
		r.metrics.RecordProposal(proposal.MethodNone.String())
		r.report.Proposal = ProposalReport{Method: proposal.MethodNone.String()}
		if !proposal.IsNoProposal(err) {
			r.logger.Warn("proposal ignored", logging.Error(err))
		}
		return nil
	}

	r.metrics.RecordProposal(p.Method.String())
	r.metrics.RecordDiagnostics(StageInterpret, p.Diagnostics.Len())
	r.report.Proposal = ProposalReport{
		Found:       true,
		Method:      p.Method.String(),
		Snippets:    len(p.Snippets),
		Actions:     len(p.Actions),
		Reasoning:   p.Reasoning,
		Diagnostics: p.Diagnostics,
	}
	if src, err := proposal.ResolveSource(r.opts.Proposal); err == nil {
		r.report.Proposal.Source = src.Path
	}
	return p
}

func (r *run) recordMerge(rep *merge.Report) {
	exact, substring := 0, 0
	for _, l := range rep.Linked {
		if l.Exact {
			exact++
		} else {
			substring++
		}
	}
	r.metrics.RecordMerge(len(rep.Added), len(rep.Replaced), rep.Skipped,
		exact, substring, len(rep.Unlinked), rep.AppliedUpdates, rep.IgnoredUpdates)
	r.metrics.RecordDiagnostics(StageMerge, rep.Diagnostics.Len())
}

// Put writes an artifact through the recording store and counts it.
func (r *run) Put(ctx context.Context, name string, data []byte) error {
	if err := r.store.Put(ctx, name, data); err != nil {
		return err
	}
	r.metrics.RecordArtifact(len(data))
	r.logger.Debug("wrote artifact", logging.String("artifact", name), logging.Int("bytes", len(data)))
	return nil
}

func (r *run) writeNetwork(ctx context.Context, name string, n *network.Network) error {
	data, err := n.Bytes()
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := r.Put(ctx, name, data); err != nil {
		return err
	}
	r.logger.Info("wrote network", logging.Path(r.store.Location(name)))
	return nil
}

func (r *run) rebuild(ctx context.Context, ensured string) error {
	if r.opts.SkipRebuild {
		r.metrics.RecordRebuild("skipped", 0)
		r.logger.Info("rebuild skipped")
		return nil
	}

	nc := rebuild.New(r.opts.NetconvertPath, r.opts.RebuildTimeout, r.logger)
	rebuilt := RebuiltName(r.prefix)
	res, err := nc.Rebuild(ctx, r.local.Location(ensured), r.local.Location(rebuilt))
	r.report.Rebuild = &res
	if err != nil {
		r.metrics.RecordRebuild("failure", res.Duration)
		return err
	}
	r.metrics.RecordRebuild("success", res.Duration)

	// Re-put the compiler output so it is mirrored and digested like
	// every other artifact.
	data, err := os.ReadFile(res.Output)
	if err != nil {
		return fmt.Errorf("%w: read output: %v", rebuild.ErrRebuildFailed, err)
	}
	return r.Put(ctx, rebuilt, data)
}

// finish writes the metrics and the report. The report lists every
// artifact written before it.
func (r *run) finish(ctx context.Context) error {
	r.report.FinishedAt = time.Now().UTC()
	status := r.report.Status
	r.metrics.RecordRun(status, r.report.FinishedAt)

	text, err := r.metrics.Text()
	if err != nil {
		return err
	}
	if err := r.Put(ctx, MetricsName(r.prefix), text); err != nil {
		return err
	}

	r.report.Artifacts = r.store.Records()
	data, err := json.MarshalIndent(r.report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := r.Put(ctx, ReportName(r.prefix), data); err != nil {
		return err
	}

	r.logger.Info("run finished",
		logging.String("status", status),
		logging.Int("regenerated", len(r.report.Synth.Regenerated)),
		logging.Int("violations", len(r.report.Violations)),
		logging.Path(r.store.Location(ReportName(r.prefix))))
	return nil
}
