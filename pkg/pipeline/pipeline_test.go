package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dd0wney/cluso-signalpatch/pkg/artifact"
	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/network/nettest"
	"github.com/dd0wney/cluso-signalpatch/pkg/proposal"
	"github.com/dd0wney/cluso-signalpatch/pkg/rebuild"
	"github.com/dd0wney/cluso-signalpatch/pkg/synth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const signalJ1 = `{
  "modified_snippets": [
    "<tlLogic id=\"TL_J1\" type=\"actuated\" programID=\"0\" offset=\"0\"><phase duration=\"5\" state=\"G\"/></tlLogic>"
  ],
  "actions": [
    {"type": "create_element", "target": "tlLogic", "id": "TL_J1"}
  ],
  "reasoning": ["J1 carries the main street"]
}`

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memStore) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) Location(name string) string {
	return "mem://" + name
}

func writeNet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "small.net.xml")
	require.NoError(t, os.WriteFile(path, []byte(nettest.SmallNetXML), 0644))
	return path
}

func baseOptions(t *testing.T) Options {
	return Options{
		NetworkPath: writeNet(t),
		OutDir:      t.TempDir(),
		Prefix:      "run",
		SkipRebuild: true,
		Logger:      logging.NewNopLogger(),
	}
}

func readArtifact(t *testing.T, opts Options, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(opts.OutDir, name))
	require.NoError(t, err)
	return data
}

func fakeCompiler(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "netconvert")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestRunWithoutProposal(t *testing.T) {
	opts := baseOptions(t)

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Proposal.Found)
	assert.Equal(t, "none", report.Proposal.Method)

	// The merged network is the input, re-encoded.
	assert.Equal(t, string(nettest.Encode(t, nettest.SmallNet(t))), string(readArtifact(t, opts, MergedName("run"))))

	// TL_J2 is static with a two-movement state for one movement.
	require.Len(t, report.Synth.Regenerated, 1)
	assert.Equal(t, "TL_J2", report.Synth.Regenerated[0].SignalID)
	assert.Equal(t, synth.ReasonNotActuated, report.Synth.Regenerated[0].Reason)
	assert.Empty(t, report.Violations)
	assert.Nil(t, report.Rebuild)

	names := make([]string, 0, len(report.Artifacts))
	for _, rec := range report.Artifacts {
		names = append(names, rec.Name)
		data, err := os.ReadFile(rec.Location)
		require.NoError(t, err)
		assert.Equal(t, artifact.Digest(data), rec.Digest, rec.Name)
		assert.Equal(t, len(data), rec.Size, rec.Name)
	}
	assert.Equal(t, []string{MergedName("run"), LinkedName("run"), EnsuredName("run"), MetricsName("run")}, names)
}

func TestRunMergesProposal(t *testing.T) {
	opts := baseOptions(t)
	opts.Proposal = "Here is the plan:\n" + signalJ1 + "\nGood luck!"

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, report.Proposal.Found)
	assert.Equal(t, proposal.MethodSpan.String(), report.Proposal.Method)
	assert.JSONEq(t, `["J1 carries the main street"]`, string(report.Proposal.Reasoning))
	assert.Equal(t, []string{"TL_J1"}, report.Merge.Added)
	require.Len(t, report.Merge.Linked, 1)
	assert.Equal(t, "J1", report.Merge.Linked[0].JunctionID)
	assert.Equal(t, 2, report.Link.LinksBySignal["TL_J1"])

	ensured, err := network.Parse(readArtifact(t, opts, EnsuredName("run")))
	require.NoError(t, err)
	tl := ensured.Program("TL_J1")
	require.NotNil(t, tl)
	require.Len(t, tl.Phases, 4)
	states := make([]string, 0, 4)
	for _, p := range tl.Phases {
		states = append(states, p.State)
	}
	assert.Equal(t, []string{"Gr", "yr", "rG", "ry"}, states)

	j1 := ensured.Junction("J1")
	assert.Equal(t, network.KindTrafficLight, j1.Kind)
	assert.Equal(t, "TL_J1", j1.SignalID)
}

func TestRunUndecodableProposalLeavesNetworkUnchanged(t *testing.T) {
	opts := baseOptions(t)
	opts.Proposal = "not json at all"

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, report.Proposal.Found)

	assert.Equal(t, string(nettest.Encode(t, nettest.SmallNet(t))), string(readArtifact(t, opts, MergedName("run"))))
	assert.Equal(t, "not json at all", string(readArtifact(t, opts, proposal.InvalidOutputName)))

	var names []string
	for _, rec := range report.Artifacts {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, proposal.InvalidOutputName)
}

func TestRunWritesReportAndMetrics(t *testing.T) {
	opts := baseOptions(t)

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	var got struct {
		RunID     string            `json:"runId"`
		Status    string            `json:"status"`
		Artifacts []artifact.Record `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(readArtifact(t, opts, ReportName("run")), &got))
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, StatusOK, got.Status)
	assert.Len(t, got.Artifacts, len(report.Artifacts))

	prom := string(readArtifact(t, opts, MetricsName("run")))
	for _, want := range []string{
		`signalpatch_runs_total{status="ok"} 1`,
		`signalpatch_programs_regenerated_total{reason="not-actuated"} 1`,
		`signalpatch_rebuilds_total{status="skipped"} 1`,
		`signalpatch_proposals_total{method="none"} 1`,
	} {
		assert.Contains(t, prom, want)
	}
}

func TestRunRebuildSuccess(t *testing.T) {
	opts := baseOptions(t)
	opts.SkipRebuild = false
	opts.NetconvertPath = fakeCompiler(t, `cp "$2" "$4"`)
	opts.RebuildTimeout = 10 * time.Second

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, report.Rebuild)
	assert.True(t, report.Rebuild.OK)

	assert.Equal(t, readArtifact(t, opts, EnsuredName("run")), readArtifact(t, opts, RebuiltName("run")))
	var names []string
	for _, rec := range report.Artifacts {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, RebuiltName("run"))
}

func TestRunRebuildFailureKeepsArtifacts(t *testing.T) {
	opts := baseOptions(t)
	opts.SkipRebuild = false
	opts.NetconvertPath = fakeCompiler(t, `echo "Error: invalid tlLogic" >&2; exit 1`)

	report, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rebuild.ErrRebuildFailed))

	require.NotNil(t, report)
	assert.Equal(t, StatusRebuildFailed, report.Status)
	assert.Equal(t, "Error: invalid tlLogic", report.Rebuild.Stderr)

	for _, name := range []string{MergedName("run"), LinkedName("run"), EnsuredName("run"), MetricsName("run"), ReportName("run")} {
		_, statErr := os.Stat(filepath.Join(opts.OutDir, name))
		assert.NoError(t, statErr, name)
	}
	_, statErr := os.Stat(filepath.Join(opts.OutDir, RebuiltName("run")))
	assert.True(t, os.IsNotExist(statErr))

	assert.Contains(t, string(readArtifact(t, opts, ReportName("run"))), `"status": "rebuild_failed"`)
}

func TestRunMirrorsArtifacts(t *testing.T) {
	opts := baseOptions(t)
	mirror := &memStore{}
	opts.Mirrors = append(opts.Mirrors, mirror)

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	for _, name := range []string{MergedName("run"), LinkedName("run"), EnsuredName("run"), MetricsName("run"), ReportName("run")} {
		assert.Equal(t, readArtifact(t, opts, name), mirror.files[name], name)
	}
}

func TestRunMissingNetwork(t *testing.T) {
	opts := baseOptions(t)
	opts.NetworkPath = filepath.Join(t.TempDir(), "missing.net.xml")

	report, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Nil(t, report)

	var pe *network.ParseError
	assert.True(t, errors.As(err, &pe))
	_, statErr := os.Stat(filepath.Join(opts.OutDir, MergedName("run")))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCancelledContext(t *testing.T) {
	opts := baseOptions(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunIsIdempotentOnItsOutput(t *testing.T) {
	first := baseOptions(t)
	first.Proposal = signalJ1
	_, err := Run(context.Background(), first)
	require.NoError(t, err)

	second := baseOptions(t)
	second.NetworkPath = filepath.Join(first.OutDir, EnsuredName("run"))
	report, err := Run(context.Background(), second)
	require.NoError(t, err)

	assert.Empty(t, report.Synth.Regenerated)
	assert.Equal(t, 2, report.Synth.Unchanged)
	assert.Equal(t, string(readArtifact(t, first, EnsuredName("run"))), string(readArtifact(t, second, EnsuredName("run"))))
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr string
	}{
		{"valid", func(*Options) {}, ""},
		{"missing network", func(o *Options) { o.NetworkPath = "" }, "NetworkPath"},
		{"missing out dir", func(o *Options) { o.OutDir = "" }, "OutDir"},
		{"prefix with separator", func(o *Options) { o.Prefix = "a/b" }, "Prefix"},
		{"negative timeout", func(o *Options) { o.SkipRebuild = false; o.RebuildTimeout = -time.Second }, "RebuildTimeout"},
		{"negative timeout ignored when skipping", func(o *Options) { o.RebuildTimeout = -time.Second }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{NetworkPath: "in.net.xml", OutDir: "out", SkipRebuild: true}
			tt.modify(&opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOptions))
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "got %v", err)
		})
	}
}
