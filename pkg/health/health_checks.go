package health

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/proposal"
	"github.com/dd0wney/cluso-signalpatch/pkg/tuning"
)

// Common preflight check functions

// NetworkCheck verifies the input network loads
func NetworkCheck(path string) CheckFunc {
	return func() Check {
		check := Check{Details: make(map[string]any)}

		n, err := network.LoadFile(path)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		s := network.Summarize(n, 0)
		check.Details["junctions"] = s.TotalJunctions
		check.Details["signalized_junctions"] = s.SignalizedJunctions
		check.Details["connections"] = s.TotalConnections
		check.Status = StatusHealthy
		check.Message = "Network loads"
		return check
	}
}

// OutputDirCheck verifies artifacts can be written to dir
func OutputDirCheck(dir string) CheckFunc {
	return func() Check {
		check := Check{}

		if err := os.MkdirAll(dir, 0755); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		f, err := os.CreateTemp(dir, ".preflight-*")
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		f.Close()
		os.Remove(f.Name())

		check.Status = StatusHealthy
		check.Message = "Writable"
		return check
	}
}

// CompilerCheck looks for the network compiler. A missing compiler only
// degrades the run since the rebuild can be skipped.
func CompilerCheck(path string) CheckFunc {
	return func() Check {
		check := Check{Details: make(map[string]any)}

		resolved, err := exec.LookPath(path)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = "Not found; use --skip-rebuild or --netconvert"
			if home := os.Getenv("SUMO_HOME"); home != "" {
				check.Details["sumo_home"] = home
				check.Details["hint"] = filepath.Join(home, "bin", "netconvert")
			}
			return check
		}

		check.Details["path"] = resolved
		check.Status = StatusHealthy
		check.Message = "Found"
		return check
	}
}

// TuningCheck verifies the tuning file parses and its defaults are valid.
// Failures degrade the run since built-in defaults are used instead.
func TuningCheck(path string) CheckFunc {
	return func() Check {
		check := Check{Details: make(map[string]any)}

		if path == "" {
			check.Status = StatusHealthy
			check.Message = "Built-in defaults"
			return check
		}

		data, err := os.ReadFile(path)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}
		doc, err := tuning.Parse(data, tuning.FormatFor(path))
		if err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}
		cfg, err := tuning.FromDocument(doc, nil)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}

		invalid := 0
		for _, id := range cfg.Signals() {
			if _, err := cfg.Lookup(id); err != nil {
				invalid++
			}
		}
		check.Details["overrides"] = len(cfg.Signals())
		check.Details["invalid_overrides"] = invalid
		if invalid > 0 {
			check.Status = StatusDegraded
			check.Message = "Some overrides are invalid and will be dropped"
			return check
		}

		check.Status = StatusHealthy
		check.Message = "Valid"
		return check
	}
}

// ProposalCheck verifies the proposal decodes. An undecodable proposal
// degrades the run, which then leaves the network unmodified.
func ProposalCheck(source string) CheckFunc {
	return func() Check {
		check := Check{Details: make(map[string]any)}

		if source == "" {
			check.Status = StatusDegraded
			check.Message = "No proposal; the network passes through unmodified"
			return check
		}

		src, err := proposal.ResolveSource(source)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = err.Error()
			return check
		}
		if src.Path != "" {
			check.Details["path"] = src.Path
		}

		p, err := proposal.Decode(src.Text)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = "Proposal does not decode"
			return check
		}

		check.Details["method"] = p.Method.String()
		check.Details["snippets"] = len(p.Snippets)
		check.Details["actions"] = len(p.Actions)
		check.Status = StatusHealthy
		check.Message = "Decodes"
		return check
	}
}
