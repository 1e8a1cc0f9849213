package synth

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-signalpatch/pkg/link"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
)

// Violation kinds.
const (
	RuleUnknownProgram = "unknown-program"
	RuleNotActuated    = "not-actuated"
	RuleNoPhases       = "no-phases"
	RuleStateLength    = "state-length"
	RuleDuration       = "duration-order"
)

// Violation is one structural problem with a signal program.
type Violation struct {
	SignalID string `json:"signalId"`
	Phase    int    `json:"phase"` // -1 for program-level violations
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

func (v Violation) String() string {
	if v.Phase < 0 {
		return fmt.Sprintf("%s: %s: %s", v.SignalID, v.Rule, v.Message)
	}
	return fmt.Sprintf("%s phase %d: %s: %s", v.SignalID, v.Phase, v.Rule, v.Message)
}

// Violations is the result of Validate.
type Violations []Violation

// Err returns nil when there are no violations.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	errs := make([]error, len(vs))
	for i, v := range vs {
		errs[i] = errors.New(v.String())
	}
	return fmt.Errorf("%d program violations: %w", len(vs), errors.Join(errs...))
}

// Validate checks every signal in a against its program without
// modifying n.
func Validate(n *network.Network, a *link.Assignment) Violations {
	var vs Violations
	add := func(id string, phase int, rule, format string, args ...any) {
		vs = append(vs, Violation{SignalID: id, Phase: phase, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	for _, id := range a.Signals() {
		count := a.Count(id)
		if count == 0 {
			continue
		}
		prog := n.Program(id)
		if prog == nil {
			add(id, -1, RuleUnknownProgram, "%d connections reference a signal with no program", count)
			continue
		}
		if prog.Type != network.ProgramActuated {
			add(id, -1, RuleNotActuated, "type is %q", prog.Type)
		}
		if len(prog.Phases) == 0 {
			add(id, -1, RuleNoPhases, "program has no phases")
		}
		for i, ph := range prog.Phases {
			if len(ph.State) != count {
				add(id, i, RuleStateLength, "state %q has %d signals, want %d", ph.State, len(ph.State), count)
			}
			if ph.Min() < 0 || ph.Min() > ph.Duration || ph.Duration > ph.Max() {
				add(id, i, RuleDuration, "expected 0 <= minDur %g <= duration %g <= maxDur %g", ph.Min(), ph.Duration, ph.Max())
			}
		}
	}
	return vs
}
