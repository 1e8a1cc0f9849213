// Package synth generates actuated signal programs sized to the
// movements each signal controls.
package synth

import (
	"math"
	"strings"

	"github.com/dd0wney/cluso-signalpatch/pkg/link"
	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/tuning"
)

// Policies resolves the timing policy of a signal. *tuning.Config
// implements it.
type Policies interface {
	Resolve(signalID string) tuning.Policy
}

// Reason says why a program was regenerated.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonNotActuated Reason = "not-actuated"
	ReasonNoPhases    Reason = "no-phases"
	ReasonStateLength Reason = "state-length"
)

// Regeneration records one rewritten program.
type Regeneration struct {
	SignalID  string `json:"signalId"`
	Links     int    `json:"links"`
	MainLinks int    `json:"mainLinks"`
	Reason    Reason `json:"reason"`
}

// Report summarizes one Ensure pass.
type Report struct {
	Regenerated []Regeneration `json:"regenerated"`
	Created     []string       `json:"created"`
	Unchanged   int            `json:"unchanged"`
}

// Partition returns how many of n movements get the main green:
// round-half-even of n*share, at least 1, and at most n-1 when n > 1.
func Partition(n int, share float64) int {
	if n <= 1 {
		return 1
	}
	m := int(math.RoundToEven(float64(n) * share))
	if m < 1 {
		m = 1
	}
	if m > n-1 {
		m = n - 1
	}
	return m
}

// States returns the main-green, main-yellow, side-green and side-yellow
// state strings for n movements with the first m on the main approach.
func States(n, m int) [4]string {
	if n <= 0 {
		return [4]string{}
	}
	var out [4]string
	for k, pair := range [4][2]byte{{'G', 'r'}, {'y', 'r'}, {'r', 'G'}, {'r', 'y'}} {
		var sb strings.Builder
		sb.Grow(n)
		for i := 0; i < n; i++ {
			if i < m {
				sb.WriteByte(pair[0])
			} else {
				sb.WriteByte(pair[1])
			}
		}
		out[k] = sb.String()
	}
	return out
}

// Phases builds the four-phase actuated cycle for n movements.
func Phases(n int, p tuning.Policy) []network.Phase {
	s := States(n, Partition(n, p.MainShareFraction))
	y := p.YellowDuration
	return []network.Phase{
		{Duration: p.GreenMain.Dur, MinDur: network.Seconds(p.GreenMain.Min), MaxDur: network.Seconds(p.GreenMain.Max), State: s[0]},
		{Duration: y, MinDur: network.Seconds(y), MaxDur: network.Seconds(y), State: s[1]},
		{Duration: p.GreenSide.Dur, MinDur: network.Seconds(p.GreenSide.Min), MaxDur: network.Seconds(p.GreenSide.Max), State: s[2]},
		{Duration: y, MinDur: network.Seconds(y), MaxDur: network.Seconds(y), State: s[3]},
	}
}

// NeedsRegeneration reports whether prog must be rewritten to control
// n movements. A nil program is missing.
func NeedsRegeneration(prog *network.SignalProgram, n int) (Reason, bool) {
	switch {
	case prog == nil:
		return ReasonMissing, true
	case prog.Type != network.ProgramActuated:
		return ReasonNotActuated, true
	case len(prog.Phases) == 0:
		return ReasonNoPhases, true
	}
	for _, ph := range prog.Phases {
		if len(ph.State) != n {
			return ReasonStateLength, true
		}
	}
	return "", false
}

// Synthesizer ensures every controlled signal has a valid program.
type Synthesizer struct {
	policies Policies
	logger   logging.Logger
}

// New creates a Synthesizer. A nil policies uses the built-in defaults.
func New(policies Policies, logger logging.Logger) *Synthesizer {
	if policies == nil {
		policies = tuning.New(tuning.Defaults(), nil, logger)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Synthesizer{policies: policies, logger: logger.With(logging.Component("synth"))}
}

// Ensure creates or regenerates programs in n for every signal in a.
// Programs that are already actuated and correctly sized are left alone.
func (s *Synthesizer) Ensure(n *network.Network, a *link.Assignment) *Report {
	r := &Report{}
	for _, id := range a.Signals() {
		count := a.Count(id)
		if count == 0 {
			continue
		}

		prog := n.Program(id)
		reason, regen := NeedsRegeneration(prog, count)
		if !regen {
			r.Unchanged++
			continue
		}

		if prog == nil {
			prog = &network.SignalProgram{ID: id, Type: network.ProgramActuated, ProgramID: "0", Offset: "0"}
			n.Append(prog)
			r.Created = append(r.Created, id)
			s.logger.Info("created signal program", logging.SignalID(id))
		}

		policy := s.policies.Resolve(id)
		prog.Type = network.ProgramActuated
		prog.Phases = Phases(count, policy)

		m := Partition(count, policy.MainShareFraction)
		r.Regenerated = append(r.Regenerated, Regeneration{SignalID: id, Links: count, MainLinks: m, Reason: reason})
		s.logger.Info("regenerated actuated phases",
			logging.SignalID(id),
			logging.Int("links", count),
			logging.Int("main_links", m),
			logging.String("reason", string(reason)))
	}

	s.logger.Info("program check complete",
		logging.Int("regenerated", len(r.Regenerated)),
		logging.Int("unchanged", r.Unchanged))
	return r
}
