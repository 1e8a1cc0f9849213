// Package merge applies a decoded proposal to a network.
package merge

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-signalpatch/pkg/diag"
	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/proposal"
	"github.com/dd0wney/cluso-signalpatch/pkg/validation"
)

const stage = "merge"

// Options controls which parts of a proposal are applied.
type Options struct {
	// ApplyAttributeUpdates enables update_attribute actions on
	// junctions and edges. Off by default.
	ApplyAttributeUpdates bool `json:"applyAttributeUpdates" yaml:"applyAttributeUpdates"`
}

// JunctionLink records a junction bound to a signal by an action.
type JunctionLink struct {
	SignalID   string `json:"signalId"`
	JunctionID string `json:"junctionId"`
	Exact      bool   `json:"exact"`
}

// Report summarizes one merge.
type Report struct {
	Added          []string       `json:"added"`
	Replaced       []string       `json:"replaced"`
	Skipped        int            `json:"skipped"`
	Linked         []JunctionLink `json:"linked"`
	Unlinked       []string       `json:"unlinked"`
	AppliedUpdates int            `json:"appliedUpdates"`
	IgnoredUpdates int            `json:"ignoredUpdates"`
	Diagnostics    diag.List      `json:"diagnostics"`
}

// Merger applies proposals.
type Merger struct {
	opts   Options
	logger logging.Logger
}

// New creates a Merger.
func New(opts Options, logger logging.Logger) *Merger {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Merger{opts: opts, logger: logger.With(logging.Component("merge"))}
}

// Merge applies p to n in place. A nil proposal leaves n untouched.
func (m *Merger) Merge(n *network.Network, p *proposal.Proposal) *Report {
	r := &Report{}
	if p == nil {
		m.logger.Info("no proposal to merge")
		return r
	}

	supplied := make(map[string]bool)
	for _, frag := range p.Fragments() {
		if id, ok := m.mergeFragment(n, frag, fmt.Sprintf("modified_snippets[%d]", frag.Index), r); ok {
			supplied[id] = true
		}
	}

	for i, a := range p.Actions {
		if a.Is(proposal.ActionCreateElement, proposal.TargetProgram) && a.Snippet != "" && !supplied[a.ID.String()] {
			frag := proposal.Classify(a.Snippet)
			if id, ok := m.mergeFragment(n, frag, fmt.Sprintf("actions[%d].xml_snippet", i), r); ok {
				supplied[id] = true
			}
		}
	}

	for i, a := range p.Actions {
		switch {
		case a.Is(proposal.ActionCreateElement, proposal.TargetProgram):
			m.linkJunction(n, a.ID.String(), r)
		case a.Type == proposal.ActionUpdateAttribute:
			m.updateAttribute(n, i, a, r)
		default:
			r.Diagnostics.Add(stage, a.ID.String(), "unsupported action %s on %s", a.Type, a.Target)
		}
	}

	m.logger.Info("merge complete",
		logging.Int("added", len(r.Added)),
		logging.Int("replaced", len(r.Replaced)),
		logging.Int("skipped", r.Skipped),
		logging.Int("linked", len(r.Linked)),
		logging.Int("unlinked", len(r.Unlinked)))
	return r
}

// mergeFragment inserts a tlLogic fragment, replacing every existing
// program with the same id.
func (m *Merger) mergeFragment(n *network.Network, frag proposal.Fragment, subject string, r *Report) (string, bool) {
	if frag.Kind != proposal.FragmentProgram {
		r.Skipped++
		if frag.Err != nil {
			r.Diagnostics.Add(stage, subject, "skipped invalid snippet: %v", frag.Err)
		} else {
			r.Diagnostics.Add(stage, subject, "skipped <%s> snippet, only tlLogic is merged", frag.Element.Tag())
		}
		m.logger.Warn("skipped snippet", logging.String("subject", subject), logging.String("kind", frag.Kind.String()))
		return "", false
	}

	prog := frag.Element.(*network.SignalProgram)
	if err := validation.ValidateElementID(prog.ID); err != nil {
		r.Skipped++
		r.Diagnostics.Add(stage, subject, "skipped tlLogic: %v", err)
		return "", false
	}

	if removed := n.RemovePrograms(prog.ID); removed > 0 {
		r.Replaced = append(r.Replaced, prog.ID)
		m.logger.Info("replaced signal program", logging.SignalID(prog.ID), logging.Count(removed))
	} else {
		r.Added = append(r.Added, prog.ID)
		m.logger.Info("added signal program", logging.SignalID(prog.ID))
	}
	n.Append(prog)
	return prog.ID, true
}

// linkJunction marks the junction a signal id names as signalized.
func (m *Merger) linkJunction(n *network.Network, signalID string, r *Report) {
	j, exact := FindJunction(n, signalID)
	if j == nil {
		r.Unlinked = append(r.Unlinked, signalID)
		r.Diagnostics.Add(stage, signalID, "no junction found for signal")
		m.logger.Warn("could not find junction for signal", logging.SignalID(signalID))
		return
	}

	j.Kind = network.KindTrafficLight
	j.SignalID = signalID
	r.Linked = append(r.Linked, JunctionLink{SignalID: signalID, JunctionID: j.ID, Exact: exact})
	m.logger.Info("linked junction", logging.JunctionID(j.ID), logging.SignalID(signalID), logging.Bool("exact", exact))
}

// FindJunction resolves the junction a signal id refers to. The TL_
// token is removed to get a junction id, which is looked up exactly and
// then as a substring of junction ids in document order, so cluster
// junctions are found by one of their member ids.
func FindJunction(n *network.Network, signalID string) (*network.Junction, bool) {
	junctionID := strings.ReplaceAll(signalID, "TL_", "")
	if junctionID == "" {
		return nil, false
	}
	if j := n.Junction(junctionID); j != nil {
		return j, true
	}
	for _, j := range n.Junctions() {
		if strings.Contains(j.ID, junctionID) {
			return j, false
		}
	}
	return nil, false
}

func (m *Merger) updateAttribute(n *network.Network, i int, a proposal.Action, r *Report) {
	subject := fmt.Sprintf("actions[%d]", i)
	if !m.opts.ApplyAttributeUpdates {
		r.IgnoredUpdates++
		return
	}
	if a.Attribute == "" || a.Attribute == "id" {
		r.IgnoredUpdates++
		r.Diagnostics.Add(stage, subject, "attribute %q cannot be updated", a.Attribute)
		return
	}

	id, value := a.ID.String(), a.NewValue.String()
	switch a.Target {
	case proposal.TargetJunction:
		j := n.Junction(id)
		if j == nil {
			r.IgnoredUpdates++
			r.Diagnostics.Add(stage, subject, "junction %s not found", id)
			return
		}
		j.SetAttr(a.Attribute, value)
	case proposal.TargetEdge:
		e := n.Edge(id)
		if e == nil {
			r.IgnoredUpdates++
			r.Diagnostics.Add(stage, subject, "edge %s not found", id)
			return
		}
		if err := e.SetAttr(a.Attribute, value); err != nil {
			r.IgnoredUpdates++
			r.Diagnostics.Add(stage, subject, "edge %s: %v", id, err)
			return
		}
	default:
		r.IgnoredUpdates++
		r.Diagnostics.Add(stage, subject, "attribute updates on %s are not supported", a.Target)
		return
	}

	r.AppliedUpdates++
	m.logger.Info("applied attribute update",
		logging.String("target", a.Target),
		logging.String("id", id),
		logging.String("attribute", a.Attribute))
}
