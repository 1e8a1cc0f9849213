// Package link binds turning movements to the signals governing their
// junctions and numbers them per signal.
package link

import (
	"strings"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
)

// DefaultState is set on a linked connection that has no state.
const DefaultState = "O"

// ViaToken names the internal lane a connection passes through, for
// example ":J1_0_0". It is matched only by the rules below.
type ViaToken string

// Rule is a named test of a via token against a junction id.
type Rule struct {
	Name  string
	match func(via, junctionID string) bool
}

// Match reports whether via belongs to the junction under this rule.
func (r Rule) Match(via ViaToken, junctionID string) bool {
	return r.match(string(via), junctionID)
}

var rules = []Rule{
	{"internal-lane-prefix", func(via, id string) bool { return strings.Contains(via, ":"+id+"_") }},
	{"internal-lane-exact", func(via, id string) bool { return strings.HasSuffix(via, ":"+id) }},
	{"internal-lane-contains", func(via, id string) bool { return strings.Contains(via, ":"+id) }},
}

// Rules returns the via rules in the order they are tried.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// MatchJunction returns the first rule under which via belongs to the
// junction.
func (v ViaToken) MatchJunction(junctionID string) (Rule, bool) {
	for _, r := range rules {
		if r.Match(v, junctionID) {
			return r, true
		}
	}
	return Rule{}, false
}

// Assignment maps signal ids to their connections in link-index order.
// Signals are kept in order of first appearance in the file.
type Assignment struct {
	order []string
	conns map[string][]*network.Connection
}

// NewAssignment groups every controlled connection of n by signal id in
// file order without modifying n.
func NewAssignment(n *network.Network) *Assignment {
	a := &Assignment{conns: make(map[string][]*network.Connection)}
	for _, c := range n.Connections() {
		if c.IsControlled() {
			a.add(c.SignalID, c)
		}
	}
	return a
}

func (a *Assignment) add(signalID string, c *network.Connection) {
	if _, ok := a.conns[signalID]; !ok {
		a.order = append(a.order, signalID)
	}
	a.conns[signalID] = append(a.conns[signalID], c)
}

// Signals returns the signal ids in order of first appearance.
func (a *Assignment) Signals() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Connections returns the connections of a signal in link-index order.
func (a *Assignment) Connections(signalID string) []*network.Connection {
	return a.conns[signalID]
}

// Count returns the number of connections controlled by a signal.
func (a *Assignment) Count(signalID string) int {
	return len(a.conns[signalID])
}

// Total returns the number of controlled connections.
func (a *Assignment) Total() int {
	total := 0
	for _, c := range a.conns {
		total += len(c)
	}
	return total
}

// Report summarizes one link pass.
type Report struct {
	Signals       int            `json:"signals"`
	Linked        int            `json:"linked"`
	Unmatched     int            `json:"unmatched"`
	DefaultedIDs  []string       `json:"defaultedIds,omitempty"`
	ByRule        map[string]int `json:"byRule"`
	LinksBySignal map[string]int `json:"linksBySignal"`
}

type junctionSignal struct {
	junctionID string
	signalID   string
}

// Link binds connections to signals in place and assigns link indices
// 0..n-1 per signal in file order.
func Link(n *network.Network, logger logging.Logger) (*Assignment, *Report) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("link"))

	r := &Report{ByRule: make(map[string]int), LinksBySignal: make(map[string]int)}
	governed := signalizedJunctions(n, r)

	for _, c := range n.Connections() {
		if c.Via == "" {
			continue
		}
		via := ViaToken(c.Via)
		matched := false
		for _, js := range governed {
			rule, ok := via.MatchJunction(js.junctionID)
			if !ok {
				continue
			}
			c.Uncontrolled = ""
			c.SignalID = js.signalID
			if c.State == "" {
				c.State = DefaultState
			}
			r.Linked++
			r.ByRule[rule.Name]++
			matched = true
			break
		}
		if !matched {
			r.Unmatched++
		}
	}

	a := NewAssignment(n)
	for _, id := range a.order {
		for i, c := range a.conns[id] {
			c.SetLinkIndex(i)
		}
		r.LinksBySignal[id] = len(a.conns[id])
	}
	r.Signals = len(a.order)

	logger.Info("linked connections",
		logging.Int("linked", r.Linked),
		logging.Int("signals", r.Signals),
		logging.Int("unmatched", r.Unmatched))
	return a, r
}

// signalizedJunctions returns the traffic_light junctions in document
// order, giving each a signal id (TL_<id> when unset). A repeated
// junction id keeps its first position and its last signal id.
func signalizedJunctions(n *network.Network, r *Report) []junctionSignal {
	var out []junctionSignal
	pos := make(map[string]int)
	for _, j := range n.Junctions() {
		if !j.IsSignalized() {
			continue
		}
		if j.SignalID == "" {
			j.SignalID = "TL_" + j.ID
			r.DefaultedIDs = append(r.DefaultedIDs, j.SignalID)
		}
		if i, ok := pos[j.ID]; ok {
			out[i].signalID = j.SignalID
			continue
		}
		pos[j.ID] = len(out)
		out = append(out, junctionSignal{junctionID: j.ID, signalID: j.SignalID})
	}
	return out
}
