package proposal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-signalpatch/pkg/network"
	"github.com/dd0wney/cluso-signalpatch/pkg/validation"
)

// wireProposal defers decoding of the lists so one bad entry does not
// reject the whole proposal.
type wireProposal struct {
	Snippets  json.RawMessage `json:"modified_snippets"`
	Actions   json.RawMessage `json:"actions"`
	Reasoning json.RawMessage `json:"reasoning"`
}

// Decode recovers a proposal from free text. It tries, in order, the
// whole text as one JSON document, the span from the first '{' to the
// last '}', and each balanced top-level object that carries proposal
// keys. It returns ErrNoProposal when every attempt fails.
func Decode(text string) (*Proposal, error) {
	if p, _, err := decodeObject(text); err == nil {
		p.Method = MethodDocument
		return p, nil
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if p, _, err := decodeObject(stripCR(text[start : end+1])); err == nil {
			p.Method = MethodSpan
			return p, nil
		}
	}

	for _, c := range findCandidates(text) {
		p, keyed, err := decodeObject(stripCR(c))
		if err == nil && keyed {
			p.Method = MethodCandidate
			return p, nil
		}
	}
	return nil, ErrNoProposal
}

func stripCR(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}

// decodeObject decodes one JSON object. keyed reports whether it named
// modified_snippets or actions.
func decodeObject(text string) (p *Proposal, keyed bool, err error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false, errors.New("not a JSON object")
	}
	var w wireProposal
	if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
		return nil, false, err
	}
	p = &Proposal{Reasoning: w.Reasoning}
	keyed = w.Snippets != nil || w.Actions != nil

	p.Snippets = decodeSnippets(w.Snippets, p)
	p.Actions = decodeActions(w.Actions, p)
	return p, keyed, nil
}

func decodeSnippets(raw json.RawMessage, p *Proposal) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var one string
	if raw[0] == '"' && json.Unmarshal(raw, &one) == nil {
		return []string{one}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.Diagnostics.Add("interpret", "modified_snippets", "not a list: %v", err)
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			// Kept as raw text; it fails fragment parsing and is skipped there.
			s = string(item)
		}
		out = append(out, s)
	}
	return out
}

func decodeActions(raw json.RawMessage, p *Proposal) []Action {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.Diagnostics.Add("interpret", "actions", "not a list: %v", err)
		return nil
	}

	out := make([]Action, 0, len(items))
	for i, item := range items {
		var a Action
		if err := json.Unmarshal(item, &a); err != nil {
			p.Diagnostics.Add("interpret", fmt.Sprintf("actions[%d]", i), "undecodable: %v", err)
			continue
		}
		if err := validation.Struct(a); err != nil {
			p.Diagnostics.Add("interpret", fmt.Sprintf("actions[%d]", i), "dropped: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

// findCandidates returns every balanced top-level {...} span, skipping
// braces inside JSON strings.
func findCandidates(s string) []string {
	var candidates []string
	depth, start := 0, -1
	inString, escape := false, false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// UnmarshalJSON accepts a string, number, bool or null.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*f = FlexString(b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string, number or bool, got %s", b)
		}
		*f = FlexString(n.String())
	}
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// Classify parses a fragment and reports its root element kind.
func Classify(text string) Fragment {
	frag := Fragment{Text: text}
	elem, err := network.ParseFragment(text)
	if err != nil {
		frag.Err = err
		return frag
	}
	frag.Element = elem
	switch elem.(type) {
	case *network.SignalProgram:
		frag.Kind = FragmentProgram
	case *network.Edge:
		frag.Kind = FragmentEdge
	case *network.Junction:
		frag.Kind = FragmentJunction
	default:
		frag.Kind = FragmentOther
	}
	return frag
}

// Fragments classifies every snippet in order.
func (p *Proposal) Fragments() []Fragment {
	if p == nil {
		return nil
	}
	out := make([]Fragment, len(p.Snippets))
	for i, s := range p.Snippets {
		out[i] = Classify(s)
		out[i].Index = i
	}
	return out
}
