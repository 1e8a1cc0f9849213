package proposal

import (
	"encoding/json"
	"errors"

	"github.com/dd0wney/cluso-signalpatch/pkg/diag"
	"github.com/dd0wney/cluso-signalpatch/pkg/network"
)

// ErrNoProposal is returned when no proposal could be recovered from the
// source. Callers treat it as "nothing to merge".
var ErrNoProposal = errors.New("no proposal")

// InvalidOutputName is the artifact that receives undecodable input.
const InvalidOutputName = "invalid_llm_output.txt"

// Action types and targets.
const (
	ActionUpdateAttribute = "update_attribute"
	ActionCreateElement   = "create_element"

	TargetEdge     = "edge"
	TargetJunction = "junction"
	TargetProgram  = "tlLogic"
)

// Proposal is a decoded set of fragments and actions. Its content is
// untrusted.
type Proposal struct {
	Snippets  []string        `json:"modified_snippets"`
	Actions   []Action        `json:"actions"`
	Reasoning json.RawMessage `json:"reasoning,omitempty"`

	// Method records which decoding attempt succeeded.
	Method Method `json:"-"`
	// Diagnostics lists entries dropped while decoding.
	Diagnostics diag.List `json:"-"`
}

// Action is one requested edit.
type Action struct {
	Type      string     `json:"type" validate:"required"`
	Target    string     `json:"target" validate:"required"`
	ID        FlexString `json:"id" validate:"required"`
	Attribute string     `json:"attribute,omitempty"`
	NewValue  FlexString `json:"new_value,omitempty"`
	Snippet   string     `json:"xml_snippet,omitempty"`
}

// Is reports whether the action has the given type and target.
func (a Action) Is(typ, target string) bool {
	return a.Type == typ && a.Target == target
}

// FlexString accepts a JSON string, number or bool.
type FlexString string

// Method identifies the decoding attempt that produced a proposal.
type Method int

const (
	MethodNone Method = iota
	MethodDocument
	MethodSpan
	MethodCandidate
)

func (m Method) String() string {
	switch m {
	case MethodDocument:
		return "document"
	case MethodSpan:
		return "span"
	case MethodCandidate:
		return "candidate"
	default:
		return "none"
	}
}

// FragmentKind classifies a fragment by its root element.
type FragmentKind int

const (
	FragmentInvalid FragmentKind = iota
	FragmentProgram
	FragmentEdge
	FragmentJunction
	FragmentOther
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentProgram:
		return "tlLogic"
	case FragmentEdge:
		return "edge"
	case FragmentJunction:
		return "junction"
	case FragmentOther:
		return "other"
	default:
		return "invalid"
	}
}

// Fragment is a classified snippet. Element is nil when Kind is
// FragmentInvalid, in which case Err says why.
type Fragment struct {
	Index   int
	Text    string
	Kind    FragmentKind
	Element network.Element
	Err     error
}

// Source is a resolved proposal source.
type Source struct {
	Path string // empty for inline text
	Text string
}
