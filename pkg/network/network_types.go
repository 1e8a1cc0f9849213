package network

import (
	"encoding/xml"
)

// Junction kinds and program types the pipeline reads or writes.
const (
	KindTrafficLight = "traffic_light"
	KindPriority     = "priority"
	KindUnregulated  = "unregulated"

	ProgramActuated = "actuated"
	ProgramStatic   = "static"
)

// Element is any top-level child of the network root.
type Element interface {
	Tag() string
}

// RootAttr is a root attribute with its prefix kept verbatim
// (for example "xmlns:xsi").
type RootAttr struct {
	Name  string
	Value string
}

// Network is an in-memory net.xml document. Top-level elements are kept
// in document order; typed accessors filter that single list.
type Network struct {
	RootName string
	Attrs    []RootAttr
	Preamble []string // comments before the root element

	elements []Element
}

// Junction is a point where edges meet.
type Junction struct {
	XMLName  xml.Name   `xml:"junction"`
	ID       string     `xml:"id,attr"`
	Kind     string     `xml:"type,attr,omitempty"`
	SignalID string     `xml:"tl,attr,omitempty"`
	Extra    []xml.Attr `xml:",any,attr"`
	Inner    []byte     `xml:",innerxml"`
}

// Edge is read-only in the pipeline; lanes are parsed from Inner for
// inspection and Inner is written back untouched.
type Edge struct {
	XMLName  xml.Name   `xml:"edge"`
	ID       string     `xml:"id,attr"`
	From     string     `xml:"from,attr,omitempty"`
	To       string     `xml:"to,attr,omitempty"`
	Function string     `xml:"function,attr,omitempty"`
	Extra    []xml.Attr `xml:",any,attr"`
	Inner    []byte     `xml:",innerxml"`

	Lanes []Lane `xml:"-"`
}

// Lane is one lane of an edge.
type Lane struct {
	ID     string  `xml:"id,attr"`
	Index  int     `xml:"index,attr"`
	Speed  float64 `xml:"speed,attr"`
	Length float64 `xml:"length,attr"`
}

// Connection is one permitted lane-to-lane turning movement.
type Connection struct {
	XMLName      xml.Name   `xml:"connection"`
	From         string     `xml:"from,attr"`
	To           string     `xml:"to,attr"`
	FromLane     string     `xml:"fromLane,attr"`
	ToLane       string     `xml:"toLane,attr"`
	Via          string     `xml:"via,attr,omitempty"`
	SignalID     string     `xml:"tl,attr,omitempty"`
	LinkIndex    *int       `xml:"linkIndex,attr"`
	Extra        []xml.Attr `xml:",any,attr"`
	State        string     `xml:"state,attr,omitempty"`
	Uncontrolled string     `xml:"uncontrolled,attr,omitempty"`
	Inner        []byte     `xml:",innerxml"`
}

// SignalProgram is a tlLogic element.
type SignalProgram struct {
	XMLName   xml.Name     `xml:"tlLogic"`
	ID        string       `xml:"id,attr"`
	Type      string       `xml:"type,attr,omitempty"`
	ProgramID string       `xml:"programID,attr,omitempty"`
	Offset    string       `xml:"offset,attr,omitempty"`
	Extra     []xml.Attr   `xml:",any,attr"`
	Rest      []RawElement `xml:",any"`
	Phases    []Phase      `xml:"phase"`
}

// Phase is one timed state of a signal program. State carries one
// character per controlled movement, ordered by link index.
type Phase struct {
	XMLName  xml.Name   `xml:"phase"`
	Duration float64    `xml:"duration,attr"`
	MinDur   *float64   `xml:"minDur,attr"`
	MaxDur   *float64   `xml:"maxDur,attr"`
	State    string     `xml:"state,attr"`
	Extra    []xml.Attr `xml:",any,attr"`
}

// RawElement carries any element the pipeline does not model.
type RawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

// Comment is a comment between top-level elements.
type Comment struct {
	Text string
}

func (*Junction) Tag() string      { return "junction" }
func (*Edge) Tag() string          { return "edge" }
func (*Connection) Tag() string    { return "connection" }
func (*SignalProgram) Tag() string { return "tlLogic" }
func (r *RawElement) Tag() string  { return r.XMLName.Local }
func (*Comment) Tag() string       { return "" }
