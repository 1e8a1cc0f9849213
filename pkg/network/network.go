package network

import (
	"encoding/xml"
)

// New returns an empty network with a "net" root.
func New() *Network {
	return &Network{RootName: "net"}
}

// Elements returns the top-level elements in document order.
func (n *Network) Elements() []Element {
	out := make([]Element, len(n.elements))
	copy(out, n.elements)
	return out
}

// Len returns the number of top-level elements.
func (n *Network) Len() int {
	return len(n.elements)
}

// Append adds an element at the end of the document.
func (n *Network) Append(e Element) {
	n.elements = append(n.elements, e)
}

// Junctions returns all junctions in document order.
func (n *Network) Junctions() []*Junction {
	var out []*Junction
	for _, e := range n.elements {
		if j, ok := e.(*Junction); ok {
			out = append(out, j)
		}
	}
	return out
}

// Junction returns the junction with the given id, or nil.
func (n *Network) Junction(id string) *Junction {
	for _, e := range n.elements {
		if j, ok := e.(*Junction); ok && j.ID == id {
			return j
		}
	}
	return nil
}

// Edges returns all edges in document order.
func (n *Network) Edges() []*Edge {
	var out []*Edge
	for _, e := range n.elements {
		if edge, ok := e.(*Edge); ok {
			out = append(out, edge)
		}
	}
	return out
}

// Edge returns the edge with the given id, or nil.
func (n *Network) Edge(id string) *Edge {
	for _, e := range n.elements {
		if edge, ok := e.(*Edge); ok && edge.ID == id {
			return edge
		}
	}
	return nil
}

// Connections returns all connections in file order. That order is the
// one link indices are assigned in.
func (n *Network) Connections() []*Connection {
	var out []*Connection
	for _, e := range n.elements {
		if c, ok := e.(*Connection); ok {
			out = append(out, c)
		}
	}
	return out
}

// Programs returns all signal programs in document order.
func (n *Network) Programs() []*SignalProgram {
	var out []*SignalProgram
	for _, e := range n.elements {
		if p, ok := e.(*SignalProgram); ok {
			out = append(out, p)
		}
	}
	return out
}

// Program returns the first signal program with the given id, or nil.
func (n *Network) Program(id string) *SignalProgram {
	for _, e := range n.elements {
		if p, ok := e.(*SignalProgram); ok && p.ID == id {
			return p
		}
	}
	return nil
}

// RemovePrograms removes every signal program with the given id and
// reports how many were removed.
func (n *Network) RemovePrograms(id string) int {
	kept := n.elements[:0]
	removed := 0
	for _, e := range n.elements {
		if p, ok := e.(*SignalProgram); ok && p.ID == id {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(n.elements); i++ {
		n.elements[i] = nil
	}
	n.elements = kept
	return removed
}

// Attr returns the value of an attribute not modelled as a field.
func (j *Junction) Attr(name string) (string, bool) {
	return attrValue(j.Extra, name)
}

// SetAttr sets an attribute, routing modelled names to their fields.
func (j *Junction) SetAttr(name, value string) {
	switch name {
	case "type":
		j.Kind = value
	case "tl":
		j.SignalID = value
	case "id":
		j.ID = value
	default:
		j.Extra = setAttrValue(j.Extra, name, value)
	}
}

// IsSignalized reports whether the junction is governed by a signal.
func (j *Junction) IsSignalized() bool {
	return j.Kind == KindTrafficLight
}

// Attr returns the value of an attribute not modelled as a field.
func (e *Edge) Attr(name string) (string, bool) {
	return attrValue(e.Extra, name)
}

// SetAttr sets an edge attribute. "speed" rewrites the speed of every
// lane, which is where net files carry it.
func (e *Edge) SetAttr(name, value string) error {
	switch name {
	case "id":
		e.ID = value
	case "from":
		e.From = value
	case "to":
		e.To = value
	case "function":
		e.Function = value
	case "speed":
		return e.setLaneAttr("speed", value)
	default:
		e.Extra = setAttrValue(e.Extra, name, value)
	}
	return nil
}

// IsInternal reports whether the edge is a junction-internal edge.
func (e *Edge) IsInternal() bool {
	return e.Function == "internal"
}

// Attr returns the value of an attribute not modelled as a field.
func (c *Connection) Attr(name string) (string, bool) {
	return attrValue(c.Extra, name)
}

// IsControlled reports whether the connection references a signal.
func (c *Connection) IsControlled() bool {
	return c.SignalID != ""
}

// SetLinkIndex sets the connection's position in its signal's ordering.
func (c *Connection) SetLinkIndex(i int) {
	v := i
	c.LinkIndex = &v
}

// Index returns the link index, or -1 when unset.
func (c *Connection) Index() int {
	if c.LinkIndex == nil {
		return -1
	}
	return *c.LinkIndex
}

// Seconds returns a pointer to v, for Phase MinDur and MaxDur.
func Seconds(v float64) *float64 {
	return &v
}

// Min returns the phase minimum duration, defaulting to Duration.
func (p Phase) Min() float64 {
	if p.MinDur == nil {
		return p.Duration
	}
	return *p.MinDur
}

// Max returns the phase maximum duration, defaulting to Duration.
func (p Phase) Max() float64 {
	if p.MaxDur == nil {
		return p.Duration
	}
	return *p.MaxDur
}

func attrValue(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if attrName(a.Name) == name {
			return a.Value, true
		}
	}
	return "", false
}

func setAttrValue(attrs []xml.Attr, name, value string) []xml.Attr {
	for i, a := range attrs {
		if attrName(a.Name) == name {
			attrs[i].Value = value
			return attrs
		}
	}
	return append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func attrName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
