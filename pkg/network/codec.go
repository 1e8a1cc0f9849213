package network

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/mmap"
)

const indent = "    "

// ErrNotSignalProgram is returned when a fragment parses but is not a tlLogic.
var ErrNotSignalProgram = errors.New("fragment is not a tlLogic element")

// LoadFile memory-maps a net.xml file and decodes it.
func LoadFile(path string) (*Network, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, &ParseError{Op: "load", Path: path, Cause: err}
	}
	defer r.Close()

	n, err := Decode(io.NewSectionReader(r, 0, int64(r.Len())))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
			return nil, pe
		}
		return nil, &ParseError{Op: "load", Path: path, Cause: err}
	}
	return n, nil
}

// Parse decodes a network from memory.
func Parse(data []byte) (*Network, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a network document. Top-level children are decoded into
// typed elements where modelled and kept raw otherwise.
func Decode(r io.Reader) (*Network, error) {
	d := xml.NewDecoder(r)
	n := &Network{}
	inRoot := false

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Op: "decode", Cause: err}
		}

		switch t := tok.(type) {
		case xml.Comment:
			if inRoot {
				n.elements = append(n.elements, &Comment{Text: string(t)})
			} else {
				n.Preamble = append(n.Preamble, string(t))
			}
		case xml.StartElement:
			if !inRoot {
				n.RootName = t.Name.Local
				n.Attrs = rootAttrs(t.Attr)
				inRoot = true
				continue
			}
			elem, err := decodeElement(d, t)
			if err != nil {
				return nil, &ParseError{Op: "decode", Tag: t.Name.Local, Cause: err}
			}
			n.elements = append(n.elements, elem)
		case xml.EndElement:
			if inRoot {
				return n, nil
			}
		}
	}

	if !inRoot {
		return nil, &ParseError{Op: "decode", Cause: ErrNoRoot}
	}
	return nil, &ParseError{Op: "decode", Cause: io.ErrUnexpectedEOF}
}

func decodeElement(d *xml.Decoder, start xml.StartElement) (Element, error) {
	switch start.Name.Local {
	case "junction":
		var j Junction
		if err := d.DecodeElement(&j, &start); err != nil {
			return nil, err
		}
		return &j, nil
	case "edge":
		var e Edge
		if err := d.DecodeElement(&e, &start); err != nil {
			return nil, err
		}
		lanes, err := parseLanes(e.Inner)
		if err != nil {
			return nil, fmt.Errorf("edge %s lanes: %w", e.ID, err)
		}
		e.Lanes = lanes
		return &e, nil
	case "connection":
		var c Connection
		if err := d.DecodeElement(&c, &start); err != nil {
			return nil, err
		}
		return &c, nil
	case "tlLogic":
		var p SignalProgram
		if err := d.DecodeElement(&p, &start); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		var raw RawElement
		if err := d.DecodeElement(&raw, &start); err != nil {
			return nil, err
		}
		return &raw, nil
	}
}

// rootAttrs restores the source prefixes the decoder resolved to
// namespace URLs, so the root start tag is written back as read.
func rootAttrs(attrs []xml.Attr) []RootAttr {
	prefixes := make(map[string]string)
	for _, a := range attrs {
		if a.Name.Space == "xmlns" {
			prefixes[a.Value] = a.Name.Local
		}
	}

	out := make([]RootAttr, 0, len(attrs))
	for _, a := range attrs {
		name := a.Name.Local
		switch {
		case a.Name.Space == "xmlns":
			name = "xmlns:" + a.Name.Local
		case a.Name.Space != "":
			if p, ok := prefixes[a.Name.Space]; ok {
				name = p + ":" + a.Name.Local
			}
		}
		out = append(out, RootAttr{Name: name, Value: a.Value})
	}
	return out
}

// Encode writes the network as an indented document.
func (n *Network) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	root := n.RootName
	if root == "" {
		root = "net"
	}

	bw.WriteString(xml.Header)
	for _, c := range n.Preamble {
		bw.WriteString("<!--" + c + "-->\n")
	}

	bw.WriteString("<" + root)
	for _, a := range n.Attrs {
		bw.WriteString(" " + a.Name + `="`)
		if err := xml.EscapeText(bw, []byte(a.Value)); err != nil {
			return err
		}
		bw.WriteString(`"`)
	}
	bw.WriteString(">\n")

	for _, e := range n.elements {
		if c, ok := e.(*Comment); ok {
			bw.WriteString(indent + "<!--" + c.Text + "-->\n")
			continue
		}
		b, err := xml.MarshalIndent(e, indent, indent)
		if err != nil {
			return &ParseError{Op: "encode", Tag: e.Tag(), Cause: err}
		}
		bw.Write(b)
		bw.WriteString("\n")
	}

	bw.WriteString("</" + root + ">\n")
	return bw.Flush()
}

// Bytes returns the encoded document.
func (n *Network) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy made by an encode/decode round trip.
func (n *Network) Clone() (*Network, error) {
	b, err := n.Bytes()
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// ParseFragment decodes a single serialized element such as a proposal
// snippet.
func ParseFragment(s string) (Element, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ParseError{Op: "fragment", Cause: ErrEmptyFragment}
	}

	d := xml.NewDecoder(strings.NewReader(s))
	var elem Element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Op: "fragment", Cause: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if elem != nil {
			return nil, &ParseError{Op: "fragment", Tag: start.Name.Local, Cause: ErrTrailingContent}
		}
		elem, err = decodeElement(d, start)
		if err != nil {
			return nil, &ParseError{Op: "fragment", Tag: start.Name.Local, Cause: err}
		}
	}

	if elem == nil {
		return nil, &ParseError{Op: "fragment", Cause: ErrEmptyFragment}
	}
	return elem, nil
}

// ParseProgram decodes a fragment that must be a tlLogic element.
func ParseProgram(s string) (*SignalProgram, error) {
	elem, err := ParseFragment(s)
	if err != nil {
		return nil, err
	}
	p, ok := elem.(*SignalProgram)
	if !ok {
		return nil, fmt.Errorf("%w: got <%s>", ErrNotSignalProgram, elem.Tag())
	}
	return p, nil
}

func parseLanes(inner []byte) ([]Lane, error) {
	if len(bytes.TrimSpace(inner)) == 0 {
		return nil, nil
	}
	var body struct {
		Lanes []Lane `xml:"lane"`
	}
	wrapped := make([]byte, 0, len(inner)+13)
	wrapped = append(wrapped, "<edge>"...)
	wrapped = append(wrapped, inner...)
	wrapped = append(wrapped, "</edge>"...)
	if err := xml.Unmarshal(wrapped, &body); err != nil {
		return nil, err
	}
	return body.Lanes, nil
}

func (e *Edge) setLaneAttr(name, value string) error {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return fmt.Errorf("edge %s: %s %q is not a number", e.ID, name, value)
	}

	d := xml.NewDecoder(bytes.NewReader(e.Inner))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("edge %s: %w", e.ID, err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "lane" {
			se.Attr = setAttrValue(append([]xml.Attr(nil), se.Attr...), name, value)
			tok = se
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return fmt.Errorf("edge %s: %w", e.ID, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return err
	}

	lanes, err := parseLanes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("edge %s lanes: %w", e.ID, err)
	}
	e.Inner = buf.Bytes()
	e.Lanes = lanes
	return nil
}
