package network

import (
	"math"
	"strconv"
)

// Summary is a compact description of a network for inspection.
type Summary struct {
	TotalEdges          int               `json:"total_edges"`
	TotalJunctions      int               `json:"total_junctions"`
	SignalizedJunctions int               `json:"signalized_junctions"`
	TotalConnections    int               `json:"total_connections"`
	ControlledLinks     int               `json:"controlled_connections"`
	SignalPrograms      int               `json:"signal_programs"`
	LeftHandDriving     bool              `json:"lefthand_driving"`
	Edges               []EdgeSummary     `json:"edges"`
	Junctions           []JunctionSummary `json:"junctions"`
}

// EdgeSummary describes one non-internal edge.
type EdgeSummary struct {
	ID       string   `json:"edge_id"`
	Name     string   `json:"name,omitempty"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Type     string   `json:"type,omitempty"`
	NumLanes int      `json:"num_lanes"`
	AvgSpeed *float64 `json:"avg_speed"`
}

// JunctionSummary describes one junction.
type JunctionSummary struct {
	ID        string  `json:"id"`
	Kind      string  `json:"type"`
	SignalID  string  `json:"tl,omitempty"`
	HasSignal bool    `json:"has_signal"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// Summarize builds a Summary. Internal edges are excluded; maxEdges caps
// the edge list when positive.
func Summarize(n *Network, maxEdges int) Summary {
	var s Summary

	for _, a := range n.Attrs {
		if a.Name == "lefthand" {
			s.LeftHandDriving = a.Value == "true"
		}
	}

	for _, e := range n.Edges() {
		if e.IsInternal() {
			continue
		}
		s.TotalEdges++
		if maxEdges > 0 && len(s.Edges) >= maxEdges {
			continue
		}
		name, _ := e.Attr("name")
		typ, _ := e.Attr("type")
		s.Edges = append(s.Edges, EdgeSummary{
			ID:       e.ID,
			Name:     name,
			From:     e.From,
			To:       e.To,
			Type:     typ,
			NumLanes: len(e.Lanes),
			AvgSpeed: meanLaneSpeed(e.Lanes),
		})
	}

	for _, j := range n.Junctions() {
		s.TotalJunctions++
		if j.IsSignalized() {
			s.SignalizedJunctions++
		}
		s.Junctions = append(s.Junctions, JunctionSummary{
			ID:        j.ID,
			Kind:      j.Kind,
			SignalID:  j.SignalID,
			HasSignal: j.IsSignalized(),
			X:         floatAttr(j, "x"),
			Y:         floatAttr(j, "y"),
		})
	}

	for _, c := range n.Connections() {
		s.TotalConnections++
		if c.IsControlled() {
			s.ControlledLinks++
		}
	}
	s.SignalPrograms = len(n.Programs())

	return s
}

func meanLaneSpeed(lanes []Lane) *float64 {
	var sum float64
	var count int
	for _, l := range lanes {
		if l.Speed > 0 {
			sum += l.Speed
			count++
		}
	}
	if count == 0 {
		return nil
	}
	avg := math.Round(sum/float64(count)*100) / 100
	return &avg
}

func floatAttr(j *Junction, name string) float64 {
	v, ok := j.Attr(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
