// Package nettest provides network fixtures for tests.
package nettest

import (
	"fmt"
	"testing"

	"github.com/dd0wney/cluso-signalpatch/pkg/network"
)

// SmallNetXML is a hand-written two-signal network: J1 is an unsignalized
// priority junction with two through movements, J2 already carries a
// static program whose phases do not match its single movement.
const SmallNetXML = `<?xml version="1.0" encoding="UTF-8"?>
<!-- hand-written fixture -->
<net version="1.16" junctionCornerDetail="5" limitTurnSpeed="5.50" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="http://sumo.dlr.de/xsd/net_file.xsd">
    <location netOffset="0.00,0.00" convBoundary="0.00,0.00,300.00,100.00" origBoundary="0,0,300,100" projParameter="!"/>
    <edge id=":J1_0" function="internal">
        <lane id=":J1_0_0" index="0" speed="13.89" length="9.03" shape="95.00,98.40 104.00,98.40"/>
    </edge>
    <edge id=":J1_1" function="internal">
        <lane id=":J1_1_0" index="0" speed="13.89" length="9.03" shape="95.00,95.20 104.00,98.40"/>
    </edge>
    <edge id="E0" from="J0" to="J1" name="Main Street" priority="-1">
        <lane id="E0_0" index="0" speed="13.89" length="95.00" shape="0.00,98.40 95.00,98.40"/>
        <lane id="E0_1" index="1" speed="13.89" length="95.00" shape="0.00,95.20 95.00,95.20"/>
    </edge>
    <edge id="E1" from="J1" to="J2" priority="-1">
        <lane id="E1_0" index="0" speed="11.11" length="95.00" shape="104.00,98.40 195.00,98.40"/>
    </edge>
    <edge id="E2" from="J2" to="J3" priority="-1">
        <lane id="E2_0" index="0" speed="11.11" length="95.00" shape="204.00,98.40 300.00,98.40"/>
    </edge>
    <tlLogic id="TL_J2" type="static" programID="0" offset="0">
        <phase duration="42" state="Gr"/>
        <phase duration="3" state="yr"/>
    </tlLogic>
    <junction id="J0" type="dead_end" x="0.00" y="100.00" incLanes="" intLanes="" shape="0.00,100.00 0.00,93.60"/>
    <junction id="J1" type="priority" x="100.00" y="100.00" incLanes="E0_0 E0_1" intLanes=":J1_0_0 :J1_1_0" shape="104.00,100.00 95.00,93.60">
        <request index="0" response="00" foes="00" cont="0"/>
        <request index="1" response="00" foes="00" cont="0"/>
    </junction>
    <junction id="J2" type="traffic_light" tl="TL_J2" x="200.00" y="100.00" incLanes="E1_0" intLanes=":J2_0_0" shape="204.00,100.00 195.00,96.80"/>
    <junction id="J3" type="dead_end" x="300.00" y="100.00" incLanes="E2_0" intLanes="" shape="300.00,96.80 300.00,100.00"/>
    <connection from="E0" to="E1" fromLane="0" toLane="0" via=":J1_0_0" dir="s" state="M"/>
    <connection from="E0" to="E1" fromLane="1" toLane="0" via=":J1_1_0" dir="s" state="M"/>
    <connection from="E1" to="E2" fromLane="0" toLane="0" via=":J2_0_0" tl="TL_J2" linkIndex="0" dir="s" state="O"/>
    <connection from=":J1_0" to="E1" fromLane="0" toLane="0" dir="s" state="M"/>
    <connection from=":J1_1" to="E1" fromLane="0" toLane="0" dir="s" state="M"/>
</net>
`

// SmallNet parses SmallNetXML.
func SmallNet(t testing.TB) *network.Network {
	t.Helper()
	n, err := network.Parse([]byte(SmallNetXML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return n
}

// Encode serializes a network, failing the test on error.
func Encode(t testing.TB, n *network.Network) []byte {
	t.Helper()
	b, err := n.Bytes()
	if err != nil {
		t.Fatalf("encode network: %v", err)
	}
	return b
}

// Builder assembles networks programmatically.
type Builder struct {
	n     *network.Network
	conns int
}

// NewBuilder starts an empty network.
func NewBuilder() *Builder {
	return &Builder{n: network.New()}
}

// Junction adds a junction of the given kind.
func (b *Builder) Junction(id, kind string) *Builder {
	b.n.Append(&network.Junction{ID: id, Kind: kind})
	return b
}

// SignalizedJunction adds a traffic_light junction bound to signalID.
func (b *Builder) SignalizedJunction(id, signalID string) *Builder {
	b.n.Append(&network.Junction{ID: id, Kind: network.KindTrafficLight, SignalID: signalID})
	return b
}

// Connection adds a connection passing through the given via token.
func (b *Builder) Connection(via string) *Builder {
	b.conns++
	b.n.Append(&network.Connection{
		From:     fmt.Sprintf("in%d", b.conns),
		To:       fmt.Sprintf("out%d", b.conns),
		FromLane: "0",
		ToLane:   "0",
		Via:      via,
	})
	return b
}

// Connections adds count connections through junction id, using the
// conventional internal lane tokens ":<id>_<k>_0".
func (b *Builder) Connections(id string, count int) *Builder {
	for k := 0; k < count; k++ {
		b.Connection(fmt.Sprintf(":%s_%d_0", id, k))
	}
	return b
}

// Program adds a signal program with one phase per state.
func (b *Builder) Program(id, typ string, states ...string) *Builder {
	p := &network.SignalProgram{ID: id, Type: typ, ProgramID: "0", Offset: "0"}
	for _, s := range states {
		p.Phases = append(p.Phases, network.Phase{Duration: 30, State: s})
	}
	b.n.Append(p)
	return b
}

// Build returns the network.
func (b *Builder) Build() *network.Network {
	return b.n
}
