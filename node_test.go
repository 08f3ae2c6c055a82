package simnet_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/netsimlab/simnet"
	"github.com/stretchr/testify/require"
)

// chain builds a -- b -- c, all links running, 1 Mbps / 1 ms, generous
// queue, no loss, and returns every node plus the scheduler. Every link
// endpoint has its own address (a=1; b=10 toward a, 11 toward c; c=2),
// since [simnet.Network] rejects an address reused on one node.
func chain(t *testing.T) (*simnet.Scheduler, *simnet.Node, *simnet.Node, *simnet.Node) {
	t.Helper()
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	a := net.AddNode("a")
	b := net.AddNode("b")
	c := net.AddNode("c")
	cfg := simnet.LinkConfig{BandwidthBPS: 1_000_000, PropagationDelay: 0.001, MaxQueueBytes: 64000}
	net.AddBidirectionalLink(a, b, 1, 10, cfg)
	net.AddBidirectionalLink(b, c, 11, 2, cfg)
	return s, a, b, c
}

func TestNodeUnicastForwardingAcrossIntermediateHop(t *testing.T) {
	s, a, b, c := chain(t)

	var got []*simnet.Packet
	c.AddProtocol("delay", recordingPacketHandler{recv: &got})

	// Each hop needs its own forwarding entry toward c's address: a routes
	// via b, and b (the intermediate hop) routes via its direct link to c.
	a.AddForwardingEntry(2, a.LinkTo("b"))
	b.AddForwardingEntry(2, b.LinkTo("c"))

	a.SendPacket(&simnet.Packet{Destination: 2, Protocol: "delay", Length: 100, TTL: 8})
	s.Run()

	require.Len(t, got, 1)
}

func TestNodeDropsOnTTLExpiry(t *testing.T) {
	s, a, b, c := chain(t)
	var got []*simnet.Packet
	c.AddProtocol("delay", recordingPacketHandler{recv: &got})
	a.AddForwardingEntry(2, a.LinkTo("b"))
	b.AddForwardingEntry(2, b.LinkTo("c"))

	a.SendPacket(&simnet.Packet{Destination: 2, Protocol: "delay", Length: 100, TTL: 1})
	s.Run()

	require.Empty(t, got)
}

func TestNodeBroadcastReachesAllLinks(t *testing.T) {
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	hub := net.AddNode("hub")
	leaf1 := net.AddNode("leaf1")
	leaf2 := net.AddNode("leaf2")
	cfg := simnet.LinkConfig{BandwidthBPS: 1_000_000, PropagationDelay: 0.001, MaxQueueBytes: 64000}
	net.AddBidirectionalLink(hub, leaf1, 1, 1, cfg)
	net.AddBidirectionalLink(hub, leaf2, 2, 2, cfg)

	var got1, got2 []*simnet.Packet
	leaf1.AddProtocol("broadcast", recordingPacketHandler{recv: &got1})
	leaf2.AddProtocol("broadcast", recordingPacketHandler{recv: &got2})

	hub.SendPacket(&simnet.Packet{Destination: simnet.Broadcast, Protocol: "broadcast", TTL: 1})
	s.Run()

	require.Len(t, got1, 1)
	require.Len(t, got2, 1)
}

func TestNodeDistanceVectorConvergesToShortestHop(t *testing.T) {
	_, a, b, c := chain(t)
	a.InitRouting()
	b.InitRouting()
	c.InitRouting()

	// b hears c's vector first, learning a route to c's address; only
	// then does a hear b's (now updated) vector and learn the same
	// address is reachable one hop further out, via b.
	b.UpdateDistanceVector("c", c.DistanceVector())
	a.UpdateDistanceVector("b", b.DistanceVector())

	table := a.ForwardingTable()
	require.Contains(t, table, simnet.Address(2))
	require.Equal(t, a.LinkTo("b"), table[simnet.Address(2)])
}

func TestNodeDistanceVectorContentsAfterInitRouting(t *testing.T) {
	// testcase describes a node's link addresses and the distance vector
	// InitRouting should produce from them.
	type testcase struct {
		name  string
		addrs []simnet.Address
		want  map[simnet.Address]int
	}

	var testcases = []testcase{{
		name:  "no links",
		addrs: nil,
		want:  map[simnet.Address]int{},
	}, {
		name:  "one link",
		addrs: []simnet.Address{7},
		want:  map[simnet.Address]int{7: 1},
	}, {
		name:  "two distinct addresses",
		addrs: []simnet.Address{3, 4},
		want:  map[simnet.Address]int{3: 1, 4: 1},
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			s := simnet.NewScheduler(nil)
			net := simnet.NewNetwork(s, nil, nil)
			n := net.AddNode("n")
			cfg := simnet.LinkConfig{BandwidthBPS: 1_000_000, PropagationDelay: 0.001, MaxQueueBytes: 64000}
			for i, addr := range tc.addrs {
				peer := net.AddNode(string(rune('a' + i)))
				net.AddBidirectionalLink(n, peer, addr, simnet.Address(100+i), cfg)
			}

			n.InitRouting()
			if diff := cmp.Diff(tc.want, n.DistanceVector()); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestNodeAddressToUnknownHostIsBroadcastAddress(t *testing.T) {
	s := simnet.NewScheduler(nil)
	a := simnet.NewNode(s, nil, nil, "a")
	require.Equal(t, simnet.Broadcast, a.AddressTo("nowhere"))
}

// recordingPacketHandler implements simnet.ProtocolHandler and appends
// every delivered packet to recv.
type recordingPacketHandler struct {
	recv *[]*simnet.Packet
}

func (r recordingPacketHandler) ReceivePacket(p *simnet.Packet) {
	*r.recv = append(*r.recv, p)
}
