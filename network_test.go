package simnet_test

import (
	"strings"
	"testing"

	"github.com/netsimlab/simnet"
	"github.com/stretchr/testify/require"
)

func TestParseTopologyCreatesNodesOnFirstReference(t *testing.T) {
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)

	topo := `
# comment line, ignored
node standalone

link n1 n2 1 1 1000000 0.01 64000 0
link n2 n3 2 1 1000000 0.01
`
	require.NoError(t, net.ParseTopology(strings.NewReader(topo)))

	_, ok := net.LookupNode("standalone")
	require.True(t, ok)
	_, ok = net.LookupNode("n1")
	require.True(t, ok)
	_, ok = net.LookupNode("n2")
	require.True(t, ok)
	_, ok = net.LookupNode("n3")
	require.True(t, ok)
	require.Len(t, net.Links(), 4)
}

func TestParseTopologyRejectsUnknownDirective(t *testing.T) {
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	err := net.ParseTopology(strings.NewReader("bogus foo bar\n"))
	require.Error(t, err)
}

func TestParseTopologyRejectsMalformedLink(t *testing.T) {
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	err := net.ParseTopology(strings.NewReader("link n1 n2 1 1\n"))
	require.Error(t, err)
}

func TestAddBidirectionalLinkPanicsOnDuplicateAddress(t *testing.T) {
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	a := net.AddNode("a")
	b := net.AddNode("b")
	c := net.AddNode("c")
	cfg := simnet.LinkConfig{BandwidthBPS: 1_000_000, PropagationDelay: 0.01, MaxQueueBytes: 1000}

	net.AddBidirectionalLink(a, b, 1, 1, cfg)
	require.Panics(t, func() {
		net.AddBidirectionalLink(a, c, 1, 2, cfg)
	})
}

func TestNetworkCloseBringsDownAllLinks(t *testing.T) {
	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	a := net.AddNode("a")
	b := net.AddNode("b")
	cfg := simnet.LinkConfig{BandwidthBPS: 1_000_000, PropagationDelay: 0.01, MaxQueueBytes: 1000}
	net.AddBidirectionalLink(a, b, 1, 1, cfg)

	require.NoError(t, net.Close())
	for _, l := range net.Links() {
		require.False(t, l.Running())
	}
}
