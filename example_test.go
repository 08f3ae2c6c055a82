package simnet_test

import (
	"fmt"
	"strings"

	"github.com/netsimlab/simnet"
)

// This example builds a two-node topology from a text descriptor, attaches
// a [simnet.Transport] to each end, and sends a short message across it.
func Example_transportOverParsedTopology() {
	topology := strings.NewReader(`
		# a 1 Mbps, 1 ms link between two hosts
		link client server 1 2 1000000 0.001
	`)

	s := simnet.NewScheduler(nil)
	net := simnet.NewNetwork(s, nil, nil)
	if err := net.ParseTopology(topology); err != nil {
		fmt.Println(err)
		return
	}

	client := net.Node("client")
	server := net.Node("server")
	// Each host reaches the other's interface address over their link.
	client.AddForwardingEntry(2, client.LinkTo("server"))
	server.AddForwardingEntry(1, server.LinkTo("client"))

	received := make(chan string, 1)
	sink := simnet.DataSinkFunc(func(data []byte) {
		received <- string(data)
	})

	cfg := simnet.NewTransportConfig()
	clientTxp := simnet.NewTransport(client, s, nil, nil, cfg, 1, 9000, 2, 9001, nil)
	simnet.NewTransport(server, s, nil, nil, cfg, 2, 9001, 1, 9000, sink)

	clientTxp.Send([]byte("hello from the client"))
	s.Run()

	fmt.Println(<-received)
	// Output:
	// hello from the client
}
