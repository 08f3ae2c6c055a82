package simnet

//
// Network: the arena that owns every Node and Link in a simulation, plus
// the line-oriented topology descriptor parser. See spec §6, §9.
//

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Network owns every [Node] and [Link] created for one simulation run,
// keyed by hostname so a topology descriptor can wire them up by name.
// The zero value is not usable; construct with [NewNetwork].
type Network struct {
	scheduler *Scheduler
	logger    Logger
	metrics   *Metrics

	nodes map[string]*Node
	links []*Link

	// addresses tracks, per hostname, which addresses have already been
	// assigned on that host's interfaces, guarding against the
	// construction-time programmer error of a duplicate address (spec
	// §7).
	addresses map[string]map[Address]bool
}

// NewNetwork constructs an empty [Network]. Pass a nil logger or metrics
// to use [NullLogger] / disable instrumentation.
func NewNetwork(scheduler *Scheduler, logger Logger, metrics *Metrics) *Network {
	if logger == nil {
		logger = &NullLogger{}
	}
	return &Network{
		scheduler: scheduler,
		logger:    logger,
		metrics:   metrics,
		nodes:     make(map[string]*Node),
		addresses: make(map[string]map[Address]bool),
	}
}

// Scheduler returns the scheduler driving this network.
func (net *Network) Scheduler() *Scheduler { return net.scheduler }

// AddNode creates and registers a new [Node] with the given hostname.
// Panics if hostname is already registered (construction-time programmer
// error, spec §7).
func (net *Network) AddNode(hostname string) *Node {
	Must0(net.checkHostnameFree(hostname))
	n := NewNode(net.scheduler, net.logger, net.metrics, hostname)
	net.nodes[hostname] = n
	net.addresses[hostname] = make(map[Address]bool)
	return n
}

func (net *Network) checkHostnameFree(hostname string) error {
	if _, ok := net.nodes[hostname]; ok {
		return fmt.Errorf("simnet: duplicate node hostname %q", hostname)
	}
	return nil
}

// Node returns the registered node with the given hostname, creating it
// on first reference (per spec §6's "nodes are created on first
// reference" topology grammar rule).
func (net *Network) Node(hostname string) *Node {
	if n, ok := net.nodes[hostname]; ok {
		return n
	}
	return net.AddNode(hostname)
}

// LookupNode returns the registered node with the given hostname, and
// whether it exists, without creating it.
func (net *Network) LookupNode(hostname string) (*Node, bool) {
	n, ok := net.nodes[hostname]
	return n, ok
}

// Nodes returns every registered node, in no particular order.
func (net *Network) Nodes() []*Node {
	out := make([]*Node, 0, len(net.nodes))
	for _, n := range net.nodes {
		out = append(out, n)
	}
	return out
}

// Links returns every link created in this network, in creation order.
func (net *Network) Links() []*Link {
	return net.links
}

// AddBidirectionalLink wires a and b together with a pair of one-way
// [Link]s: a's interface to b gets addrOnA, b's interface to a gets
// addrOnB. Panics (construction-time error, spec §7) if either address is
// already in use on its respective node.
func (net *Network) AddBidirectionalLink(
	a, b *Node,
	addrOnA, addrOnB Address,
	cfg LinkConfig,
) (ab, ba *Link) {
	net.claimAddress(a.Hostname(), addrOnA)
	net.claimAddress(b.Hostname(), addrOnB)

	ab = NewLink(net.scheduler, net.logger, net.metrics, a, b, addrOnA, cfg)
	ba = NewLink(net.scheduler, net.logger, net.metrics, b, a, addrOnB, cfg)
	a.AddLink(ab)
	b.AddLink(ba)
	net.links = append(net.links, ab, ba)
	return ab, ba
}

func (net *Network) claimAddress(hostname string, addr Address) {
	used := net.addresses[hostname]
	if used == nil {
		used = make(map[Address]bool)
		net.addresses[hostname] = used
	}
	Must0(checkAddressFree(used, addr))
	used[addr] = true
}

func checkAddressFree(used map[Address]bool, addr Address) error {
	if used[addr] {
		return ErrDuplicateAddress
	}
	return nil
}

// Close brings down every link in the network concurrently. Links have no
// blocking teardown work of their own (unlike a live network stack), but
// Close is offered, and fans out through an [errgroup.Group], so callers
// that layer real I/O-bound protocol handlers on top of simnet (e.g. a
// handler that owns a socket) can embed that teardown here without
// changing this signature.
func (net *Network) Close() error {
	var g errgroup.Group
	for _, l := range net.links {
		l := l
		g.Go(func() error {
			l.Down()
			return nil
		})
	}
	return g.Wait()
}

// ParseTopology reads a line-oriented topology descriptor (spec §6) from
// r and wires up nodes and links into net. Blank lines and lines starting
// with '#' are ignored. Recognized directives:
//
//	node <hostname>
//	link <nodeA> <nodeB> <addrOnA> <addrOnB> <bandwidth_bps> <propagation_delay_s> [queue_bytes] [loss_rate]
//
// node declarations are optional: a node referenced by a link directive
// is created on first reference.
func (net *Network) ParseTopology(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "node":
			if len(fields) != 2 {
				return fmt.Errorf("simnet: topology line %d: expected \"node <hostname>\"", lineNo)
			}
			net.Node(fields[1])
		case "link":
			if err := net.parseLinkLine(fields, lineNo); err != nil {
				return err
			}
		default:
			return fmt.Errorf("simnet: topology line %d: unrecognized directive %q", lineNo, fields[0])
		}
	}
	return scanner.Err()
}

func (net *Network) parseLinkLine(fields []string, lineNo int) error {
	if len(fields) < 7 || len(fields) > 9 {
		return fmt.Errorf(
			"simnet: topology line %d: expected \"link <nodeA> <nodeB> <addrA> <addrB> <bandwidth_bps> <prop_delay_s> [queue_bytes] [loss_rate]\"",
			lineNo,
		)
	}
	a := net.Node(fields[1])
	b := net.Node(fields[2])

	addrOnA, err := parseAddress(fields[3])
	if err != nil {
		return fmt.Errorf("simnet: topology line %d: addrA: %w", lineNo, err)
	}
	addrOnB, err := parseAddress(fields[4])
	if err != nil {
		return fmt.Errorf("simnet: topology line %d: addrB: %w", lineNo, err)
	}
	bandwidth, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return fmt.Errorf("simnet: topology line %d: bandwidth_bps: %w", lineNo, err)
	}
	propDelay, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return fmt.Errorf("simnet: topology line %d: propagation_delay_s: %w", lineNo, err)
	}

	cfg := LinkConfig{
		BandwidthBPS:     bandwidth,
		PropagationDelay: propDelay,
		MaxQueueBytes:    64000,
	}
	if len(fields) >= 8 {
		queueBytes, err := strconv.Atoi(fields[7])
		if err != nil {
			return fmt.Errorf("simnet: topology line %d: queue_bytes: %w", lineNo, err)
		}
		cfg.MaxQueueBytes = queueBytes
	}
	if len(fields) == 9 {
		lossRate, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return fmt.Errorf("simnet: topology line %d: loss_rate: %w", lineNo, err)
		}
		cfg.LossRate = lossRate
	}

	net.AddBidirectionalLink(a, b, addrOnA, addrOnB, cfg)
	return nil
}

func parseAddress(s string) (Address, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return Address(v), nil
}
