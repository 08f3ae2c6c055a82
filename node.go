package simnet

//
// Node: hosts, links, protocol dispatch, forwarding, and distance-vector
// routing state. See spec §4.4.
//

// ProtocolHandler is implemented by anything a [Node] can dispatch
// delivered packets to, keyed by [Packet.Protocol]. [Transport] and
// [DistanceVectorRouting] both implement this.
type ProtocolHandler interface {
	// ReceivePacket is invoked with a packet addressed to this node (or a
	// broadcast) whose Protocol tag matches the one this handler was
	// registered under.
	ReceivePacket(p *Packet)
}

// distanceVectorEntry is one row of a node's stored distance vector: the
// vector itself plus the time it was last updated, mirroring
// node.py's {"timestamp": ..., "dv": ...} shape.
type distanceVectorEntry struct {
	timestamp float64
	vector    map[Address]int
}

// Node is a single host in the simulated network: a set of outgoing
// [Link]s, a protocol dispatch table, a forwarding table, and (once
// routing is initialized) distance-vector routing state. Construct with
// [NewNode]; the zero value is not usable.
type Node struct {
	id       string
	hostname string

	links     []*Link
	protocols map[string]ProtocolHandler

	forwardingTable map[Address]*Link

	// distanceVectors holds one entry per known hostname, keyed by
	// hostname; distanceVectors[hostname] is this node's own vector.
	distanceVectors map[string]*distanceVectorEntry

	scheduler *Scheduler
	logger    Logger
	metrics   *Metrics
}

// NewNode constructs an empty [Node] with the given hostname.
func NewNode(scheduler *Scheduler, logger Logger, metrics *Metrics, hostname string) *Node {
	if logger == nil {
		logger = &NullLogger{}
	}
	return &Node{
		id:              newID(),
		hostname:        hostname,
		protocols:       make(map[string]ProtocolHandler),
		forwardingTable: make(map[Address]*Link),
		distanceVectors: make(map[string]*distanceVectorEntry),
		scheduler:       scheduler,
		logger:          logger,
		metrics:         metrics,
	}
}

// ID returns the node's stable arena identifier.
func (n *Node) ID() string { return n.id }

// Hostname returns the node's hostname.
func (n *Node) Hostname() string { return n.hostname }

// -- Links --

// AddLink attaches an outgoing [Link] to this node.
func (n *Node) AddLink(link *Link) {
	n.links = append(n.links, link)
}

// DeleteLink detaches a previously attached [Link]. No-op if link is not
// attached.
func (n *Node) DeleteLink(link *Link) {
	for i, l := range n.links {
		if l == link {
			n.links = append(n.links[:i], n.links[i+1:]...)
			return
		}
	}
}

// Links returns the node's outgoing links, in attachment order.
func (n *Node) Links() []*Link {
	return n.links
}

// LinkTo returns the outgoing link whose endpoint has the given hostname,
// or nil if none.
func (n *Node) LinkTo(hostname string) *Link {
	for _, l := range n.links {
		if l.Endpoint().Hostname() == hostname {
			return l
		}
	}
	return nil
}

// AddressTo returns the interface address of the link from this node to
// hostname, or [Broadcast] (zero) if there is no such link. Grounded on
// node.py's get_address, which returns the reserved zero value rather
// than an error on miss.
func (n *Node) AddressTo(hostname string) Address {
	if l := n.LinkTo(hostname); l != nil {
		return l.Address()
	}
	return Broadcast
}

// -- Protocols --

// AddProtocol registers handler to receive packets tagged with protocol.
func (n *Node) AddProtocol(protocol string, handler ProtocolHandler) {
	n.protocols[protocol] = handler
}

// DeleteProtocol unregisters the handler for protocol, if any.
func (n *Node) DeleteProtocol(protocol string) {
	delete(n.protocols, protocol)
}

// -- Forwarding table --

// AddForwardingEntry installs a forwarding-table entry: packets addressed
// to address are sent out link.
func (n *Node) AddForwardingEntry(address Address, link *Link) {
	n.forwardingTable[address] = link
}

// DeleteForwardingEntry removes the forwarding-table entry for address, if
// any.
func (n *Node) DeleteForwardingEntry(address Address) {
	delete(n.forwardingTable, address)
}

// ForwardingTable returns a copy of the current address-to-link map.
func (n *Node) ForwardingTable() map[Address]*Link {
	cp := make(map[Address]*Link, len(n.forwardingTable))
	for k, v := range n.forwardingTable {
		cp[k] = v
	}
	return cp
}

// -- Distance-vector routing --

// InitRouting (re)initializes the forwarding table and distance-vector
// state from the node's currently running links: for each one, this
// node's own address on that link (see [Node.AddressTo]) at cost 1,
// forwarded out that link. Vectors stored for neighbors are discarded.
func (n *Node) InitRouting() {
	n.forwardingTable = make(map[Address]*Link)
	n.distanceVectors = make(map[string]*distanceVectorEntry)
	vector := make(map[Address]int)
	for _, l := range n.links {
		if l.running {
			addr := n.AddressTo(l.Endpoint().Hostname())
			n.AddForwardingEntry(addr, l)
			vector[addr] = 1
		}
	}
	n.distanceVectors[n.hostname] = &distanceVectorEntry{
		timestamp: n.scheduler.CurrentTime(),
		vector:    vector,
	}
}

// DistanceVector returns this node's own distance vector, or nil if
// routing has not been initialized.
func (n *Node) DistanceVector() map[Address]int {
	entry, ok := n.distanceVectors[n.hostname]
	if !ok {
		return nil
	}
	return entry.vector
}

// NeighborDistanceVector returns the stored distance vector received from
// hostname, or nil if none is known.
func (n *Node) NeighborDistanceVector(hostname string) map[Address]int {
	entry, ok := n.distanceVectors[hostname]
	if !ok {
		return nil
	}
	return entry.vector
}

// NeighborVectorTime returns the simulation time at which hostname's
// stored distance vector was last updated, and whether any entry exists.
func (n *Node) NeighborVectorTime(hostname string) (float64, bool) {
	entry, ok := n.distanceVectors[hostname]
	if !ok {
		return 0, false
	}
	return entry.timestamp, true
}

// UpdateDistanceVector records a distance vector heard from hostname and
// recomputes the forwarding table if it changed. Returns whether it
// changed, mirroring node.py's update_distance_vector.
func (n *Node) UpdateDistanceVector(hostname string, vector map[Address]int) bool {
	changed := n.vectorChanged(hostname, vector)
	n.distanceVectors[hostname] = &distanceVectorEntry{
		timestamp: n.scheduler.CurrentTime(),
		vector:    vector,
	}
	if changed {
		n.BuildForwardingTable()
		return true
	}
	return false
}

// RemoveDistanceVector forgets everything heard from hostname (e.g. a
// neighbor aged out past its dead interval), re-initializes this node's
// own vector and forwarding table from its running links, and rebuilds
// them from the vectors still on file for the other neighbors. Returns
// whether hostname was known.
func (n *Node) RemoveDistanceVector(hostname string) bool {
	if _, ok := n.distanceVectors[hostname]; !ok {
		return false
	}
	delete(n.distanceVectors, hostname)
	others := n.distanceVectors
	n.InitRouting()
	for host, entry := range others {
		if host != n.hostname {
			n.distanceVectors[host] = entry
		}
	}
	n.BuildForwardingTable()
	return true
}

// BuildForwardingTable recomputes this node's own distance vector and
// forwarding table from every neighbor vector currently on file, per the
// standard distance-vector relaxation step: for each address a neighbor
// advertises, if reaching it via that neighbor is shorter than what this
// node already knows, adopt it. Addresses of this node's own links,
// running or not, are skipped: they are never learned or overridden from
// a neighbor's vector.
func (n *Node) BuildForwardingTable() {
	my, ok := n.distanceVectors[n.hostname]
	if !ok {
		return
	}
	myVector := my.vector

	for host, entry := range n.distanceVectors {
		if host == n.hostname {
			continue
		}
		for addr, cost := range entry.vector {
			if n.isDirectlyAttached(addr) {
				continue
			}
			if existing, known := myVector[addr]; known {
				if cost+1 < existing {
					myVector[addr] = cost + 1
					n.AddForwardingEntry(addr, n.LinkTo(host))
				}
			} else {
				myVector[addr] = cost + 1
				n.AddForwardingEntry(addr, n.LinkTo(host))
			}
		}
	}

	n.distanceVectors[n.hostname].timestamp = n.scheduler.CurrentTime()
	n.metrics.observeRoutingRecomputation()
}

// isDirectlyAttached reports whether addr is the address of one of this
// node's own links, i.e. a destination this node already has a direct,
// authoritative route to.
func (n *Node) isDirectlyAttached(addr Address) bool {
	for _, l := range n.links {
		if l.Address() == addr {
			return true
		}
	}
	return false
}

// vectorChanged reports whether vector differs from the last vector
// stored for hostname (different size, or any differing entry).
func (n *Node) vectorChanged(hostname string, vector map[Address]int) bool {
	entry, ok := n.distanceVectors[hostname]
	if !ok {
		return true
	}
	old := entry.vector
	if len(old) != len(vector) {
		return true
	}
	for k, v := range old {
		nv, ok := vector[k]
		if !ok || nv != v {
			return true
		}
	}
	return false
}

// -- Sending and receiving --

// SendPacket stamps p's creation time (if not already stamped) and
// forwards it. This is the entry point used by protocol handlers
// originating traffic locally.
func (n *Node) SendPacket(p *Packet) {
	p.stampCreated(n.scheduler.CurrentTime())
	n.ForwardPacket(p)
}

// ReceivePacket is called by a [Link] when a packet arrives at this node.
// A broadcast is delivered locally and then still has its TTL decremented
// and is re-forwarded out every link, same as any other packet; a unicast
// packet addressed to one of this node's own interfaces is delivered
// locally and stops there. Everything else has its TTL decremented and,
// if still alive, is forwarded onward. See spec §4.4.
func (n *Node) ReceivePacket(p *Packet) {
	if p.Destination == Broadcast {
		n.DeliverPacket(p)
	} else {
		for _, l := range n.links {
			if l.Address() == p.Destination {
				n.DeliverPacket(p)
				return
			}
		}
	}

	p.TTL--
	if p.TTL <= 0 {
		n.logger.Debugf("simnet: node %s: dropping packet, TTL expired", n.hostname)
		n.metrics.observeDrop(dropReasonTTLExpired)
		return
	}
	n.ForwardPacket(p)
}

// DeliverPacket dispatches p to the protocol handler registered for
// p.Protocol. Packets with no matching handler are silently dropped.
func (n *Node) DeliverPacket(p *Packet) {
	handler, ok := n.protocols[p.Protocol]
	if !ok {
		n.logger.Debugf("simnet: node %s: dropping packet, unknown protocol %q", n.hostname, p.Protocol)
		n.metrics.observeDrop(dropReasonUnknownProtocol)
		return
	}
	handler.ReceivePacket(p)
}

// ForwardPacket sends p out the correct link(s): every attached link for
// a broadcast, or the forwarding-table entry for a unicast destination.
func (n *Node) ForwardPacket(p *Packet) {
	if p.Destination == Broadcast {
		n.forwardBroadcast(p)
		return
	}
	n.forwardUnicast(p)
}

func (n *Node) forwardUnicast(p *Packet) {
	link, ok := n.forwardingTable[p.Destination]
	if !ok {
		n.logger.Debugf("simnet: node %s: no route to %d", n.hostname, p.Destination)
		n.metrics.observeDrop(dropReasonNoRoute)
		return
	}
	link.SendPacket(p)
}

func (n *Node) forwardBroadcast(p *Packet) {
	for _, l := range n.links {
		l.SendPacket(p.ShallowCopy())
	}
}
