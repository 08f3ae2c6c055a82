package simnet

//
// Packet data model
//

// Address is a per-link interface identifier: a node has as many
// addresses as links, one per attached interface. Addresses name
// link-endpoints, not nodes. Address 0 is reserved for broadcast.
type Address uint32

// Broadcast is the reserved destination address meaning "every
// directly-attached neighbor". See spec §3.
const Broadcast Address = 0

// Packet is the value type carried across the simulated network. It is
// immutable except for Created (set exactly once, by the first
// [Node.SendPacket] call that sees it) and TTL (decremented by each
// receiving node). Length and Body are logically independent: the
// simulation uses Length for serialization/propagation timing, while Body
// is opaque payload for the protocol that constructed the packet
// (distance-vector advertisements, transport segments).
type Packet struct {
	// Source is the address of the interface this packet was sent from.
	Source Address

	// Destination is the address this packet is addressed to, or
	// [Broadcast].
	Destination Address

	// ID is an application/protocol-assigned packet identifier.
	ID uint64

	// Protocol is the protocol tag used for dispatch at the destination
	// node. See [ProtocolDelay] and friends.
	Protocol string

	// Length is the packet length in bytes, used for link timing. It is
	// independent of len(Body).
	Length int

	// TTL is the hop budget. Decremented by each node that receives the
	// packet, except a node that consumes a unicast packet addressed to it
	// (a broadcast is delivered and still decremented); the packet is
	// dropped once TTL reaches zero.
	TTL int

	// Created is the simulation time at which this packet first entered
	// [Node.SendPacket]. Nil until then.
	Created *float64

	// SourcePort and DestPort are optional transport-level ports, used by
	// [Transport] to demultiplex segments; zero when unused.
	SourcePort int
	DestPort   int

	// Sequence is the first byte offset of Body, for transport segments.
	Sequence uint64

	// AckNumber is the next byte offset the sender of this packet expects
	// to receive, i.e. a cumulative ACK. Zero means "not an ACK".
	AckNumber uint64

	// Body is opaque payload: raw bytes for transport segments, or a
	// structured value (e.g. [distanceVectorAdvertisement]) for protocols
	// that exchange structured data over the packet abstraction.
	Body any
}

// ShallowCopy returns a copy of p. Used when a packet is about to be
// mutated independently on divergent paths (e.g. broadcast fan-out, TTL
// decrement per hop) without disturbing a copy still in flight elsewhere.
func (p *Packet) ShallowCopy() *Packet {
	cp := *p
	return &cp
}

// stampCreated sets Created to now if it has not already been set. It is
// called exactly once per packet, by the node that first offers it to
// [Node.SendPacket].
func (p *Packet) stampCreated(now float64) {
	if p.Created != nil {
		return
	}
	t := now
	p.Created = &t
}
