package simnet

import "errors"

// ErrPacketDropped indicates a packet was dropped somewhere in the
// simulated network. Drops are never fatal; see spec §7.
var ErrPacketDropped = errors.New("simnet: packet was dropped")

// ErrNoRoute indicates a node has no forwarding entry for a destination.
var ErrNoRoute = errors.New("simnet: no forwarding entry for destination")

// ErrUnknownProtocol indicates a packet arrived tagged with a protocol
// this node has no handler for.
var ErrUnknownProtocol = errors.New("simnet: unknown protocol tag")

// ErrTTLExpired indicates a packet's TTL reached zero in transit.
var ErrTTLExpired = errors.New("simnet: TTL expired")

// ErrLinkDown indicates a packet was offered to a link that is not running.
var ErrLinkDown = errors.New("simnet: link is down")

// ErrQueueFull indicates a link's queue does not have room for a packet.
var ErrQueueFull = errors.New("simnet: link queue is full")

// ErrDuplicateAddress indicates an address has already been assigned
// within a [Network].
var ErrDuplicateAddress = errors.New("simnet: address already assigned")

// ErrUnknownHost indicates a hostname was not found in a [Network].
var ErrUnknownHost = errors.New("simnet: unknown host")

// ErrNegativeDelay indicates a programmer error: a negative delay was
// passed to [Scheduler.Add].
var ErrNegativeDelay = errors.New("simnet: scheduler: delay must be >= 0")
