// Package simnet is a discrete-event network simulator core.
//
// It models a packet-switched network as a graph of nodes connected by
// directed point-to-point [Link]s, driving time forward through a
// [Scheduler] that owns a single priority queue of timestamped events.
// Layered above the link model are a reliable byte-stream [Transport] with
// congestion control and retransmission, and a [DistanceVectorRouting]
// protocol that converges forwarding tables through periodic broadcast
// advertisements.
//
// The simulation is single-threaded and cooperative: every time-dependent
// behavior (serialization delay, propagation, retransmission timeouts,
// periodic broadcasts) is expressed as an event scheduled on the
// [Scheduler], never as a real sleep or goroutine suspension. Given a
// seeded random source for link loss, a simulation built from this package
// is fully reproducible.
//
// Construct a [Network] to obtain an arena that owns [Node]s and [Link]s,
// wire protocol handlers onto nodes ([Node.AddProtocol]), and call
// [Scheduler.Run] to drive the simulation to completion.
package simnet
