package simnet

//
// DistanceVectorRouting: periodic broadcast of distance vectors, neighbor
// aging, and forwarding-table convergence. See spec §4.8.
//

// distanceVectorAdvertisement is the structured payload carried in the
// Body of a broadcast routing packet: a neighbor's hostname and its
// current distance vector.
type distanceVectorAdvertisement struct {
	hostname string
	vector   map[Address]int
}

// DistanceVectorRouting is the [ProtocolHandler] a [Node] registers under
// [ProtocolBroadcast] to participate in distance-vector routing: every
// time an advertisement arrives, it folds the advertised vector into the
// node's routing state, evicts any neighbor that has gone silent past
// cfg.NeighborDeadInterval, and schedules its own rebroadcast. Construct
// with [NewDistanceVectorRouting].
type DistanceVectorRouting struct {
	node      *Node
	scheduler *Scheduler
	logger    Logger
	cfg       *RoutingConfig

	nextID uint64
}

// NewDistanceVectorRouting constructs a [DistanceVectorRouting] handler
// for node and registers it under [ProtocolBroadcast]. Call [Start] once
// every node in the topology has been constructed to begin
// advertisement.
func NewDistanceVectorRouting(node *Node, scheduler *Scheduler, logger Logger, cfg *RoutingConfig) *DistanceVectorRouting {
	if logger == nil {
		logger = &NullLogger{}
	}
	if cfg == nil {
		cfg = NewRoutingConfig()
	}
	r := &DistanceVectorRouting{
		node:      node,
		scheduler: scheduler,
		logger:    logger,
		cfg:       cfg,
	}
	node.AddProtocol(ProtocolBroadcast, r)
	return r
}

// Start initializes the node's routing state from its currently running
// links and schedules the node's first broadcast at delay seconds from
// now (use a small stagger across nodes so not every node's first
// broadcast lands on the same scheduler tick).
func (r *DistanceVectorRouting) Start(delay float64) {
	r.node.InitRouting()
	r.scheduleBroadcast(delay)
}

// ReceivePacket implements [ProtocolHandler]. It folds the advertised
// vector into routing state, ages out any neighbor that has gone silent
// too long, and schedules a rebroadcast: soon (BroadcastPeriodChanged) if
// anything changed, otherwise at the steady-state period. See
// original_source/labs/bene/lab5/routing.py's BroadcastApp.receive_packet.
func (r *DistanceVectorRouting) ReceivePacket(p *Packet) {
	adv, ok := p.Body.(distanceVectorAdvertisement)
	if !ok {
		return
	}
	changed := r.node.UpdateDistanceVector(adv.hostname, adv.vector)

	now := r.scheduler.CurrentTime()
	for host := range r.node.distanceVectors {
		if host == r.node.Hostname() {
			continue
		}
		lastHeard, ok := r.node.NeighborVectorTime(host)
		if !ok {
			continue
		}
		if now-lastHeard > r.cfg.NeighborDeadInterval {
			r.logger.Infof("simnet: routing %s: evicting silent neighbor %s", r.node.Hostname(), host)
			r.node.RemoveDistanceVector(host)
			changed = true
			break
		}
	}

	delay := r.cfg.BroadcastPeriodSteady
	if changed {
		delay = r.cfg.BroadcastPeriodChanged
	}
	r.scheduleBroadcast(delay)
}

// scheduleBroadcast arms a one-shot event that, when it fires, sends the
// node's current distance vector as a broadcast with hop budget cfg.TTL
// (1 by default).
func (r *DistanceVectorRouting) scheduleBroadcast(delay float64) {
	r.nextID++
	id := r.nextID
	r.scheduler.Add(delay, nil, func(now float64, payload any) {
		r.broadcast(id)
	})
}

// broadcast sends the node's current distance vector to every directly
// attached neighbor.
func (r *DistanceVectorRouting) broadcast(id uint64) {
	// Advertise a snapshot: receivers store the vector and compare the
	// next advertisement against it, which a shared live map would defeat.
	vector := make(map[Address]int, len(r.node.DistanceVector()))
	for addr, cost := range r.node.DistanceVector() {
		vector[addr] = cost
	}
	p := &Packet{
		Destination: Broadcast,
		ID:          id,
		Protocol:    ProtocolBroadcast,
		TTL:         r.cfg.TTL,
		Body: distanceVectorAdvertisement{
			hostname: r.node.Hostname(),
			vector:   vector,
		},
	}
	r.node.SendPacket(p)
}
