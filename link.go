package simnet

//
// Link: one-way channel with bandwidth, propagation delay, a bounded
// queue, and probabilistic loss. See spec §4.3.
//

import (
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// LinkState describes whether a [Link] currently holds any admitted packet
// that has not yet been delivered to its endpoint. A packet that has
// finished serializing but is still propagating counts as transmitting.
type LinkState int

const (
	LinkStateIdle LinkState = iota
	LinkStateTransmitting
)

// LinkConfig bundles the parameters of a one-way [Link].
type LinkConfig struct {
	// BandwidthBPS is the link bandwidth, in bits per second.
	BandwidthBPS float64

	// PropagationDelay is the one-way propagation delay, in seconds.
	PropagationDelay float64

	// MaxQueueBytes bounds the total length of packets admitted but not
	// yet delivered (queued, serializing, or propagating) before
	// tail-dropping. A packet still propagating counts against the bound
	// until it reaches the endpoint.
	MaxQueueBytes int

	// LossRate is the probability, in [0,1], that a packet offered to the
	// link is dropped; 1 drops every packet.
	LossRate float64

	// Rand is the source of randomness for loss decisions. Inject a
	// seeded [rand.Rand] for reproducible simulations (spec §5, §9).
	Rand *rand.Rand
}

// linkEpoch is the arbitrary wall-clock anchor used to translate the
// scheduler's virtual seconds into the [time.Time] values
// [rate.Limiter] expects. Only deltas from this anchor are ever used, so
// its absolute value is immaterial.
var linkEpoch = time.Unix(0, 0)

// virtualTime maps a virtual-clock offset, in seconds, onto a [time.Time]
// anchored at [linkEpoch], so that [rate.Limiter] (designed around
// wall-clock time) can be driven by the scheduler's virtual clock instead.
func virtualTime(seconds float64) time.Time {
	return linkEpoch.Add(time.Duration(seconds * float64(time.Second)))
}

// Link is a one-way channel from source to endpoint. The zero value is
// invalid; use [NewLink].
type Link struct {
	id     string
	source *Node
	// endpoint is the node at the far end of this one-way link.
	endpoint *Node
	// address is the interface address assigned on the source side.
	address Address

	cfg LinkConfig

	// limiter drives the serialization model: reserving N bytes against
	// it yields exactly the queueing + transmission delay spec §4.3
	// describes. Its burst is kept at one MTU — the size of whichever
	// packet is about to be reserved, via SetBurstAt in SendPacket — so
	// at most one packet's worth of tokens is ever free; every packet
	// behind it in the same instant must wait out the sender's own
	// serialization time, matching the FIFO one-packet-at-a-time
	// transmission model instead of draining a multi-packet burst pool
	// with zero delay. The refill rate is BandwidthBPS/8 bytes/sec. See
	// SPEC_FULL.md §11.1.
	limiter *rate.Limiter

	// inflight tracks packets admitted but not yet delivered, purely for
	// the queue_size_bytes accounting invariant (spec §3); the limiter
	// above is the actual source of timing truth.
	inflight     []*Packet
	inflightSize int

	running bool

	scheduler *Scheduler
	logger    Logger
	metrics   *Metrics
}

// NewLink constructs a [Link] from source to endpoint with the given
// interface address on the source side. The link starts up (running).
func NewLink(
	scheduler *Scheduler,
	logger Logger,
	metrics *Metrics,
	source, endpoint *Node,
	address Address,
	cfg LinkConfig,
) *Link {
	if logger == nil {
		logger = &NullLogger{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(1))
	}
	// Burst starts at MaxQueueBytes so the limiter's tokens start full
	// enough to cover any single packet this link will ever admit (the
	// admission check below guarantees p.Length <= MaxQueueBytes); it is
	// then shrunk to each packet's own length, via SetBurstAt, right
	// before that packet is reserved, so a fresh reservation never draws
	// on more than one packet's worth of free tokens.
	initialBurst := cfg.MaxQueueBytes
	if initialBurst <= 0 {
		initialBurst = 1
	}
	l := &Link{
		id:        newID(),
		source:    source,
		endpoint:  endpoint,
		address:   address,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.BandwidthBPS/8.0), initialBurst),
		running:   true,
		scheduler: scheduler,
		logger:    logger,
		metrics:   metrics,
	}
	return l
}

// ID returns the link's stable arena identifier.
func (l *Link) ID() string { return l.id }

// Address returns the interface address assigned on the source side.
func (l *Link) Address() Address { return l.address }

// Endpoint returns the node at the far end of this one-way link.
func (l *Link) Endpoint() *Node { return l.endpoint }

// State reports [LinkStateTransmitting] while any admitted packet has not
// yet been delivered, including one that is only propagating, and
// [LinkStateIdle] otherwise.
func (l *Link) State() LinkState {
	if len(l.inflight) > 0 {
		return LinkStateTransmitting
	}
	return LinkStateIdle
}

// QueueSizeBytes returns the total length of packets currently admitted
// but not yet delivered, i.e. sum(p.Length for p in queue) from spec §3's
// invariant.
func (l *Link) QueueSizeBytes() int { return l.inflightSize }

// Up marks the link as running. Does not affect packets already in
// flight.
func (l *Link) Up() { l.running = true }

// Down marks the link as not running. New sends are dropped; packets
// already in flight continue to their scheduled delivery.
func (l *Link) Down() { l.running = false }

// Running reports whether the link currently accepts new sends.
func (l *Link) Running() bool { return l.running }

// SendPacket implements the contract of spec §4.3: silently drop if down,
// probabilistically drop for loss, tail-drop on queue overflow, otherwise
// admit the packet and schedule its delivery.
func (l *Link) SendPacket(p *Packet) {
	if !l.running {
		l.logger.Debugf("simnet: link %s: dropping packet, link down", l.id)
		l.metrics.observeDrop(dropReasonLinkDown)
		return
	}
	if l.cfg.LossRate > 0 && l.cfg.Rand.Float64() < l.cfg.LossRate {
		l.logger.Debugf("simnet: link %s: dropping packet, simulated loss", l.id)
		l.metrics.observeDrop(dropReasonLoss)
		return
	}
	if l.inflightSize+p.Length > l.cfg.MaxQueueBytes {
		l.logger.Debugf("simnet: link %s: dropping packet, queue full", l.id)
		l.metrics.observeDrop(dropReasonQueueOverflow)
		return
	}

	now := l.scheduler.CurrentTime()
	nowT := virtualTime(now)
	l.limiter.SetBurstAt(nowT, maxInt(p.Length, 1))
	res := l.limiter.ReserveN(nowT, p.Length)
	if !res.OK() {
		// Cannot happen in practice: burst was just sized to this
		// packet's own length, so a reservation for exactly that many
		// tokens always succeeds. Treat as a queue-overflow drop
		// defensively.
		l.logger.Warnf("simnet: link %s: reservation failed for %d bytes", l.id, p.Length)
		l.metrics.observeDrop(dropReasonQueueOverflow)
		return
	}
	startDelay := res.DelayFrom(nowT).Seconds()
	txDuration := float64(p.Length) * 8 / l.cfg.BandwidthBPS
	totalDelay := startDelay + txDuration + l.cfg.PropagationDelay

	l.inflight = append(l.inflight, p)
	l.inflightSize += p.Length

	l.scheduler.Add(totalDelay, p, func(now float64, payload any) {
		l.onDelivery(payload.(*Packet))
	})
}

// onDelivery fires when a packet reaches the end of its serialization +
// propagation delay. It pops the packet from the link's in-flight
// accounting (FIFO, matching send order per spec §4.3) and hands it to the
// endpoint node.
func (l *Link) onDelivery(p *Packet) {
	for i, q := range l.inflight {
		if q == p {
			l.inflight = append(l.inflight[:i], l.inflight[i+1:]...)
			break
		}
	}
	l.inflightSize -= p.Length
	if l.inflightSize < 0 {
		l.inflightSize = 0
	}
	l.endpoint.ReceivePacket(p)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
