package simnet

//
// Transport: a TCP-like reliable byte-stream protocol built on an
// unreliable [Node]/[Link] substrate. See spec §4.7.
//

// DataSink receives bytes delivered in order by a [Transport]. Analogous
// to the application layer sitting above a real TCP socket.
type DataSink interface {
	ReceiveData(data []byte)
}

// DataSinkFunc adapts a plain function to [DataSink].
type DataSinkFunc func(data []byte)

// ReceiveData implements [DataSink].
func (f DataSinkFunc) ReceiveData(data []byte) { f(data) }

// Transport is a single reliable connection between two addresses: a
// sliding-window sender with slow-start/additive-increase congestion
// control, RTO-based and fast retransmission, layered over a
// cumulative-ACK receiver. It implements [ProtocolHandler]; construct
// with [NewTransport], which registers it on node under cfg.ProtocolTag.
type Transport struct {
	node      *Node
	scheduler *Scheduler
	logger    Logger
	metrics   *Metrics
	cfg       *TransportConfig

	sourceAddr Address
	sourcePort int
	destAddr   Address
	destPort   int

	sink DataSink

	// -- Sender state --
	sendBuf *SendBuffer
	window  int
	// sequence is the largest sequence number ACKed so far.
	sequence uint64
	timer    *Token

	srtt   float64
	rttvar float64
	rto    float64

	fastEnable       bool
	lastAck          uint64
	sameAckCount     int
	fastRetransmitted bool

	threshold int
	increment float64

	// dropSet and alreadyDropped implement the reproducible-loss hook of
	// spec §4.7's send_segment contract: a sequence number in dropSet is
	// silently dropped the first time it is sent, then sent normally on
	// every retransmission after that.
	dropSet        map[uint64]bool
	alreadyDropped map[uint64]bool

	// -- Receiver state --
	recvBuf *ReceiveBuffer
	// ack is the first sequence number not yet received in order, i.e.
	// the next ACK number to send.
	ack uint64
}

// NewTransport constructs a [Transport] connecting (sourceAddr,
// sourcePort) to (destAddr, destPort) over node, and registers it as
// node's handler for cfg.ProtocolTag. Data delivered in order is handed
// to sink.
func NewTransport(
	node *Node,
	scheduler *Scheduler,
	logger Logger,
	metrics *Metrics,
	cfg *TransportConfig,
	sourceAddr Address, sourcePort int,
	destAddr Address, destPort int,
	sink DataSink,
) *Transport {
	if logger == nil {
		logger = &NullLogger{}
	}
	if cfg == nil {
		cfg = NewTransportConfig()
	}
	t := &Transport{
		node:       node,
		scheduler:  scheduler,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
		sourceAddr: sourceAddr,
		sourcePort: sourcePort,
		destAddr:   destAddr,
		destPort:   destPort,
		sink:       sink,
		sendBuf:    NewSendBuffer(0),
		window:     cfg.Window,
		rto:        cfg.InitialRTO,
		threshold:  100000,
		recvBuf:    NewReceiveBuffer(0),
	}
	node.AddProtocol(cfg.ProtocolTag, t)
	return t
}

// SetFastRetransmitEnabled toggles duplicate-ACK-triggered fast
// retransmit. It is off on a newly constructed Transport, which then
// retransmits on timeout only.
func (t *Transport) SetFastRetransmitEnabled(enabled bool) {
	t.fastEnable = enabled
}

// SetDropSet arms a one-time simulated loss for each given sequence number:
// the first segment sent at that sequence is silently dropped (never
// reaches the network), and every later retransmission of it goes through
// normally. Use this for deterministic RTO/retransmission tests in place
// of [LinkConfig.LossRate]'s probabilistic drops (spec §4.7, §8 scenario
// 4).
func (t *Transport) SetDropSet(sequences ...uint64) {
	t.dropSet = make(map[uint64]bool, len(sequences))
	t.alreadyDropped = make(map[uint64]bool, len(sequences))
	for _, seq := range sequences {
		t.dropSet[seq] = true
	}
}

// Window returns the current congestion window, in bytes.
func (t *Transport) Window() int { return t.window }

// Threshold returns the current slow-start threshold, in bytes.
func (t *Transport) Threshold() int { return t.threshold }

// Send hands data to the connection's application-facing sender: it is
// appended to the send buffer, then as much of it as the window allows is
// flushed onto the wire immediately.
func (t *Transport) Send(data []byte) {
	t.sendBuf.Put(data)
	t.flush()
}

// flush sends MSS-sized segments from the send buffer for as long as
// there is unsent data and room in the window.
func (t *Transport) flush() {
	for t.sendBuf.Available() != 0 && t.sendBuf.Outstanding() < t.window {
		data, sequence := t.sendBuf.Get(t.cfg.MSS)
		t.sendSegment(data, sequence)
	}
}

// sendSegment builds and sends a data segment, arming the retransmission
// timer if it is not already running.
func (t *Transport) sendSegment(data []byte, sequence uint64) {
	p := &Packet{
		Source:      t.sourceAddr,
		Destination: t.destAddr,
		Protocol:    t.cfg.ProtocolTag,
		Length:      len(data),
		TTL:         DefaultTransportTTL,
		SourcePort:  t.sourcePort,
		DestPort:    t.destPort,
		Sequence:    sequence,
		AckNumber:   t.ack,
		Body:        data,
	}
	if t.dropSet[sequence] && !t.alreadyDropped[sequence] {
		t.alreadyDropped[sequence] = true
		t.logger.Debugf("simnet: transport %d->%d: simulated drop of segment seq=%d", t.sourceAddr, t.destAddr, sequence)
	} else {
		t.logger.Debugf("simnet: transport %d->%d: sending segment seq=%d len=%d", t.sourceAddr, t.destAddr, sequence, len(data))
		t.node.SendPacket(p)
	}
	// rto starts at cfg.InitialRTO (see NewTransport) and is re-estimated
	// by updateRTO on every ACKed RTT sample, so arming at t.rto here
	// always uses the current estimate, not a stale initial value.
	t.armTimer(t.rto)
}

// armTimer starts the retransmission timer with the given delay if it is
// not already running.
func (t *Transport) armTimer(delay float64) {
	if t.timer != nil {
		return
	}
	t.timer = t.scheduler.Add(delay, nil, func(now float64, payload any) {
		t.timer = nil
		t.onRetransmitTimeout()
	})
}

// cancelTimer disarms the retransmission timer, if running.
func (t *Transport) cancelTimer() {
	if t.timer == nil {
		return
	}
	t.scheduler.Cancel(t.timer)
	t.timer = nil
}

// ReceivePacket implements [ProtocolHandler]. A packet may carry an ACK,
// data, or both (a pure ACK has AckNumber > 0 and Length == 0).
func (t *Transport) ReceivePacket(p *Packet) {
	if p.AckNumber > 0 {
		t.handleAck(p)
	}
	if p.Length > 0 {
		t.handleData(p)
	}
}

// handleAck processes a cumulative ACK: fast-retransmit bookkeeping,
// congestion-window adjustment, send-buffer slide, refill, and RTT/RTO
// re-estimation. See original_source/labs/bene/lab3/tcp.py's handle_ack.
func (t *Transport) handleAck(p *Packet) {
	t.logger.Debugf("simnet: transport %d->%d: received ack=%d", t.destAddr, t.sourceAddr, p.AckNumber)

	if t.fastEnable {
		if p.AckNumber == t.lastAck {
			t.sameAckCount++
			if t.sameAckCount == t.cfg.DupAckThreshold && !t.fastRetransmitted {
				t.fastRetransmit()
				return
			}
		} else {
			t.sameAckCount = 0
			t.lastAck = p.AckNumber
			t.fastRetransmitted = false
		}
	}

	acked := int(p.AckNumber - t.sequence)
	if t.window >= t.threshold {
		t.additiveIncrease(acked)
	} else {
		t.slowStart(acked)
	}

	t.sequence = p.AckNumber
	if p.AckNumber >= t.sendBuf.BaseSeq() {
		t.sendBuf.Slide(p.AckNumber)
	}
	t.flush()

	if p.Created != nil {
		t.updateRTO(t.scheduler.CurrentTime() - *p.Created)
	}

	t.cancelTimer()
	if t.sendBuf.Outstanding() != 0 {
		t.armTimer(t.rto)
	}
}

// updateRTO folds one new RTT sample r into SRTT/RTTVAR using the
// standard Jacobson/Karn EWMA (spec §4.7, §9), then recomputes the RTO as
// srtt + 4*rttvar, floored at cfg.MinRTO.
func (t *Transport) updateRTO(r float64) {
	if t.srtt == 0 {
		t.srtt = r
		t.rttvar = r / 2.0
	} else {
		rttvar := (1 - t.cfg.RTTBeta) * t.rttvar
		diff := t.srtt - r
		if diff < 0 {
			diff = -diff
		}
		t.rttvar = rttvar + t.cfg.RTTBeta*diff
		t.srtt = (1-t.cfg.RTTAlpha)*t.srtt + t.cfg.RTTAlpha*r
	}
	rto := t.srtt + 4*t.rttvar
	if rto < t.cfg.MinRTO {
		rto = t.cfg.MinRTO
	}
	t.rto = rto
}

// fastRetransmit fires on the configured number of duplicate ACKs:
// collapse the congestion window to one segment, as in a timeout, and
// resend the oldest outstanding data immediately rather than waiting for
// the timer.
func (t *Transport) fastRetransmit() {
	t.logger.Debugf("simnet: transport %d->%d: fast retransmit", t.sourceAddr, t.destAddr)
	t.cancelTimer()
	t.collapseWindow()
	data, sequence := t.sendBuf.Resend(t.window, true)
	if len(data) == 0 {
		return
	}
	t.sendSegment(data, sequence)
	t.metrics.observeRetransmission("fast_retransmit")
	t.fastRetransmitted = true
}

// onRetransmitTimeout fires when the retransmission timer expires without
// an intervening ACK. Per spec §7, a misfire against an empty send buffer
// cancels cleanly without sending anything.
func (t *Transport) onRetransmitTimeout() {
	t.logger.Debugf("simnet: transport %d->%d: retransmission timer fired", t.sourceAddr, t.destAddr)
	t.collapseWindow()
	data, sequence := t.sendBuf.Resend(t.window, true)
	if len(data) == 0 {
		return
	}
	t.sendSegment(data, sequence)
	t.metrics.observeRetransmission("timeout")
}

// collapseWindow resets the congestion window to one segment and
// recomputes the slow-start threshold to half the previous window
// (rounded down to an MSS multiple), per standard TCP loss response.
func (t *Transport) collapseWindow() {
	threshold := t.window / 2
	if threshold < t.cfg.MSS {
		threshold = t.cfg.MSS
	}
	threshold -= threshold % t.cfg.MSS
	t.threshold = threshold
	t.window = t.cfg.MSS
	t.increment = 0
	t.metrics.observeCongestionWindow(t.window)
}

// slowStart grows the window by min(ackedBytes, MSS) for every ACK while
// below threshold.
func (t *Transport) slowStart(ackedBytes int) {
	grow := ackedBytes
	if grow > t.cfg.MSS {
		grow = t.cfg.MSS
	}
	t.window += grow
	t.metrics.observeCongestionWindow(t.window)
}

// additiveIncrease grows the window by one MSS per round-trip once above
// threshold, via the standard fractional-credit accumulator.
func (t *Transport) additiveIncrease(ackedBytes int) {
	t.increment += float64(ackedBytes) * float64(t.cfg.MSS) / float64(t.window)
	if t.increment >= float64(t.cfg.MSS) {
		t.window += t.cfg.MSS
		t.increment -= float64(t.cfg.MSS)
		t.metrics.observeCongestionWindow(t.window)
	}
}

// handleData absorbs an incoming data segment: buffer it, extract
// whatever prefix is now in order, deliver it to the sink, and ack the
// new high-water mark. See original_source/labs/bene/lab3/tcp.py's
// handle_data.
func (t *Transport) handleData(p *Packet) {
	body, _ := p.Body.([]byte)
	t.recvBuf.Put(body, p.Sequence)
	data, start := t.recvBuf.Get()
	if len(data) > 0 && t.sink != nil {
		t.sink.ReceiveData(data)
	}
	t.ack = start + uint64(len(data))
	t.sendAck()
}

// sendAck sends a pure-ACK segment (zero length) carrying the current ack
// high-water mark.
func (t *Transport) sendAck() {
	p := &Packet{
		Source:      t.sourceAddr,
		Destination: t.destAddr,
		Protocol:    t.cfg.ProtocolTag,
		TTL:         DefaultTransportTTL,
		SourcePort:  t.sourcePort,
		DestPort:    t.destPort,
		Sequence:    t.sequence,
		AckNumber:   t.ack,
	}
	t.logger.Debugf("simnet: transport %d->%d: sending ack=%d", t.sourceAddr, t.destAddr, t.ack)
	t.node.SendPacket(p)
}
