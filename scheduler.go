package simnet

//
// Discrete-event scheduler
//

import "container/heap"

// EventHandler is invoked when a scheduled event fires. now is the virtual
// time the event was scheduled for (equal to [Scheduler.CurrentTime] for
// the duration of the call); payload is whatever was passed to
// [Scheduler.Add].
type EventHandler func(now float64, payload any)

// schedEvent is a single entry in the scheduler's heap.
type schedEvent struct {
	time    float64
	seq     uint64
	payload any
	handler EventHandler
	active  bool
}

// Token references a scheduled event so it can later be cancelled.
type Token struct {
	ev *schedEvent
}

// eventHeap implements [heap.Interface] over a min-heap of [schedEvent],
// ordered lexicographically by (time, seq) per spec §4.1.
type eventHeap []*schedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*schedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// Scheduler is a single-threaded, cooperative discrete-event scheduler: a
// min-priority queue of timestamped events driving a single virtual clock.
// See spec §4.1 and §5. The zero value is not usable; construct with
// [NewScheduler].
type Scheduler struct {
	heap   eventHeap
	seq    uint64
	now    float64
	logger Logger
}

// NewScheduler constructs an empty [Scheduler].
func NewScheduler(logger Logger) *Scheduler {
	if logger == nil {
		logger = &NullLogger{}
	}
	s := &Scheduler{logger: logger}
	heap.Init(&s.heap)
	return s
}

// Reset clears all pending events and resets the clock and insertion
// counter to zero.
func (s *Scheduler) Reset() {
	s.heap = eventHeap{}
	heap.Init(&s.heap)
	s.seq = 0
	s.now = 0
}

// Add schedules handler to run delay seconds from now, with the given
// payload, and returns a [Token] that can later be passed to [Cancel].
// Panics if delay is negative: a negative delay is a programmer error, not
// a runtime condition (spec §7).
func (s *Scheduler) Add(delay float64, payload any, handler EventHandler) *Token {
	Must0(checkNonNegativeDelay(delay))
	s.seq++
	ev := &schedEvent{
		time:    s.now + delay,
		seq:     s.seq,
		payload: payload,
		handler: handler,
		active:  true,
	}
	heap.Push(&s.heap, ev)
	return &Token{ev: ev}
}

func checkNonNegativeDelay(delay float64) error {
	if delay < 0 {
		return ErrNegativeDelay
	}
	return nil
}

// Cancel marks a previously scheduled event as inactive. It is a no-op if
// tok is nil or the event already fired; cancellation is idempotent.
func (s *Scheduler) Cancel(tok *Token) {
	if tok == nil || tok.ev == nil {
		return
	}
	tok.ev.active = false
}

// CurrentTime returns the timestamp of the event currently being
// dispatched. Before the first event fires and after [Run] returns, it
// returns the time of the last dispatched event (zero if none ever ran).
// After [RunUntil] stops with events still pending, it returns that
// call's deadline.
func (s *Scheduler) CurrentTime() float64 {
	return s.now
}

// Run pops events in (time, seq) order, advances the virtual clock to each
// event's scheduled time, and invokes its handler. Cancelled events are
// skipped. Run returns once the queue has drained.
func (s *Scheduler) Run() {
	for s.heap.Len() > 0 {
		ev := heap.Pop(&s.heap).(*schedEvent)
		if !ev.active {
			continue
		}
		s.now = ev.time
		ev.handler(s.now, ev.payload)
	}
	s.logger.Debugf("simnet: scheduler: queue drained at t=%f", s.now)
}

// RunUntil behaves like [Run], but stops once the next pending event's
// time would exceed deadline, leaving it (and everything after it) in
// the queue and advancing the clock to deadline. Useful for driving a simulation that schedules unbounded
// periodic work (e.g. routing's perpetual rebroadcast) for a bounded
// span of virtual time.
func (s *Scheduler) RunUntil(deadline float64) {
	for s.heap.Len() > 0 {
		if s.heap[0].time > deadline {
			s.now = deadline
			return
		}
		ev := heap.Pop(&s.heap).(*schedEvent)
		if !ev.active {
			continue
		}
		s.now = ev.time
		ev.handler(s.now, ev.payload)
	}
}

// Pending returns the number of active events still in the queue. Useful
// in tests that want to assert the scheduler has drained or still has
// work outstanding without calling Run.
func (s *Scheduler) Pending() int {
	n := 0
	for _, ev := range s.heap {
		if ev.active {
			n++
		}
	}
	return n
}
