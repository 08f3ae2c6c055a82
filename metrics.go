package simnet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the Prometheus instrumentation shared by [Link], [Node],
// and [Transport]. Construct once per [Network] with [NewMetrics] and
// thread the same instance through every component so counters aggregate
// across the whole simulated topology.
type Metrics struct {
	// PacketsDropped counts packets dropped, labeled by reason: "loss",
	// "queue_overflow", "ttl_expired", "no_route", "unknown_protocol",
	// "link_down".
	PacketsDropped *prometheus.CounterVec

	// Retransmissions counts transport retransmissions, labeled by
	// cause: "timeout" or "fast_retransmit".
	Retransmissions *prometheus.CounterVec

	// CongestionWindow observes the congestion window size, in bytes,
	// every time it changes.
	CongestionWindow prometheus.Histogram

	// RoutingRecomputations counts forwarding-table rebuilds triggered by
	// distance-vector updates.
	RoutingRecomputations prometheus.Counter
}

// NewMetrics registers and returns a fresh [Metrics] bundle. Pass a
// dedicated [prometheus.Registry] (not [prometheus.DefaultRegisterer]) in
// tests that construct more than one [Network], since metric names are
// shared package-wide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PacketsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simnet",
			Name:      "packets_dropped_total",
			Help:      "Packets dropped by the simulated network, by reason.",
		}, []string{"reason"}),
		Retransmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simnet",
			Name:      "transport_retransmissions_total",
			Help:      "Transport segment retransmissions, by cause.",
		}, []string{"cause"}),
		CongestionWindow: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "simnet",
			Name:      "transport_congestion_window_bytes",
			Help:      "Observed congestion window size, in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 10),
		}),
		RoutingRecomputations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "simnet",
			Name:      "routing_recomputations_total",
			Help:      "Forwarding table rebuilds triggered by distance-vector updates.",
		}),
	}
}

// dropReason identifies why a packet was dropped, for metrics labeling.
type dropReason string

const (
	dropReasonLoss            dropReason = "loss"
	dropReasonQueueOverflow   dropReason = "queue_overflow"
	dropReasonTTLExpired      dropReason = "ttl_expired"
	dropReasonNoRoute         dropReason = "no_route"
	dropReasonUnknownProtocol dropReason = "unknown_protocol"
	dropReasonLinkDown        dropReason = "link_down"
)

// observeDrop increments the drop counter if metrics is non-nil, allowing
// components to be constructed without metrics wired in (e.g. in tests
// that don't care about instrumentation).
func (m *Metrics) observeDrop(reason dropReason) {
	if m == nil {
		return
	}
	m.PacketsDropped.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) observeRetransmission(cause string) {
	if m == nil {
		return
	}
	m.Retransmissions.WithLabelValues(cause).Inc()
}

func (m *Metrics) observeCongestionWindow(bytes int) {
	if m == nil {
		return
	}
	m.CongestionWindow.Observe(float64(bytes))
}

func (m *Metrics) observeRoutingRecomputation() {
	if m == nil {
		return
	}
	m.RoutingRecomputations.Inc()
}
