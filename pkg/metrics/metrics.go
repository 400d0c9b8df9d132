// Package metrics holds the prometheus collectors exported by the relay.
//
// A nil *Metrics is valid and records nothing, so packages can call it
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "punch_relay"

// Drop reasons.
const (
	DropReasonMalformedToken = "malformed_token"
	DropReasonUnknownRole    = "unknown_role"
	DropReasonInvalidAddr    = "invalid_server_addr"
	DropReasonEmptyToken     = "empty_token"
	DropReasonServerNotFound = "server_not_found"
	DropReasonMalformedPkt   = "malformed_packet"
	DropReasonQueueFull      = "queue_full"
	DropReasonOversize       = "oversize"
)

// Registry names used as label values.
const (
	RegistryServers = "servers"
	RegistryWaiting = "waiting"
)

type Metrics struct {
	Packets       *prometheus.CounterVec
	Drops         *prometheus.CounterVec
	Registrations *prometheus.CounterVec
	Introductions *prometheus.CounterVec
	Evictions     *prometheus.CounterVec
	Entries       *prometheus.GaugeVec
	STUNBindings  prometheus.Counter
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Datagrams received, by packet kind.",
		}, []string{"kind"}),
		Drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drops_total",
			Help:      "Events dropped without mutating the registry, by reason.",
		}, []string{"reason"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registry upserts and refreshes, by registry and action.",
		}, []string{"registry", "action"}),
		Introductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "introductions_total",
			Help:      "Introductions attempted, by result.",
		}, []string{"result"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Entries evicted by the TTL sweep, by registry.",
		}, []string{"registry"}),
		Entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Live registry entries, by registry.",
		}, []string{"registry"}),
		STUNBindings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stun_bindings_total",
			Help:      "STUN binding requests answered.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Packets,
			m.Drops,
			m.Registrations,
			m.Introductions,
			m.Evictions,
			m.Entries,
			m.STUNBindings,
		)
	}
	return m
}

func (m *Metrics) Packet(kind string) {
	if m == nil {
		return
	}
	m.Packets.WithLabelValues(kind).Inc()
}

func (m *Metrics) Drop(reason string) {
	if m == nil {
		return
	}
	m.Drops.WithLabelValues(reason).Inc()
}

func (m *Metrics) Registered(registry, action string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(registry, action).Inc()
}

func (m *Metrics) Introduced(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Introductions.WithLabelValues(result).Inc()
}

func (m *Metrics) Evicted(registry string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Evictions.WithLabelValues(registry).Add(float64(n))
}

func (m *Metrics) SetEntries(registry string, n int) {
	if m == nil {
		return
	}
	m.Entries.WithLabelValues(registry).Set(float64(n))
}

func (m *Metrics) STUNBinding() {
	if m == nil {
		return
	}
	m.STUNBindings.Inc()
}
