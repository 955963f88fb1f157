/*
Package metrics defines the Prometheus collectors exported by the relay and the
/metrics handler that serves them.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rtcsignal"

// Drop reasons recorded by DroppedEvents.
const (
	ReasonMalformed   = "malformed"
	ReasonUnsupported = "unsupported"
	ReasonRateLimited = "rate_limited"
)

// Metrics groups the relay's collectors. Every method is safe on a nil receiver so
// components can run without metrics in tests.
type Metrics struct {
	gatherer prometheus.Gatherer

	events      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	deliveries  prometheus.Counter
	refusals    prometheus.Counter
	rooms       prometheus.Gauge
	connections prometheus.Gauge
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry keeps
// tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Signaling events handled, by event name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Inbound signaling frames dropped before reaching room state, by reason.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound frames queued to connections.",
		}),
		refusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_refused_total",
			Help:      "Outbound frames a connection refused, either because its send queue was full or because it was already closing.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Rooms with at least one member.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Attached transport connections.",
		}),
	}

	reg.MustRegister(m.events, m.dropped, m.deliveries, m.refusals, m.rooms, m.connections)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// EventHandled counts one processed event.
func (m *Metrics) EventHandled(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

// EventDropped counts one rejected inbound frame.
func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// Delivered counts n queued outbound frames.
func (m *Metrics) Delivered(n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.Add(float64(n))
}

// Refused counts one frame a connection did not accept.
func (m *Metrics) Refused() {
	if m == nil {
		return
	}
	m.refusals.Inc()
}

// RoomOpened records a room gaining its first member.
func (m *Metrics) RoomOpened() {
	if m == nil {
		return
	}
	m.rooms.Inc()
}

// RoomClosed records a room losing its last member.
func (m *Metrics) RoomClosed() {
	if m == nil {
		return
	}
	m.rooms.Dec()
}

// ConnectionOpened records a newly attached connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed records a detached connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Reset zeroes the room and connection gauges after all state has been dropped.
func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.rooms.Set(0)
	m.connections.Set(0)
}
