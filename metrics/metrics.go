package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chat"

// Metrics groups the collectors the socket layer and the chat engine report to.
type Metrics struct {
	Events        *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	Sessions      prometheus.Gauge
	Messages      *prometheus.CounterVec
	Emits         *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	RateLimited   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_events_total",
			Help:      "Client socket events handled, by event and outcome.",
		}, []string{"event", "outcome"}),
		EventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "socket_event_duration_seconds",
			Help:      "Time spent handling a client socket event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_connected",
			Help:      "Socket sessions currently connected to this node.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages persisted, by chat type.",
		}, []string{"chat_type"}),
		Emits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emits_total",
			Help:      "Server to client emits, by event.",
		}, []string{"event"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications persisted, by delivery (live or stored).",
		}, []string{"delivery"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "socket_rate_limited_total",
			Help:      "Client socket events rejected by the per-connection limiter.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Events,
			m.EventDuration,
			m.Sessions,
			m.Messages,
			m.Emits,
			m.Notifications,
			m.RateLimited,
		)
	}
	return m
}

// Discard returns unregistered collectors.
func Discard() *Metrics {
	return New(nil)
}
