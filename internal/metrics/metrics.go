// Package metrics provides Prometheus instrumentation for the support-chat
// backend. It exposes gauges for connection and subscription counts,
// counters for message and moderation throughput, and histograms for
// append latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supportchat_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// MessagesTotal counts messages processed, labeled by outcome:
	// "sent", "delivered", "rejected", or "blocked".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supportchat_messages_total",
		Help: "Total number of messages processed",
	}, []string{"outcome"})

	// AppendLatency records message append latency in seconds.
	AppendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "supportchat_append_latency_seconds",
		Help:    "Message append latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// FanoutDeliveries counts fan-out delivery attempts, labeled
	// "published" or "dropped".
	FanoutDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supportchat_fanout_deliveries_total",
		Help: "Total number of realtime fan-out delivery attempts",
	}, []string{"result"})

	// ModerationActionsTotal counts moderation operations, labeled
	// "ban" or "unban".
	ModerationActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supportchat_moderation_actions_total",
		Help: "Total number of completed moderation actions",
	}, []string{"action"})

	// OpenSubscriptions tracks the current number of live conversation
	// subscriptions across all connections.
	OpenSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supportchat_open_subscriptions",
		Help: "Current number of live conversation subscriptions",
	})

	// AttachmentUploads counts attachment uploads, labeled "ok" or "failed".
	AttachmentUploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supportchat_attachment_uploads_total",
		Help: "Total number of attachment upload attempts",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		MessagesTotal,
		AppendLatency,
		FanoutDeliveries,
		ModerationActionsTotal,
		OpenSubscriptions,
		AttachmentUploads,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
