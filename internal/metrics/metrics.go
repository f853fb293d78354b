package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "om_ws_active_connections",
			Help: "Websocket sessions currently open",
		},
	)

	SessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_ws_sessions_closed_total",
			Help: "Websocket sessions closed, by close code",
		},
		[]string{"code"},
	)

	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_messages_persisted_total",
			Help: "Messages persisted from websocket envelopes",
		},
		[]string{"kind"}, // "lc" or "group"
	)

	DuplicateMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "om_messages_duplicate_total",
			Help: "Envelopes discarded because message_uuid was already persisted",
		},
	)

	TaskLeaks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_ws_task_leaks_total",
			Help: "Session tasks that did not exit within the shutdown grace period",
		},
		[]string{"task"},
	)

	// Broker metrics
	BrokerPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "om_broker_publishes_total",
			Help: "Broker publishes, by result",
		},
		[]string{"result"}, // "ok" or "error"
	)

	BrokerReceiveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "om_broker_receive_errors_total",
			Help: "Transient errors while polling a subscription",
		},
	)

	// Read receipts
	ReadReceipts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "om_read_receipts_total",
			Help: "Read markers recorded and notified",
		},
	)
)

func PublishResult(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
