package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Panel lifecycle events.
const (
	PanelCreated    = "created"
	PanelRevealed   = "revealed"
	PanelRerendered = "rerendered"
	PanelDisposed   = "disposed"
)

// Outcomes used as the result label.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultIgnored = "ignored"
)

var (
	// Rendering
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webpanel_renders_total",
		Help: "Total dashboard renders by surface and result",
	}, []string{"surface", "result"})

	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webpanel_render_duration_seconds",
		Help:    "Time spent loading and executing the dashboard template",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs to ~1.6s
	}, []string{"surface"})

	// Panel lifecycle
	panelEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webpanel_panel_events_total",
		Help: "Dashboard panel lifecycle events",
	}, []string{"event"})

	// Message bridge
	bridgeMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webpanel_bridge_messages_total",
		Help: "Messages received from webviews by type and result",
	}, []string{"type", "result"})

	// Browser host connections
	webviewConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "webpanel_webview_connections_active",
		Help: "Number of open webview websocket connections",
	}, []string{"kind"})

	webviewConnectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webpanel_webview_connection_duration_seconds",
		Help:    "Webview websocket connection duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 15), // 1s to ~16k seconds
	}, []string{"kind"})

	webviewMessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webpanel_webview_messages_dropped_total",
		Help: "Inbound webview messages dropped by the rate limiter",
	}, []string{"kind"})
)

// RecordRender counts one render and its duration.
func RecordRender(surface string, duration float64, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	rendersTotal.WithLabelValues(surface, result).Inc()
	renderDuration.WithLabelValues(surface).Observe(duration)
}

// IncrementPanelEvent counts a panel lifecycle event
func IncrementPanelEvent(event string) {
	panelEventsTotal.WithLabelValues(event).Inc()
}

// IncrementBridgeMessage counts a bridge message
func IncrementBridgeMessage(msgType, result string) {
	bridgeMessagesTotal.WithLabelValues(msgType, result).Inc()
}

// WebviewConnected tracks a new websocket connection
func WebviewConnected(kind string) {
	webviewConnectionsActive.WithLabelValues(kind).Inc()
}

// WebviewDisconnected tracks a closed websocket connection
func WebviewDisconnected(kind string, duration float64) {
	webviewConnectionsActive.WithLabelValues(kind).Dec()
	webviewConnectionDuration.WithLabelValues(kind).Observe(duration)
}

// IncrementDroppedMessage counts a webview message dropped by the rate
// limiter or a full send buffer
func IncrementDroppedMessage(kind string) {
	webviewMessagesDropped.WithLabelValues(kind).Inc()
}
