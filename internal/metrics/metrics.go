package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Harness metrics for production monitoring
var (
	// Investigation metrics
	InvestigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentloop_investigations_total",
			Help: "Total number of investigations finished, by terminal status",
		},
		[]string{"status"},
	)

	InvestigationIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "incidentloop_investigation_iterations",
			Help:    "Number of full loop iterations per investigation",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incidentloop_phase_duration_seconds",
			Help:    "Duration of each harness phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"phase"},
	)

	// Reasoner metrics
	ReasonerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentloop_reasoner_requests_total",
			Help: "Total number of reasoner requests",
		},
		[]string{"phase", "status"}, // status: ok/error
	)

	ReasonerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentloop_reasoner_fallbacks_total",
			Help: "Total number of malformed reasoner responses replaced by a fallback payload",
		},
		[]string{"phase"},
	)

	ReasonerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incidentloop_reasoner_request_duration_seconds",
			Help:    "Reasoner request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"provider"},
	)

	// Evidence tool metrics
	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentloop_tool_invocations_total",
			Help: "Total number of evidence tool invocations",
		},
		[]string{"tool", "status"}, // status: ok/failed
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "incidentloop_tool_duration_seconds",
			Help:    "Evidence tool execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"tool"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "incidentloop_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incidentloop_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: inbound/outbound
	)
)
