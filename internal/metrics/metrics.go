// Package metrics defines the Prometheus metrics the edge process exposes
// at /metrics, and the small helpers that keep them updated.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_connections_total",
		Help: "Total number of WebSocket connections established",
	})

	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_connections_active",
		Help: "Current number of active WebSocket connections",
	})

	ConnectionsMax = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_connections_max",
		Help: "Maximum allowed WebSocket connections",
	})

	ConnectionsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_connections_failed_total",
		Help: "Total number of rejected or failed connection attempts",
	})

	DisconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecodec_edge_disconnects_total",
		Help: "Total disconnections by reason and who initiated",
	}, []string{"reason", "initiated_by"})

	ConnectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatecodec_edge_connection_duration_seconds",
		Help:    "Connection duration before disconnect",
		Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
	}, []string{"reason"})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_messages_sent_total",
		Help: "Total number of framed messages sent to clients",
	})

	MessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_messages_received_total",
		Help: "Total number of framed messages received from clients",
	})

	BytesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_bytes_sent_total",
		Help: "Total number of bytes sent to clients",
	})

	BytesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_bytes_received_total",
		Help: "Total number of bytes received from clients",
	})

	MalformedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecodec_edge_malformed_messages_total",
		Help: "Messages that failed frame decoding, by framing discipline",
	}, []string{"framing"})

	SlowClientsDisconnected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_slow_clients_disconnected_total",
		Help: "Total number of slow clients disconnected",
	})

	RateLimitedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_rate_limited_messages_total",
		Help: "Total number of inbound messages dropped by per-connection rate limiting",
	})

	ConnectionRateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecodec_edge_connection_rate_limited_total",
		Help: "Total connection attempts rejected by the connection rate limiter",
	}, []string{"scope"})

	BroadcastsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_broadcasts_received_total",
		Help: "Total number of broadcast frames received from the message bus",
	})

	BroadcastsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecodec_edge_broadcasts_dropped_total",
		Help: "Total broadcast frames dropped, by reason",
	}, []string{"reason"})

	BroadcastFanoutSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatecodec_edge_broadcast_fanout_seconds",
		Help:    "Time to fan a single broadcast frame out to all connected clients",
		Buckets: prometheus.DefBuckets,
	})

	BusConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_bus_connected",
		Help: "Message bus subscription status (1=connected, 0=disconnected)",
	})

	MemoryUsageBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_memory_bytes",
		Help: "Current process memory usage in bytes",
	})

	MemoryLimitBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_memory_limit_bytes",
		Help: "Memory limit in bytes, from cgroup",
	})

	CPUUsagePercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_cpu_usage_percent",
		Help: "CPU usage as a percentage of allocated CPUs (container-aware)",
	})

	CPUHostPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_cpu_host_percent",
		Help: "CPU usage as a percentage of total host CPUs, for reference",
	})

	CPUAllocationCores = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_cpu_allocation_cores",
		Help: "Number of CPU cores allocated to this process",
	})

	CPUThrottledSecondsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_cpu_throttled_seconds_total",
		Help: "Total time this process's CPU was throttled by cgroup",
	})

	CPUThrottleEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatecodec_edge_cpu_throttle_events_total",
		Help: "Total number of times this process hit its CPU limit",
	})

	GoroutinesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatecodec_edge_goroutines_active",
		Help: "Current number of active goroutines",
	})

	CapacityHeadroomPercent = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gatecodec_edge_capacity_headroom_percent",
		Help: "Available resource headroom, by resource (cpu, memory)",
	}, []string{"resource"})

	CapacityRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecodec_edge_capacity_rejections_total",
		Help: "Total connection rejections by reason",
	}, []string{"reason"})

	ErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecodec_edge_errors_total",
		Help: "Total errors by type and severity",
	}, []string{"type", "severity"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal, ConnectionsActive, ConnectionsMax, ConnectionsFailed,
		DisconnectsTotal, ConnectionDuration,
		MessagesSent, MessagesReceived, BytesSent, BytesReceived,
		MalformedMessages,
		SlowClientsDisconnected, RateLimitedMessages, ConnectionRateLimited,
		BroadcastsReceived, BroadcastsDropped, BroadcastFanoutSeconds, BusConnected,
		MemoryUsageBytes, MemoryLimitBytes,
		CPUUsagePercent, CPUHostPercent, CPUAllocationCores,
		CPUThrottledSecondsTotal, CPUThrottleEventsTotal,
		GoroutinesActive,
		CapacityHeadroomPercent, CapacityRejections,
		ErrorsTotal,
	)
}

// Error severities used to label ErrorsTotal.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
	SeverityFatal    = "fatal"
)

// Error types used to label ErrorsTotal.
const (
	TypeBroadcast     = "broadcast"
	TypeSerialization = "serialization"
	TypeConnection    = "connection"
	TypeBus           = "bus"
)

// Disconnect reasons used to label DisconnectsTotal/ConnectionDuration.
const (
	DisconnectReadError         = "read_error"
	DisconnectWriteTimeout      = "write_timeout"
	DisconnectPingTimeout       = "ping_timeout"
	DisconnectRateLimitExceeded = "rate_limit_exceeded"
	DisconnectServerShutdown    = "server_shutdown"
	DisconnectClientInitiated   = "client_initiated"
	DisconnectSendChannelClosed = "send_channel_closed"
)

// Who initiated a disconnect.
const (
	InitiatedByClient = "client"
	InitiatedByServer = "server"
)

// RecordDisconnect records a disconnect's reason, initiator, and the
// connection's lifetime.
func RecordDisconnect(reason, initiatedBy string, duration time.Duration) {
	DisconnectsTotal.WithLabelValues(reason, initiatedBy).Inc()
	ConnectionDuration.WithLabelValues(reason).Observe(duration.Seconds())
}

// RecordError tracks an error occurrence by type and severity.
func RecordError(errorType, severity string) {
	ErrorsTotal.WithLabelValues(errorType, severity).Inc()
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
