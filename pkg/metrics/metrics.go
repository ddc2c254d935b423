// Package metrics exposes Prometheus counters for the telemetry
// watchdog and the IPC transport. Counters live on the default
// registry so an embedding process can serve them from its own
// promhttp handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WatchdogTicks counts watchdog ticks, including silent no-ops.
	WatchdogTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workerlink_watchdog_ticks_total",
		Help: "Total telemetry watchdog ticks",
	})

	// TelemetryReports counts telemetry samples handed to the transport.
	TelemetryReports = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workerlink_telemetry_reports_total",
		Help: "Total telemetry samples sent toward the supervisor",
	})

	// SendFailures counts outbound transport errors, by path.
	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workerlink_send_failures_total",
		Help: "Total outbound send failures",
	}, []string{"path"}) // "supervisor" or "mailbox"

	// InboundDispatched counts inbound messages delivered to listeners.
	InboundDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workerlink_inbound_dispatched_total",
		Help: "Total inbound IPC messages dispatched to listeners",
	})

	// InboundMalformed counts inbound messages dropped as unparseable.
	InboundMalformed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workerlink_inbound_malformed_total",
		Help: "Total inbound IPC messages discarded as malformed",
	})
)

func init() {
	prometheus.MustRegister(
		WatchdogTicks,
		TelemetryReports,
		SendFailures,
		InboundDispatched,
		InboundMalformed,
	)
}
