// Package transport moves (target, event, payload) triples between this
// process, its peers, and the supervisor.
//
// Two interchangeable strategies implement the peer path:
//
//   - mailbox: point-to-point through files in a shared directory; works
//     without a reachable supervisor but requires a shared filesystem.
//   - relay: supervisor-mediated; the supervisor re-delivers envelopes
//     to the target's own relay stream.
//
// The strategy is chosen at construction from configuration: a usable
// shared directory selects the mailbox strategy, otherwise a configured
// supervisor endpoint selects the relay strategy. Sends addressed to
// the supervisor always travel the secure channel regardless of
// strategy. All transport failures are logged and swallowed; delivery
// is best-effort by contract.
package transport

import (
	"golang.org/x/time/rate"

	"workerlink/pkg/config"
	"workerlink/pkg/logging"
	"workerlink/pkg/metrics"
	"workerlink/pkg/models"
	"workerlink/pkg/relay"
	"workerlink/pkg/supervisor"
	tlsutil "workerlink/pkg/tls"
)

// Transport delivers outbound messages and surfaces inbound ones as
// relay dispatches.
type Transport interface {
	// Send delivers one event to target. Best-effort: failures are
	// logged, never returned.
	Send(target, event string, data interface{})

	// Start begins inbound delivery. Best-effort: with no usable
	// inbound configuration it does nothing.
	Start()

	// Close stops inbound delivery and releases the channel. Idempotent.
	Close() error
}

// New builds the transport matching the configuration. With neither a
// shared directory nor a supervisor endpoint the returned transport
// still accepts sends and drops them silently.
func New(cfg config.Config, r *relay.Relay, logger *logging.Logger) Transport {
	b := base{
		identity: cfg.ProcessID,
		sup:      newSupervisorClient(cfg, logger),
		relay:    r,
		logger:   logger,
		errLimit: rate.NewLimiter(rate.Limit(1), 5),
	}

	if cfg.SharedDirUsable() {
		return newMailboxTransport(b, cfg.SharedDir)
	}
	return newRelayTransport(b)
}

// newSupervisorClient opens the secure channel described by the
// configuration, or returns nil when no endpoint is configured.
// Unloadable TLS material disables the channel rather than failing
// construction; the worker keeps running standalone.
func newSupervisorClient(cfg config.Config, logger *logging.Logger) *supervisor.Client {
	if !cfg.SupervisorConfigured() {
		return nil
	}
	if !cfg.TLSConfigured() {
		return supervisor.NewClient(cfg.SupervisorHost, cfg.SupervisorPort, cfg.SupervisorToken)
	}
	tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.ClientCertFile, cfg.ClientKeyFile, cfg.SupervisorCAFile)
	if err != nil {
		if logger != nil {
			logger.Warn("supervisor TLS config unusable, channel disabled", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil
	}
	return supervisor.NewClientWithTLS(cfg.SupervisorHost, cfg.SupervisorPort, cfg.SupervisorToken, tlsConfig)
}

// base carries what both strategies share: the supervisor channel and
// the local dispatch side.
type base struct {
	identity string
	sup      *supervisor.Client
	relay    *relay.Relay
	logger   *logging.Logger

	// errLimit caps failure logging so a dead supervisor does not
	// flood the worker's own logs.
	errLimit *rate.Limiter
}

// sendSupervisor routes a supervisor-addressed event over the secure
// channel. Telemetry uses the dedicated report call; everything else
// travels as a generic relay message. No endpoint means silent no-op.
func (b *base) sendSupervisor(event string, data interface{}) {
	if b.sup == nil {
		return
	}

	var err error
	if sample, ok := telemetryPayload(event, data); ok {
		err = b.sup.ReportTelemetry(sample)
	} else {
		err = b.sup.SendRelay(&models.IpcEnvelope{
			Target:    models.TargetSupervisor,
			Event:     event,
			EventData: data,
		})
	}
	if err != nil {
		b.logFailure("supervisor", err)
	}
}

func telemetryPayload(event string, data interface{}) (*models.TelemetrySample, bool) {
	if event != models.EventTelemetry {
		return nil, false
	}
	switch s := data.(type) {
	case *models.TelemetrySample:
		return s, true
	case models.TelemetrySample:
		return &s, true
	}
	return nil, false
}

func (b *base) logFailure(path string, err error) {
	metrics.SendFailures.WithLabelValues(path).Inc()
	if b.logger != nil && b.errLimit.Allow() {
		b.logger.Warn("send failed", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}

func (b *base) dispatch(env *models.IpcEnvelope) {
	b.relay.Emit(env.Event, env.EventData)
	metrics.InboundDispatched.Inc()
}
