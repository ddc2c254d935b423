// Package agent is the public facade of workerlink. One agent exists
// per process; application code acquires it, registers listeners for
// inbound events, emits events toward peers or the supervisor, and
// closes it on shutdown. Telemetry reporting runs in the background
// for the agent's whole lifetime.
package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"workerlink/pkg/config"
	"workerlink/pkg/logging"
	"workerlink/pkg/relay"
	"workerlink/pkg/transport"
	"workerlink/pkg/watchdog"
)

const (
	// MinIntervalSeconds and MaxIntervalSeconds bound the telemetry
	// cadence; out-of-range values clamp rather than error.
	MinIntervalSeconds = 1
	MaxIntervalSeconds = 180
)

// Agent is the per-process telemetry and IPC client.
type Agent struct {
	intervalSeconds int

	relay     *relay.Relay
	transport transport.Transport
	watchdog  *watchdog.Watchdog
	logger    *logging.Logger

	aborted   atomic.Bool
	closeOnce sync.Once
}

var (
	instanceMu sync.Mutex
	instance   *Agent
)

// Acquire returns the process-wide agent, constructing it on first
// call. Later calls return the existing agent unchanged; a different
// intervalSeconds has no effect on an already-running instance.
func Acquire(intervalSeconds int) *Agent {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance
	}
	instance = newAgent(config.Load(), intervalSeconds)
	return instance
}

func newAgent(cfg config.Config, intervalSeconds int) *Agent {
	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), false)
	if cfg.ProcessID != "" {
		logger = logger.WithField("process", cfg.ProcessID)
	}

	a := &Agent{
		intervalSeconds: ClampInterval(intervalSeconds),
		relay:           relay.New(),
		logger:          logger,
	}
	a.transport = transport.New(cfg, a.relay, logger)
	a.watchdog = watchdog.New(
		time.Duration(a.intervalSeconds)*time.Second,
		cfg.ProcessID,
		watchdog.NewRuntimeSampler(),
		a.transport,
		logger,
	)

	a.transport.Start()
	a.watchdog.Start()
	return a
}

// ClampInterval bounds a telemetry interval to [MinIntervalSeconds,
// MaxIntervalSeconds].
func ClampInterval(seconds int) int {
	if seconds < MinIntervalSeconds {
		return MinIntervalSeconds
	}
	if seconds > MaxIntervalSeconds {
		return MaxIntervalSeconds
	}
	return seconds
}

// IntervalSeconds returns the clamped telemetry interval in use.
func (a *Agent) IntervalSeconds() int {
	return a.intervalSeconds
}

// On registers a listener for inbound events with the given name.
func (a *Agent) On(event string, fn relay.Listener) {
	a.relay.On(event, fn)
}

// Off removes a listener previously registered with On.
func (a *Agent) Off(event string, fn relay.Listener) {
	a.relay.Off(event, fn)
}

// Emit sends an event to a target process, or to the supervisor when
// target is "supervisor". Fire-and-forget: delivery failures are
// logged by the transport, never surfaced here. Emit after Close is a
// no-op.
func (a *Agent) Emit(target, event string, data interface{}) {
	if a.aborted.Load() {
		return
	}
	a.transport.Send(target, event, data)
}

// Close shuts the agent down: no further telemetry ticks, no further
// sends, all listeners released. Idempotent; a send already in flight
// may still complete. A closed agent keeps the singleton slot so the
// process stays in its shut-down state.
func (a *Agent) Close() {
	a.closeOnce.Do(func() {
		a.aborted.Store(true)
		a.watchdog.Stop()
		a.transport.Close()
		a.relay.Close()
	})
}

// resetForTest tears down the singleton so tests can build fresh
// agents. Not for production use.
func resetForTest() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		instance.Close()
		instance = nil
	}
}
