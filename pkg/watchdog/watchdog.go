// Package watchdog implements the self-rescheduling telemetry timer.
// Each tick samples process memory and reports it toward the
// supervisor; ticks are strictly sequential because the next timer is
// armed only after the previous tick completes.
package watchdog

import (
	"os"
	"sync"
	"time"

	"workerlink/pkg/logging"
	"workerlink/pkg/metrics"
	"workerlink/pkg/models"
)

// Sender is the outbound slice of the transport the watchdog needs.
type Sender interface {
	Send(target, event string, data interface{})
}

// Watchdog periodically reports process telemetry. Timers run on Go's
// runtime timer heap and never keep the process alive on their own.
type Watchdog struct {
	interval time.Duration
	identity string
	sampler  MemorySampler
	sender   Sender
	logger   *logging.Logger

	mu      sync.Mutex
	timer   *time.Timer
	aborted bool
}

// New creates a watchdog reporting every interval. It does not start
// ticking until Start.
func New(interval time.Duration, identity string, sampler MemorySampler, sender Sender, logger *logging.Logger) *Watchdog {
	if sampler == nil {
		sampler = NewZeroSampler()
	}
	return &Watchdog{
		interval: interval,
		identity: identity,
		sampler:  sampler,
		sender:   sender,
		logger:   logger,
	}
}

// Start arms the first tick one interval from now.
func (w *Watchdog) Start() {
	w.reschedule()
}

// tick samples memory and reports it. Telemetry is best-effort: every
// failure path degrades to "no report this cycle", and the next tick
// is armed regardless of the outcome.
func (w *Watchdog) tick() {
	defer w.reschedule()
	defer func() {
		if r := recover(); r != nil && w.logger != nil {
			w.logger.Debug("telemetry tick recovered", map[string]interface{}{"panic": r})
		}
	}()

	metrics.WatchdogTicks.Inc()

	// No identity means the process was not launched under
	// supervision; the tick is a silent no-op.
	if w.identity == "" {
		return
	}

	cwd, _ := os.Getwd()
	sample := models.NewTelemetrySample(w.identity, w.sampler.Sample(), cwd)
	w.sender.Send(models.TargetSupervisor, models.EventTelemetry, sample)
	metrics.TelemetryReports.Inc()
}

// reschedule arms the next tick, clearing any pending timer first so
// at most one tick is ever pending. No-op once stopped.
func (w *Watchdog) reschedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.aborted {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, w.tick)
}

// Stop cancels any pending tick. Idempotent and monotonic: a stopped
// watchdog never schedules again, though a tick already in flight may
// finish.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aborted = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
