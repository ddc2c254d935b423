package transport

import (
	"sync"
	"sync/atomic"

	"workerlink/pkg/models"
)

// relayTransport delivers peer messages through the supervisor, which
// re-broadcasts each envelope on the target's relay stream.
type relayTransport struct {
	base
	closed    atomic.Bool
	closeOnce sync.Once
}

func newRelayTransport(b base) *relayTransport {
	return &relayTransport{base: b}
}

func (t *relayTransport) Send(target, event string, data interface{}) {
	if t.closed.Load() {
		return
	}
	if target == models.TargetSupervisor {
		t.sendSupervisor(event, data)
		return
	}
	if t.sup == nil {
		return
	}
	err := t.sup.SendRelay(&models.IpcEnvelope{
		Target:    target,
		Event:     event,
		EventData: data,
	})
	if err != nil {
		t.logFailure("supervisor", err)
	}
}

// Start subscribes to the supervisor's relay stream. The stream is a
// broadcast, so envelopes for other targets are discarded here.
func (t *relayTransport) Start() {
	if t.sup == nil || t.identity == "" || t.closed.Load() {
		return
	}
	t.sup.SubscribeRelay(func(env *models.IpcEnvelope) {
		if t.closed.Load() {
			return
		}
		if env.Target != t.identity {
			return
		}
		t.dispatch(env)
	})
}

func (t *relayTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if t.sup != nil {
			t.sup.Close()
		}
	})
	return nil
}
