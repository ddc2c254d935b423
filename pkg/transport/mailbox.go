package transport

import (
	"sync"
	"sync/atomic"

	"workerlink/pkg/mailbox"
	"workerlink/pkg/metrics"
	"workerlink/pkg/models"
)

// mailboxTransport delivers peer messages through per-process mailbox
// files in a shared directory.
type mailboxTransport struct {
	base
	sharedDir string

	own       *mailbox.Mailbox
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newMailboxTransport(b base, sharedDir string) *mailboxTransport {
	return &mailboxTransport{
		base:      b,
		sharedDir: sharedDir,
		done:      make(chan struct{}),
	}
}

func (t *mailboxTransport) Send(target, event string, data interface{}) {
	if t.closed.Load() {
		return
	}
	if target == models.TargetSupervisor {
		t.sendSupervisor(event, data)
		return
	}

	env := models.IpcEnvelope{Target: target, Event: event, EventData: data}
	raw, err := env.Encode()
	if err != nil {
		t.logFailure("mailbox", err)
		return
	}

	// Transient handle on the peer's mailbox: open, write, close.
	// The close is unconditional even when the write fails.
	peer := mailbox.Open(mailbox.Path(t.sharedDir, target))
	defer peer.Close(false)
	if err := peer.Write(string(raw)); err != nil {
		t.logFailure("mailbox", err)
	}
}

// Start begins polling this process's own mailbox. Without an identity
// there is no mailbox to own and inbound delivery stays off.
func (t *mailboxTransport) Start() {
	if t.identity == "" || t.closed.Load() {
		close(t.done)
		return
	}
	t.own = mailbox.Open(mailbox.Path(t.sharedDir, t.identity))
	go t.consume(t.own.Batches())
}

// consume dispatches inbound batches until the mailbox closes. One
// malformed message is dropped without disturbing the rest of its
// batch; the abort flag is checked before every batch and message.
func (t *mailboxTransport) consume(batches <-chan []string) {
	defer close(t.done)
	for batch := range batches {
		if t.closed.Load() {
			return
		}
		for _, raw := range batch {
			if t.closed.Load() {
				return
			}
			env, err := models.DecodeEnvelope([]byte(raw))
			if err != nil {
				metrics.InboundMalformed.Inc()
				continue
			}
			t.dispatch(env)
		}
	}
}

func (t *mailboxTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		if t.own != nil {
			t.own.Close(true)
			<-t.done
		}
		if t.sup != nil {
			t.sup.Close()
		}
	})
	return nil
}
