// Package relay implements the local publish/subscribe registry that
// maps event names to listener sets. Dispatch is synchronous and in
// listener registration order.
package relay

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Listener consumes the payload of one dispatched event.
type Listener func(data interface{})

// Relay is an in-process event registry. Safe for concurrent use.
type Relay struct {
	mu        sync.Mutex
	listeners map[string][]Listener
	closed    atomic.Bool
}

// New creates an empty relay.
func New() *Relay {
	return &Relay{
		listeners: make(map[string][]Listener),
	}
}

// On registers a listener for an event name. Registering after Close is
// benign: the listener is stored but will never fire.
func (r *Relay) On(event string, fn Listener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[string][]Listener)
	}
	r.listeners[event] = append(r.listeners[event], fn)
}

// Off removes a previously registered listener. Listener identity is the
// function pointer, so the same func value passed to On must be passed
// to Off. Unknown listeners are ignored.
func (r *Relay) Off(event string, fn Listener) {
	if fn == nil {
		return
	}
	target := reflect.ValueOf(fn).Pointer()

	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.listeners[event]
	for i, l := range subs {
		if reflect.ValueOf(l).Pointer() == target {
			r.listeners[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.listeners[event]) == 0 {
		delete(r.listeners, event)
	}
}

// Emit dispatches data to every listener of the event, in registration
// order. Emit after Close is a no-op.
func (r *Relay) Emit(event string, data interface{}) {
	if r.closed.Load() {
		return
	}
	r.mu.Lock()
	subs := make([]Listener, len(r.listeners[event]))
	copy(subs, r.listeners[event])
	r.mu.Unlock()

	for _, fn := range subs {
		fn(data)
	}
}

// ListenerCount returns the number of listeners for an event.
func (r *Relay) ListenerCount(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[event])
}

// Close releases all listeners. Idempotent.
func (r *Relay) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.mu.Lock()
	r.listeners = nil
	r.mu.Unlock()
	return nil
}
