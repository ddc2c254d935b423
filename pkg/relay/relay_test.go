package relay

import (
	"testing"
)

func TestEmitDispatchesInRegistrationOrder(t *testing.T) {
	r := New()
	var order []string

	r.On("ev", func(data interface{}) { order = append(order, "first") })
	r.On("ev", func(data interface{}) { order = append(order, "second") })
	r.Emit("ev", nil)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected [first second], got %v", order)
	}
}

func TestEmitPassesPayload(t *testing.T) {
	r := New()
	var got interface{}
	r.On("ev", func(data interface{}) { got = data })

	r.Emit("ev", map[string]interface{}{"n": 42})

	m, ok := got.(map[string]interface{})
	if !ok || m["n"] != 42 {
		t.Errorf("payload did not arrive intact: %v", got)
	}
}

func TestOffRemovesListener(t *testing.T) {
	r := New()
	calls := 0
	fn := func(data interface{}) { calls++ }

	r.On("ev", fn)
	r.Emit("ev", nil)
	r.Off("ev", fn)
	r.Emit("ev", nil)

	if calls != 1 {
		t.Errorf("expected 1 call after Off, got %d", calls)
	}
	if r.ListenerCount("ev") != 0 {
		t.Errorf("expected 0 listeners, got %d", r.ListenerCount("ev"))
	}
}

func TestOffUnknownListenerIsBenign(t *testing.T) {
	r := New()
	r.On("ev", func(data interface{}) {})
	r.Off("ev", func(data interface{}) {})
	r.Off("other", func(data interface{}) {})

	if r.ListenerCount("ev") != 1 {
		t.Errorf("expected registered listener to survive, got %d", r.ListenerCount("ev"))
	}
}

func TestCloseReleasesListeners(t *testing.T) {
	r := New()
	calls := 0
	r.On("ev", func(data interface{}) { calls++ })

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	r.Emit("ev", nil)
	if calls != 0 {
		t.Errorf("listener fired after Close")
	}

	// Second close must not panic or error.
	if err := r.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}

func TestOnAfterCloseIsBenign(t *testing.T) {
	r := New()
	r.Close()

	calls := 0
	r.On("ev", func(data interface{}) { calls++ })
	r.Emit("ev", nil)

	if calls != 0 {
		t.Errorf("listener registered after Close must never fire")
	}
}
