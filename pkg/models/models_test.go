package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestIpcEnvelopeRoundTrip(t *testing.T) {
	env := &IpcEnvelope{
		Target:    "worker-2",
		Event:     "ping",
		EventData: map[string]interface{}{"n": float64(42)},
	}

	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}

	if !reflect.DeepEqual(env, decoded) {
		t.Errorf("round trip mismatch: sent %+v, got %+v", env, decoded)
	}
}

func TestIpcEnvelopeAbsentData(t *testing.T) {
	env := &IpcEnvelope{Target: "w2", Event: "ping"}
	raw, err := env.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if strings.Contains(string(raw), "eventData") {
		t.Errorf("absent eventData should be omitted from wire form, got %s", raw)
	}

	decoded, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeEnvelope failed: %v", err)
	}
	if decoded.EventData != nil {
		t.Errorf("expected nil EventData, got %v", decoded.EventData)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("not json at all")); err == nil {
		t.Error("expected error for malformed message")
	}
}

func TestNewTelemetrySample(t *testing.T) {
	mem := MemoryUsage{External: 1, HeapTotal: 2, HeapUsed: 3, RSS: 4}
	sample := NewTelemetrySample("w1", mem, "/tmp/work")

	if sample.Sender != "w1" {
		t.Errorf("expected sender w1, got %s", sample.Sender)
	}
	if sample.Memory != mem {
		t.Errorf("memory mismatch: %+v", sample.Memory)
	}
	if sample.Cwd != "/tmp/work" {
		t.Errorf("expected cwd /tmp/work, got %s", sample.Cwd)
	}

	sent, err := time.Parse(time.RFC3339, sample.Sent)
	if err != nil {
		t.Fatalf("Sent is not RFC3339: %v", err)
	}
	if sent.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", sent.Location())
	}
}

func TestTelemetrySampleWireFormat(t *testing.T) {
	sample := NewTelemetrySample("w1", MemoryUsage{RSS: 9}, "/work")
	raw, err := json.Marshal(sample)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var wire map[string]interface{}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"sender", "memory", "sent", "cwd"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("wire form missing key %q: %s", key, raw)
		}
	}
	memWire, ok := wire["memory"].(map[string]interface{})
	if !ok {
		t.Fatalf("memory is not an object: %s", raw)
	}
	for _, key := range []string{"external", "heapTotal", "heapUsed", "rss"} {
		if _, ok := memWire[key]; !ok {
			t.Errorf("memory wire form missing key %q: %s", key, raw)
		}
	}
}
