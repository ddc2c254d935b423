package models

import (
	"encoding/json"
	"time"
)

// MemoryUsage is a snapshot of the process's memory counters in bytes.
// All fields are zero when the runtime offers no probe.
type MemoryUsage struct {
	External  uint64 `json:"external"`
	HeapTotal uint64 `json:"heapTotal"`
	HeapUsed  uint64 `json:"heapUsed"`
	RSS       uint64 `json:"rss"`
}

// TelemetrySample is a single health report sent to the supervisor.
type TelemetrySample struct {
	Sender string      `json:"sender"`
	Memory MemoryUsage `json:"memory"`
	Sent   string      `json:"sent"` // ISO-8601, UTC
	Cwd    string      `json:"cwd"`
}

// NewTelemetrySample builds a sample stamped with the current UTC time.
func NewTelemetrySample(sender string, mem MemoryUsage, cwd string) *TelemetrySample {
	return &TelemetrySample{
		Sender: sender,
		Memory: mem,
		Sent:   time.Now().UTC().Format(time.RFC3339),
		Cwd:    cwd,
	}
}

// IpcEnvelope carries one named event to a target process. EventData is
// any JSON-serializable value and may be absent.
type IpcEnvelope struct {
	Target    string      `json:"target"`
	Event     string      `json:"event"`
	EventData interface{} `json:"eventData,omitempty"`
}

// Encode serializes the envelope for the wire or a mailbox line.
func (e *IpcEnvelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a raw wire message into an envelope.
func DecodeEnvelope(raw []byte) (*IpcEnvelope, error) {
	var env IpcEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// TargetSupervisor addresses the supervising host process rather than a
// peer worker.
const TargetSupervisor = "supervisor"

// EventTelemetry is the reserved event name for watchdog health reports.
const EventTelemetry = "telemetry"
