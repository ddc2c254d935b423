package supervisor

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"workerlink/pkg/models"
)

func clientFor(t *testing.T, server *httptest.Server, token string) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("failed to split host/port: %v", err)
	}
	return NewClient(host, port, token)
}

func TestReportTelemetry(t *testing.T) {
	var (
		mu       sync.Mutex
		got      models.TelemetrySample
		auth     string
		reqID    string
		received int
	)

	router := mux.NewRouter()
	router.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		received++
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode sample: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")

	server := httptest.NewServer(router)
	defer server.Close()

	client := clientFor(t, server, "secret-token")
	defer client.Close()

	sample := models.NewTelemetrySample("w1", models.MemoryUsage{RSS: 1024}, "/work")
	if err := client.ReportTelemetry(sample); err != nil {
		t.Fatalf("ReportTelemetry failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received != 1 {
		t.Fatalf("expected exactly 1 request, got %d", received)
	}
	if auth != "Bearer secret-token" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if reqID == "" {
		t.Error("expected X-Request-ID header")
	}
	if got.Sender != "w1" || got.Memory.RSS != 1024 || got.Cwd != "/work" {
		t.Errorf("sample did not survive the wire: %+v", got)
	}
}

func TestSendRelay(t *testing.T) {
	var (
		mu  sync.Mutex
		got models.IpcEnvelope
	)

	router := mux.NewRouter()
	router.HandleFunc("/ipc/relay", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode envelope: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}).Methods("POST")

	server := httptest.NewServer(router)
	defer server.Close()

	client := clientFor(t, server, "")
	defer client.Close()

	env := &models.IpcEnvelope{
		Target:    "main",
		Event:     "alert",
		EventData: map[string]interface{}{"level": "high"},
	}
	if err := client.SendRelay(env); err != nil {
		t.Fatalf("SendRelay failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Target != "main" || got.Event != "alert" {
		t.Errorf("envelope did not survive the wire: %+v", got)
	}
	data, ok := got.EventData.(map[string]interface{})
	if !ok || data["level"] != "high" {
		t.Errorf("event data did not survive the wire: %v", got.EventData)
	}
}

func TestPostErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := clientFor(t, server, "wrong")
	defer client.Close()

	if err := client.ReportTelemetry(models.NewTelemetrySample("w1", models.MemoryUsage{}, "/")); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestSubscribeRelay(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/ipc/stream", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}
		enc := json.NewEncoder(w)
		enc.Encode(&models.IpcEnvelope{Target: "w1", Event: "ping"})
		enc.Encode(&models.IpcEnvelope{Target: "w2", Event: "pong"})
		flusher.Flush()
		// Keep the connection open until the client cancels.
		<-r.Context().Done()
	}).Methods("GET")

	server := httptest.NewServer(router)
	defer server.Close()

	client := clientFor(t, server, "")

	var mu sync.Mutex
	var seen []string
	client.SubscribeRelay(func(env *models.IpcEnvelope) {
		mu.Lock()
		seen = append(seen, env.Target+"/"+env.Event)
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out; saw %d envelopes", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	if seen[0] != "w1/ping" || seen[1] != "w2/pong" {
		t.Errorf("unexpected stream contents: %v", seen)
	}
	mu.Unlock()

	// Close must terminate the stream goroutine and be idempotent.
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close returned error: %v", err)
	}
}
