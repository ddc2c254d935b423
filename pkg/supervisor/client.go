// Package supervisor implements the secure HTTP channel between a
// worker process and its supervising host.
package supervisor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"workerlink/pkg/models"
)

const (
	requestTimeout   = 30 * time.Second
	streamRetryDelay = 5 * time.Second
)

// RelayHandler consumes one envelope received from the supervisor's
// relay stream.
type RelayHandler func(envelope *models.IpcEnvelope)

// Client manages communication with the supervisor.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// streamClient has no overall timeout; the relay stream is
	// long-lived and cancelled through ctx instead.
	streamClient *http.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewClient creates a client for the supervisor at host:port.
func NewClient(host, port, token string) *Client {
	return newClient(fmt.Sprintf("http://%s:%s", host, port), token, nil)
}

// NewClientWithTLS creates a client using HTTPS with the given TLS
// configuration.
func NewClientWithTLS(host, port, token string, tlsConfig *tls.Config) *Client {
	return newClient(fmt.Sprintf("https://%s:%s", host, port), token, tlsConfig)
}

func newClient(baseURL, token string, tlsConfig *tls.Config) *Client {
	var transport http.RoundTripper
	if tlsConfig != nil {
		transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) post(path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := c.newRequest(c.ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(body))
	}
	return nil
}

// ReportTelemetry posts one telemetry sample to the supervisor.
func (c *Client) ReportTelemetry(sample *models.TelemetrySample) error {
	return c.post("/telemetry", sample)
}

// SendRelay forwards an envelope to the supervisor for re-delivery to
// the envelope's target.
func (c *Client) SendRelay(envelope *models.IpcEnvelope) error {
	return c.post("/ipc/relay", envelope)
}

// SubscribeRelay opens the relay stream and invokes handler for every
// envelope received, until Close. The stream is newline-delimited
// JSON; a dropped connection is reopened after a short delay. Only one
// subscription per client is supported.
func (c *Client) SubscribeRelay(handler RelayHandler) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if c.ctx.Err() != nil {
				return
			}
			c.readStream(handler)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(streamRetryDelay):
			}
		}
	}()
}

// readStream consumes one connection's worth of relay envelopes.
// Returns on any error; the caller decides whether to reconnect.
func (c *Client) readStream(handler RelayHandler) {
	req, err := c.newRequest(c.ctx, http.MethodGet, "/ipc/stream", nil)
	if err != nil {
		return
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return
	}

	dec := json.NewDecoder(resp.Body)
	for {
		var env models.IpcEnvelope
		if err := dec.Decode(&env); err != nil {
			return
		}
		if c.ctx.Err() != nil {
			return
		}
		handler(&env)
	}
}

// Close cancels any open relay stream and releases the client.
// Idempotent; in-flight posts may still complete.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.cancel()
	})
	c.wg.Wait()
	return nil
}
