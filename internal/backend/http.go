package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tandem-dev/tandem/internal/logging"
)

// Error codes the backend may attach to a failed request.
const (
	// CodeTurnCancelled marks a send-turn failure caused by cancellation.
	CodeTurnCancelled = "turn_cancelled"
)

// apiError is the JSON error envelope used by the backend.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ackResponse is the JSON body of request acknowledgements.
type ackResponse struct {
	OK bool `json:"ok"`
}

// HTTPClient talks to an agent backend over HTTP, with stream events
// delivered on a server-sent-events endpoint. It reconnects the event stream
// with exponential backoff if the connection drops.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	events chan Event

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the backend at baseURL and starts the
// event stream reader.
func NewHTTPClient(baseURL string) *HTTPClient {
	ctx, cancel := context.WithCancel(context.Background())

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: send-turn blocks for the whole turn and the
		// SSE stream is long-lived. Hung turns are the user's to cancel.
		http:   &http.Client{},
		events: make(chan Event, 64),
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.readStream(ctx)

	return c
}

// Events returns the inbound event stream.
func (c *HTTPClient) Events() <-chan Event {
	return c.events
}

// SendTurn submits a turn and blocks until the backend settles it.
func (c *HTTPClient) SendTurn(ctx context.Context, req TurnRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	_, err = c.post(ctx, "/turn", body)
	return err
}

// CancelTurn requests cancellation of the in-flight turn.
func (c *HTTPClient) CancelTurn(ctx context.Context) error {
	_, err := c.post(ctx, "/turn/cancel", nil)
	return err
}

// ApprovePlan approves the pending plan.
func (c *HTTPClient) ApprovePlan(ctx context.Context) (bool, error) {
	ack, err := c.post(ctx, "/plan/approve", nil)
	if err != nil {
		return false, err
	}
	return ack.OK, nil
}

// RejectPlan rejects the pending plan with an optional reason.
func (c *HTTPClient) RejectPlan(ctx context.Context, reason string) (bool, error) {
	body, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		return false, err
	}
	ack, err := c.post(ctx, "/plan/reject", body)
	if err != nil {
		return false, err
	}
	return ack.OK, nil
}

// ResetUsage asks the backend to zero its usage counters.
func (c *HTTPClient) ResetUsage(ctx context.Context) error {
	_, err := c.post(ctx, "/usage/reset", nil)
	return err
}

// Close stops the event stream and closes the events channel.
func (c *HTTPClient) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		close(c.events)
	})
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte) (*ackResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Code == CodeTurnCancelled {
			return nil, ErrTurnCancelled
		}
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("backend %s: %s", path, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("backend %s: status %d", path, resp.StatusCode)
	}

	var ack ackResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ack); err != nil {
			return nil, fmt.Errorf("decode response %s: %w", path, err)
		}
	}
	return &ack, nil
}

// readStream keeps the SSE connection alive, decoding events onto c.events.
func (c *HTTPClient) readStream(ctx context.Context) {
	defer c.wg.Done()

	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // retry forever; the user closes the client

	for {
		err := c.streamOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logging.Warn().Err(err).Msg("event stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(policy.NextBackOff()):
		}
	}
}

// streamOnce connects to /events and decodes SSE frames until the
// connection drops.
func (c *HTTPClient) streamOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream: status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			// Event-type lines, heartbeats, and frame separators.
			continue
		}

		var wire WireEvent
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			logging.Warn().Err(err).Msg("malformed stream event, skipping")
			continue
		}

		ev, err := DecodeEvent(wire)
		if err != nil {
			logging.Warn().Err(err).Str("type", wire.Type).Msg("unknown stream event, skipping")
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}
