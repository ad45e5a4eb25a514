// The browser widget relies on the page's fetch with no timeout; the
// Client here is cancellable with an explicit deadline so a hung network
// surfaces as ErrTimeout instead of a display that silently never renders.

package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/mainichigo/kotoba/payload"
)

// ErrTimeout is returned when the request deadline elapses before the
// response arrives.
var ErrTimeout = errors.New("display: request timed out")

// ClientConfig configures the API client.
type ClientConfig struct {
	Timeout  time.Duration // per-request deadline. Default: 10s.
	MaxBytes int64         // max response body size. Default: 1MB.
	// UserAgent sent with requests.
	UserAgent string
}

func (c *ClientConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 1 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "kotoba-display/1.0"
	}
}

// Client fetches word envelopes over HTTP. Its Fetch method satisfies
// FetchFunc.
type Client struct {
	client *http.Client
	config ClientConfig
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	cfg.defaults()
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// Fetch retrieves and decodes the words envelope from url. Non-2xx
// responses and malformed bodies are errors; a deadline hit wraps
// ErrTimeout so callers can distinguish it from other network failures.
func (c *Client) Fetch(ctx context.Context, url string) (*payload.Envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("display: new request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("display: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("display: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("display: read body: %w", err)
	}

	var env payload.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("display: decode envelope: %w", err)
	}
	return &env, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
