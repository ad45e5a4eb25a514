// Package trmnl pushes the day's word payload to the TRMNL plugin API.
//
// The push runs on an hourly ticker but is idempotent per day: a JSON
// history file records the last date successfully delivered, and a tick on
// an already-delivered day is a no-op. A failed push leaves the history
// untouched so the next tick retries.
package trmnl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mainichigo/kotoba/payload"
)

// PayloadFunc produces the envelope to deliver.
type PayloadFunc func(ctx context.Context) (*payload.Envelope, error)

// Config configures the publisher.
type Config struct {
	// APIKey is the TRMNL plugin key. Required.
	APIKey string
	// BaseURL is the plugin endpoint prefix the key is appended to.
	BaseURL string
	// HistoryPath is the JSON file recording the last delivered date.
	HistoryPath string
	// Interval between delivery attempts. Default: 1 hour.
	Interval time.Duration
	// Timeout for the push request. Default: 30s.
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://usetrmnl.com/api/custom_plugins/"
	}
	if c.HistoryPath == "" {
		c.HistoryPath = "data/trmnl.json"
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

type history struct {
	LastDate string `json:"last_date"`
}

// Publisher delivers daily payloads.
type Publisher struct {
	payload PayloadFunc
	client  *http.Client
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Publisher.
func New(fn PayloadFunc, cfg Config, logger *slog.Logger) *Publisher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		payload: fn,
		client:  &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run attempts delivery on a ticker. Blocks until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Attempt once immediately on start.
	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Publisher) tick(ctx context.Context) {
	if err := p.PublishOnce(ctx); err != nil {
		p.logger.Error("trmnl publish", "error", err)
	}
}

// PublishOnce delivers today's payload unless it was already delivered.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	today := p.now().Format("2006-01-02")

	if h, err := p.readHistory(); err == nil && h.LastDate == today {
		p.logger.Debug("trmnl publish: already delivered", "date", today)
		return nil
	}

	env, err := p.payload(ctx)
	if err != nil {
		return fmt.Errorf("trmnl: build payload: %w", err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("trmnl: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+p.config.APIKey, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("trmnl: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("trmnl: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("trmnl: http %d: %s", resp.StatusCode, msg)
	}

	if err := p.writeHistory(history{LastDate: today}); err != nil {
		return err
	}
	p.logger.Info("trmnl publish: delivered", "date", today)
	return nil
}

func (p *Publisher) readHistory() (*history, error) {
	data, err := os.ReadFile(p.config.HistoryPath)
	if err != nil {
		return nil, err
	}
	var h history
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("trmnl: invalid history file: %w", err)
	}
	return &h, nil
}

func (p *Publisher) writeHistory(h history) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("trmnl: marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.config.HistoryPath), 0o755); err != nil {
		return fmt.Errorf("trmnl: mkdir history: %w", err)
	}
	if err := os.WriteFile(p.config.HistoryPath, data, 0o644); err != nil {
		return fmt.Errorf("trmnl: write history: %w", err)
	}
	return nil
}

// SetNow overrides the clock. Test hook.
func (p *Publisher) SetNow(fn func() time.Time) { p.now = fn }
