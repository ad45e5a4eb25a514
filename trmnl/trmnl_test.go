package trmnl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mainichigo/kotoba/payload"
)

func staticPayload(t *testing.T) PayloadFunc {
	t.Helper()
	b64, err := payload.Compress(`["<div class=\"text\">犬</div>"]`)
	if err != nil {
		t.Fatal(err)
	}
	return func(context.Context) (*payload.Envelope, error) {
		return payload.NewEnvelope(b64), nil
	}
}

func newTestPublisher(t *testing.T, srvURL string) *Publisher {
	t.Helper()
	return New(staticPayload(t), Config{
		APIKey:      "test-key",
		BaseURL:     srvURL + "/api/custom_plugins/",
		HistoryPath: filepath.Join(t.TempDir(), "trmnl.json"),
	}, nil)
}

func TestPublishOnce_DeliversAndRecords(t *testing.T) {
	// WHAT: A successful push POSTs the envelope and records the date.
	var posts atomic.Int64
	var gotPath string
	var gotBody payload.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	p := newTestPublisher(t, srv.URL)
	if err := p.PublishOnce(context.Background()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if posts.Load() != 1 {
		t.Fatalf("posts = %d, want 1", posts.Load())
	}
	if gotPath != "/api/custom_plugins/test-key" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotBody.MergeVariables.Compressed == "" {
		t.Error("envelope body missing compressed field")
	}

	// Second call the same day is a no-op.
	if err := p.PublishOnce(context.Background()); err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if posts.Load() != 1 {
		t.Fatalf("posts after dedup = %d, want 1", posts.Load())
	}
}

func TestPublishOnce_NewDayPublishesAgain(t *testing.T) {
	// WHAT: The per-day dedup resets when the date changes.
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
	}))
	defer srv.Close()

	p := newTestPublisher(t, srv.URL)
	day := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	p.SetNow(func() time.Time { return day })

	if err := p.PublishOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.SetNow(func() time.Time { return day.Add(24 * time.Hour) })
	if err := p.PublishOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if posts.Load() != 2 {
		t.Fatalf("posts = %d, want 2", posts.Load())
	}
}

func TestPublishOnce_FailureLeavesHistory(t *testing.T) {
	// WHAT: A non-200 push keeps the history untouched so the next tick
	// retries.
	var posts atomic.Int64
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	p := newTestPublisher(t, srv.URL)
	if err := p.PublishOnce(context.Background()); err == nil {
		t.Fatal("expected error for 500")
	}

	fail.Store(false)
	if err := p.PublishOnce(context.Background()); err != nil {
		t.Fatalf("retry publish: %v", err)
	}
	if posts.Load() != 2 {
		t.Fatalf("posts = %d, want 2", posts.Load())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := newTestPublisher(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
