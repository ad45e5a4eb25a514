// Command kotobacard fetches the day's word card from a kotoba server and
// renders it locally: the card state as a JSON line on stdout and,
// optionally, the lookup QR code as a PNG file.
//
// Usage:
//
//	kotobacard -url http://localhost:8091/api/words
//	kotobacard -offset 2 -qr card.png
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mainichigo/kotoba/display"
)

func main() {
	apiURL := flag.String("url", "http://localhost:8091/api/words", "words API endpoint")
	offset := flag.Int("offset", 0, "which decoded entry to render")
	height := flag.Float64("height", 0, "representation region height in px (0 = widget default)")
	qrPath := flag.String("qr", "", "write the lookup QR PNG to this file")
	timeout := flag.Duration("timeout", 10*time.Second, "fetch timeout")
	logLevel := flag.String("log-level", "info", "debug, info, warn, or error")
	flag.Parse()

	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *apiURL, *offset, *height, *qrPath, *timeout); err != nil {
		slog.Error("kotobacard", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, apiURL string, offset int, height float64, qrPath string, timeout time.Duration) error {
	client := display.NewClient(display.ClientConfig{Timeout: timeout})

	state, err := display.Run(ctx, client.Fetch, display.Config{
		URL:            apiURL,
		Offset:         offset,
		RegionHeightPx: height,
	})
	if err != nil {
		return err
	}
	slog.Debug("card ready", "entries", len(state.Entries), "offset", state.Offset)

	sinks := []display.Sink{display.NewStdoutSink(nil)}
	if qrPath != "" {
		sinks = append(sinks, display.NewQRFileSink(qrPath))
	}
	return display.Apply(state, sinks...)
}
