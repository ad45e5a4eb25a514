// Command jishoscrape populates the word database from jisho.org search
// pages. It runs offline; the server only ever reads the database.
//
// Usage:
//
//	jishoscrape -config scrape.yaml
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/mainichigo/kotoba/dbopen"
	"github.com/mainichigo/kotoba/scrape"
	"github.com/mainichigo/kotoba/words/store"
)

func main() {
	configPath := flag.String("config", "scrape.yaml", "path to the scraper YAML config")
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg, err := scrape.LoadFile(*configPath)
	if err != nil {
		slog.Error("load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if len(cfg.Keywords) == 0 {
		slog.Error("config has no keywords to scrape")
		os.Exit(1)
	}

	db, err := dbopen.Open(cfg.Database, dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema))
	if err != nil {
		slog.Error("open word database", "path", cfg.Database, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := scrape.New(store.NewStore(db), *cfg, logger)
	res, err := s.Run(ctx)
	if err != nil {
		slog.Error("scrape aborted", "error", err, "pages", res.Pages, "words", res.Words)
		os.Exit(1)
	}
	slog.Info("scrape complete", "pages", res.Pages, "words", res.Words, "wrappers", res.Wrappers)
}
