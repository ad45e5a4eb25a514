// Command kotoba serves the daily Japanese vocabulary feed: one API route
// for the e-ink display, the browser widget, and an optional hourly TRMNL
// push. The word database is produced offline by cmd/jishoscrape.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/mainichigo/kotoba/dbopen"
	"github.com/mainichigo/kotoba/display"
	"github.com/mainichigo/kotoba/payload"
	"github.com/mainichigo/kotoba/trmnl"
	"github.com/mainichigo/kotoba/words"
	"github.com/mainichigo/kotoba/words/store"
)

//go:embed static
var staticFS embed.FS

func main() {
	port := env("PORT", "8091")
	dataDir := env("DATA_DIR", "data")
	dbPath := env("DB_PATH", filepath.Join(dataDir, "jisho_words.db"))
	historyPath := env("TRMNL_HISTORY", filepath.Join(dataDir, "trmnl.json"))
	trmnlKey := os.Getenv("TRMNL_PLUGIN_API_KEY")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema))
	if err != nil {
		slog.Error("open word database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := words.New(db, nil, logger)

	// Hourly TRMNL push, only when a plugin key is configured.
	if trmnlKey != "" {
		pub := trmnl.New(
			func(ctx context.Context) (*payload.Envelope, error) { return svc.DailyPayload(ctx, "") },
			trmnl.Config{APIKey: trmnlKey, HistoryPath: historyPath},
			logger,
		)
		go pub.Run(ctx)
	}

	// Optional MCP over stdio for agent access to the word store.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "kotoba",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// The display contract: today's words, compressed and wrapped.
	r.Get("/api/words", func(w http.ResponseWriter, r *http.Request) {
		env, err := svc.DailyPayload(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, env)
	})

	r.Get("/api/words/plain", func(w http.ResponseWriter, r *http.Request) {
		md, err := svc.DailyMarkdown(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, md)
	})

	// Server-side QR for clients that cannot run the widget script.
	r.Get("/api/qr", func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("text")
		if text == "" {
			writeJSON(w, 400, map[string]string{"error": "text parameter required"})
			return
		}
		png, err := display.QR(display.LookupURL("https://jisho.org/search/", text), 128)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	// Widget page and assets.
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("static/index.html")
		if err != nil {
			http.Error(w, "not found", 404)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
	r.Handle("/static/*", http.FileServerFS(staticFS))

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("kotoba starting", "port", port, "db", dbPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
