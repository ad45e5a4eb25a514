package scrape

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mainichigo/kotoba/dbopen"
	"github.com/mainichigo/kotoba/words/store"
)

// Scraper fetches search pages and stores extracted entries.
type Scraper struct {
	store  *store.Store
	client *http.Client
	policy *bluemonday.Policy
	config Config
	logger *slog.Logger
}

// Result summarises one scrape run.
type Result struct {
	Pages    int
	Words    int
	Wrappers int
}

// New creates a Scraper writing to st.
func New(st *store.Store, cfg Config, logger *slog.Logger) *Scraper {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		store:  st,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout)},
		policy: sanitizePolicy(),
		config: cfg,
		logger: logger,
	}
}

// Run scrapes every configured keyword and page, sleeping Delay between
// page fetches. A failed page is logged and skipped; the run continues.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	var res Result
	first := true
	for _, keyword := range s.config.Keywords {
		for page := 1; page <= s.config.Pages; page++ {
			if !first {
				if err := sleepCtx(ctx, time.Duration(s.config.Delay)); err != nil {
					return &res, err
				}
			}
			first = false

			entries, err := s.scrapePage(ctx, keyword, page)
			if err != nil {
				s.logger.Warn("scrape page", "keyword", keyword, "page", page, "error", err)
				continue
			}
			res.Pages++

			for _, e := range entries {
				if err := s.storeEntry(ctx, e); err != nil {
					s.logger.Warn("store entry", "slug", e.Slug, "error", err)
					continue
				}
				res.Words++
				res.Wrappers += len(e.Wrappers)
			}
			s.logger.Info("scraped page", "keyword", keyword, "page", page, "entries", len(entries))
		}
	}
	return &res, nil
}

func (s *Scraper) scrapePage(ctx context.Context, keyword string, page int) ([]WordEntry, error) {
	u := s.config.BaseURL + url.PathEscape(keyword)
	if page > 1 {
		u += "?page=" + strconv.Itoa(page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape: new request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape: http %d", resp.StatusCode)
	}

	return Extract(resp.Body, s.policy)
}

// storeEntry writes a word and its wrappers in one transaction so a
// half-written word can never reach the daily pick.
func (s *Scraper) storeEntry(ctx context.Context, e WordEntry) error {
	return dbopen.RunTx(ctx, s.store.DB, func(tx *sql.Tx) error {
		id, err := s.store.UpsertWord(ctx, tx, e.Slug, e.Representation)
		if err != nil {
			return err
		}
		return s.store.ReplaceWrappers(ctx, tx, id, e.Wrappers)
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
