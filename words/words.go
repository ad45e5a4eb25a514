// Package words serves the daily vocabulary selection.
//
// The selection is deterministic per calendar date: the date string seeds
// a stable shuffle over the stored words, so every fetch during a day sees
// the same four entries and the display can refetch freely. Words rotate
// server-side; clients always render offset 0.
package words

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mainichigo/kotoba/payload"
	"github.com/mainichigo/kotoba/words/store"
)

// Entry is one daily word: representation markup plus one meaning wrapper.
type Entry struct {
	WordID         int64  `json:"word_id"`
	Representation string `json:"representation"`
	Wrapper        string `json:"meaning_wrapper"`
}

// Fragment is the combined HTML the display renders for an entry.
func (e Entry) Fragment() string {
	return e.Representation + e.Wrapper
}

// Service provides daily word selection and payload generation.
type Service struct {
	store  *store.Store
	config Config
	logger *slog.Logger
	md     *markdownConverter
}

// New creates a Service on an opened word database.
func New(db *sql.DB, cfg *Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store.NewStore(db),
		config: *cfg,
		logger: logger,
		md:     newMarkdownConverter(),
	}
}

// DateSeed derives the deterministic selection seed from a YYYY-MM-DD date
// string: the low 31 bits of sha256(date), always non-negative.
func DateSeed(date string) int64 {
	sum := sha256.Sum256([]byte(date))
	return int64(binary.BigEndian.Uint32(sum[28:32]) & 0x7FFFFFFF)
}

// Today returns the current date in the form DateSeed expects.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// DailyEntries returns the selection for date (today when empty).
func (s *Service) DailyEntries(ctx context.Context, date string) ([]Entry, error) {
	if date == "" {
		date = Today()
	}
	seed := DateSeed(date)
	picked, err := s.store.DailyPick(ctx, seed, s.config.WordsPerDay)
	if err != nil {
		return nil, err
	}
	if len(picked) == 0 {
		return nil, ErrNoWords
	}
	entries := make([]Entry, len(picked))
	for i, p := range picked {
		entries[i] = Entry{WordID: p.WordID, Representation: p.Representation, Wrapper: p.Wrapper}
	}
	s.logger.Debug("daily selection", "date", date, "seed", seed, "words", len(entries))
	return entries, nil
}

// DailyPayload builds the compressed envelope for date: the entries'
// combined fragments as a JSON array, deflated and base64-wrapped.
func (s *Service) DailyPayload(ctx context.Context, date string) (*payload.Envelope, error) {
	entries, err := s.DailyEntries(ctx, date)
	if err != nil {
		return nil, err
	}
	fragments := make([]string, len(entries))
	for i, e := range entries {
		fragments[i] = e.Fragment()
	}
	raw, err := json.Marshal(fragments)
	if err != nil {
		return nil, fmt.Errorf("words: marshal fragments: %w", err)
	}
	compressed, err := payload.Compress(string(raw))
	if err != nil {
		return nil, err
	}
	return payload.NewEnvelope(compressed), nil
}

// DailyMarkdown renders the day's entries as markdown for terminal
// consumption.
func (s *Service) DailyMarkdown(ctx context.Context, date string) (string, error) {
	entries, err := s.DailyEntries(ctx, date)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, e := range entries {
		md, err := s.md.Convert(e.Fragment())
		if err != nil {
			return "", fmt.Errorf("words: markdown entry %d: %w", i, err)
		}
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		b.WriteString(strings.TrimSpace(md))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// WordBySlug returns one stored word with all of its meaning wrappers.
func (s *Service) WordBySlug(ctx context.Context, slug string) (*store.Word, error) {
	w, err := s.store.WordBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return w, nil
}

// Search returns stored words whose slug contains q.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]store.WordRow, error) {
	return s.store.SearchWords(ctx, q, limit)
}

// Stats returns store counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Count(ctx)
}
