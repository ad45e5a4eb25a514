package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one daily pick: a word's representation plus a single meaning
// wrapper.
type Entry struct {
	WordID         int64
	Representation string
	Wrapper        string
}

// WordRow is a stored word without its wrappers.
type WordRow struct {
	ID             int64
	Slug           string
	Representation string
	WrapperCount   int64
}

// Word is a stored word with all of its wrappers.
type Word struct {
	ID             int64
	Slug           string
	Representation string
	Wrappers       []string
}

// Stats summarises the store contents.
type Stats struct {
	Words    int64
	Wrappers int64
}

// UpsertWord inserts a word or refreshes its representation markup if the
// slug already exists. Returns the word's rowid.
func (s *Store) UpsertWord(ctx context.Context, tx *sql.Tx, slug, representationHTML string) (int64, error) {
	now := time.Now().UnixMilli()
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO words (slug, representation_html, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET representation_html = excluded.representation_html
		RETURNING id`,
		slug, representationHTML, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: upsert word %q: %w", slug, err)
	}
	return id, nil
}

// ReplaceWrappers deletes a word's wrappers and inserts the given set.
// Re-scraping a word refreshes its wrappers wholesale rather than diffing.
func (s *Store) ReplaceWrappers(ctx context.Context, tx *sql.Tx, wordID int64, wrappers []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM meaning_wrappers WHERE word_id = ?`, wordID); err != nil {
		return fmt.Errorf("store: clear wrappers: %w", err)
	}
	now := time.Now().UnixMilli()
	for _, w := range wrappers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO meaning_wrappers (word_id, wrapper_html, created_at)
			VALUES (?, ?, ?)`, wordID, w, now); err != nil {
			return fmt.Errorf("store: insert wrapper: %w", err)
		}
	}
	return nil
}

// DailyPick returns up to n entries chosen deterministically by seed:
// words are ordered by the string form of word_id*seed (a cheap stable
// shuffle that SQLite evaluates without extensions), and each picked word
// contributes the wrapper that sorts first under the same scheme. Equal
// seeds always produce equal picks.
func (s *Store) DailyPick(ctx context.Context, seed int64, n int) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		WITH daily_words AS (
		    SELECT DISTINCT word_id
		    FROM meaning_wrappers
		    ORDER BY SUBSTR(word_id * ?, 1, 15)
		    LIMIT ?
		),
		ranked AS (
		    SELECT
		        mw.word_id,
		        w.representation_html,
		        mw.wrapper_html,
		        ROW_NUMBER() OVER (PARTITION BY mw.word_id ORDER BY SUBSTR(mw.id * ?, 1, 15)) AS rn
		    FROM meaning_wrappers mw
		    JOIN words w ON w.id = mw.word_id
		    JOIN daily_words dw ON dw.word_id = mw.word_id
		)
		SELECT word_id, representation_html, wrapper_html
		FROM ranked
		WHERE rn = 1
		ORDER BY word_id`,
		seed, n, seed)
	if err != nil {
		return nil, fmt.Errorf("store: daily pick: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.WordID, &e.Representation, &e.Wrapper); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WordBySlug returns a word with all of its wrappers, or nil when the slug
// is not stored.
func (s *Store) WordBySlug(ctx context.Context, slug string) (*Word, error) {
	var w Word
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, slug, representation_html FROM words WHERE slug = ?`, slug).
		Scan(&w.ID, &w.Slug, &w.Representation)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: word by slug: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT wrapper_html FROM meaning_wrappers WHERE word_id = ? ORDER BY id`, w.ID)
	if err != nil {
		return nil, fmt.Errorf("store: word wrappers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wrapper string
		if err := rows.Scan(&wrapper); err != nil {
			return nil, fmt.Errorf("store: scan wrapper: %w", err)
		}
		w.Wrappers = append(w.Wrappers, wrapper)
	}
	return &w, rows.Err()
}

// SearchWords returns words whose slug contains q, newest first.
func (s *Store) SearchWords(ctx context.Context, q string, limit int) ([]WordRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT w.id, w.slug, w.representation_html,
		       (SELECT COUNT(*) FROM meaning_wrappers mw WHERE mw.word_id = w.id)
		FROM words w
		WHERE w.slug LIKE '%' || ? || '%'
		ORDER BY w.id DESC
		LIMIT ?`, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search words: %w", err)
	}
	defer rows.Close()

	var out []WordRow
	for rows.Next() {
		var w WordRow
		if err := rows.Scan(&w.ID, &w.Slug, &w.Representation, &w.WrapperCount); err != nil {
			return nil, fmt.Errorf("store: scan word: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Count returns store statistics.
func (s *Store) Count(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&st.Words); err != nil {
		return nil, fmt.Errorf("store: count words: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM meaning_wrappers`).Scan(&st.Wrappers); err != nil {
		return nil, fmt.Errorf("store: count wrappers: %w", err)
	}
	return &st, nil
}
