package store

// Schema is the complete word database schema. All statements are
// idempotent; timestamps are milliseconds since epoch.
const Schema = `
-- One row per dictionary word; representation_html carries the kanji +
-- furigana markup exactly as scraped.
CREATE TABLE IF NOT EXISTS words (
    id                  INTEGER PRIMARY KEY,
    slug                TEXT NOT NULL UNIQUE,
    representation_html TEXT NOT NULL,
    created_at          INTEGER NOT NULL
);

-- Meaning wrappers: one block of meaning + example-sentence markup.
-- A word keeps every wrapper that contained a sentence; the daily pick
-- selects one per word.
CREATE TABLE IF NOT EXISTS meaning_wrappers (
    id           INTEGER PRIMARY KEY,
    word_id      INTEGER NOT NULL REFERENCES words(id) ON DELETE CASCADE,
    wrapper_html TEXT NOT NULL,
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wrappers_word ON meaning_wrappers(word_id);
`
