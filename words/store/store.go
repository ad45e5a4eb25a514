// Package store is the data access layer for the word database.
//
// The database is written offline by the scraper and read by the server;
// the store therefore has no migration machinery beyond the idempotent
// Schema and no caching of its own (SQLite's page cache is the cache).
package store

import "database/sql"

// Store wraps the word database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
