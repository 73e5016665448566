// Package store persists small bits of user state (last playlist URL, last
// played item) in a local SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Keys used by the orchestrator and the play endpoint.
const (
	KeyPlaylistURL = "iptv_m3u_url"
	KeyLastPlayed  = "iptv_last_played"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Store is a string key/value store backed by SQLite. Safe for concurrent
// use; database/sql serializes access.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. Use ":memory:" for an
// ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any prior value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Clear removes key. Clearing an absent key is not an error.
func (s *Store) Clear(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: clear %s: %w", key, err)
	}
	return nil
}

// PlaylistURL returns the saved playlist URL, or "" when none is saved.
func (s *Store) PlaylistURL() string {
	v, err := s.Get(KeyPlaylistURL)
	if err != nil {
		return ""
	}
	return v
}

// SavePlaylistURL persists url as the last-used playlist URL.
func (s *Store) SavePlaylistURL(url string) error {
	return s.Set(KeyPlaylistURL, url)
}

// SaveLastPlayed persists the id of the most recently played item.
func (s *Store) SaveLastPlayed(itemID string) error {
	return s.Set(KeyLastPlayed, itemID)
}

// LastPlayed returns the id of the most recently played item, or "".
func (s *Store) LastPlayed() string {
	v, err := s.Get(KeyLastPlayed)
	if err != nil {
		return ""
	}
	return v
}
