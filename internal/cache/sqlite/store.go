// Package sqlite provides the durable SQLite-backed response cache.
// The database lives inside the configured cache directory, so cached
// origin responses survive process restarts and repeated local runs
// replay deterministically.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// Store is the SQLite implementation of cache.Store.
type Store struct {
	db *sql.DB
}

var _ cache.Store = (*Store)(nil)

// Open creates (if necessary) the cache directory and opens the cache
// database inside it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return New(filepath.Join(dir, "cache.db"))
}

// New opens a cache database at the given path. Tests use the
// "file:...?mode=memory" form.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	stmt := `CREATE TABLE IF NOT EXISTS entries (
		fingerprint TEXT PRIMARY KEY,
		status INTEGER NOT NULL,
		status_description TEXT NOT NULL,
		headers TEXT NOT NULL,
		body BLOB,
		stored_at TIMESTAMP NOT NULL
	)`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute schema statement: %w", err)
	}
	return nil
}

// Lookup returns the cached entry for a fingerprint, or (nil, nil) on a
// miss. A row that fails to decode is reported as an error; the caller
// treats it as a miss.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (*cache.Entry, error) {
	query := `SELECT status, status_description, headers, body, stored_at
	          FROM entries WHERE fingerprint = ?`

	var (
		status      int
		description string
		headersJSON string
		body        []byte
		storedAt    time.Time
	)
	err := s.db.QueryRowContext(ctx, query, fingerprint).
		Scan(&status, &description, &headersJSON, &body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	headers := http.Header{}
	if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
		return nil, fmt.Errorf("failed to decode cached headers: %w", err)
	}

	return &cache.Entry{
		Fingerprint: fingerprint,
		Response: &event.Response{
			Status:            status,
			StatusDescription: description,
			Headers:           headers,
			Body:              body,
		},
		StoredAt: storedAt,
	}, nil
}

// Store inserts or overwrites the entry for a fingerprint. Concurrent
// stores to the same fingerprint are last-write-wins.
func (s *Store) Store(ctx context.Context, fingerprint string, resp *event.Response) error {
	headersJSON, err := json.Marshal(resp.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	query := `INSERT OR REPLACE INTO entries
	          (fingerprint, status, status_description, headers, body, stored_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		fingerprint, resp.Status, resp.StatusDescription, string(headersJSON), resp.Body, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// PurgeAll removes every entry.
func (s *Store) PurgeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
