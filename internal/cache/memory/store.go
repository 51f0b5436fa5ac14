// Package memory provides an in-memory implementation of cache.Store,
// used when no cache directory is configured and throughout the tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// Store is an in-memory implementation of cache.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*cache.Entry
}

var _ cache.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]*cache.Entry)}
}

func (s *Store) Lookup(ctx context.Context, fingerprint string) (*cache.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	return &cache.Entry{
		Fingerprint: entry.Fingerprint,
		Response:    entry.Response.Clone(),
		StoredAt:    entry.StoredAt,
	}, nil
}

func (s *Store) Store(ctx context.Context, fingerprint string, resp *event.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fingerprint] = &cache.Entry{
		Fingerprint: fingerprint,
		Response:    resp.Clone(),
		StoredAt:    time.Now(),
	}
	return nil
}

func (s *Store) PurgeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*cache.Entry)
	return nil
}

// Len reports the number of entries, for tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Close() error {
	return nil
}
