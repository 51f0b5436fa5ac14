// Package cache defines the response cache contract: a content-
// addressed store of previously fetched origin responses, keyed by a
// deterministic request fingerprint.
package cache

import (
	"context"
	"time"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
)

// Entry is one cached origin response. For a given fingerprint at most
// one entry exists; stores overwrite.
type Entry struct {
	Fingerprint string
	Response    *event.Response
	StoredAt    time.Time
}

// Store is the response cache. Implementations must be safe for
// concurrent use; a lookup racing a purge may see a hit or a miss,
// never a corrupted entry.
type Store interface {
	// Lookup returns the entry for a fingerprint, or (nil, nil) on a
	// miss. Read errors are surfaced but callers treat them as misses.
	Lookup(ctx context.Context, fingerprint string) (*Entry, error)

	// Store inserts or overwrites the entry for a fingerprint.
	Store(ctx context.Context, fingerprint string, resp *event.Response) error

	// PurgeAll removes every entry.
	PurgeAll(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
