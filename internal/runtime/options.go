package runtime

import (
	"fmt"
	"log/slog"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/config"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/lifecycle"
)

// Option is a functional option for configuring a Simulator.
type Option func(*Simulator) error

// WithFileConfig loads configuration from a YAML file and watches it
// for changes: edits to the behavior list or origin map rebuild the
// registry atomically while the simulator is running.
func WithFileConfig(path string) Option {
	return func(s *Simulator) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s.cfg = cfg
		s.configPath = path
		return nil
	}
}

// WithConfig uses an already-built configuration, without hot-reload.
func WithConfig(cfg *config.Config) Option {
	return func(s *Simulator) error {
		s.cfg = cfg
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) error {
		s.logger = logger
		return nil
	}
}

// WithCacheStore overrides the response cache. Useful for tests and
// for embedding with a pre-built store.
func WithCacheStore(store cache.Store) Option {
	return func(s *Simulator) error {
		s.cache = store
		return nil
	}
}

// WithFetcher overrides the origin fetcher. Useful for tests.
func WithFetcher(f lifecycle.Fetcher) Option {
	return func(s *Simulator) error {
		s.fetcher = f
		return nil
	}
}
