// Package runtime assembles the simulator: configuration, the behavior
// registry, the response cache, the origin client and the HTTP server.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/behavior"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache/memory"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/cache/sqlite"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/config"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/event"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/handler"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/lifecycle"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/origin"
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/server"
)

// Simulator is the process-level simulator instance. It owns the
// behavior registry and the response cache for the process lifetime.
type Simulator struct {
	logger     *slog.Logger
	cfg        *config.Config
	configPath string

	registry *behavior.Registry
	cache    cache.Store
	fetcher  lifecycle.Fetcher
	server   *server.Server

	cancelWatch context.CancelFunc
	serverErr   chan error
}

// New creates a simulator from the given options. The behavior
// registry is built here; an invalid pattern or an unresolvable handler
// reference fails construction, never a request.
func New(opts ...Option) (*Simulator, error) {
	s := &Simulator{
		logger:    slog.Default(),
		serverErr: make(chan error, 1),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.cfg == nil {
		return nil, fmt.Errorf("no configuration provided: use WithFileConfig or WithConfig")
	}

	if s.cache == nil {
		store, err := openCache(s.cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		s.cache = store
	}

	if s.fetcher == nil {
		timeout, err := s.cfg.Origin.FetchTimeout()
		if err != nil {
			return nil, err
		}
		s.fetcher = origin.NewClient(timeout, s.logger)
	}

	s.registry = behavior.NewRegistry(s.logger)
	if err := s.applyConfig(s.cfg); err != nil {
		return nil, err
	}

	router := server.NewRouter(s.registry, s.cache, s.fetcher, s.cfg.Cache.KeyHeaders, s.logger)
	s.server = server.New(s.cfg.Server.Port, s.logger, s.cache, router)

	return s, nil
}

func openCache(dir string) (cache.Store, error) {
	if dir == "" {
		return memory.New(), nil
	}
	store, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}
	return store, nil
}

// applyConfig rebuilds the behavior registry from a configuration.
// Server port and cache location are fixed for the process lifetime;
// only behaviors and origins participate in reload.
func (s *Simulator) applyConfig(cfg *config.Config) error {
	regs, err := buildRegistrations(cfg)
	if err != nil {
		return err
	}
	return s.registry.Rebuild(regs, cfg.Origins)
}

// buildRegistrations resolves the configured handler references into
// handlers. Resolution failures (unknown built-in, script syntax
// error) are registration-time errors.
func buildRegistrations(cfg *config.Config) ([]behavior.Registration, error) {
	regs := make([]behavior.Registration, 0, len(cfg.Behaviors))
	for _, bc := range cfg.Behaviors {
		stage, err := event.ParseStage(bc.Stage)
		if err != nil {
			return nil, fmt.Errorf("behavior %q: %w", bc.Pattern, err)
		}
		h, err := handler.Resolve(bc.Handler, bc.Options)
		if err != nil {
			return nil, fmt.Errorf("behavior %q stage %s: %w", bc.Pattern, stage, err)
		}
		regs = append(regs, behavior.Registration{
			Pattern: bc.Pattern,
			Stage:   stage,
			Handler: h,
		})
	}
	return regs, nil
}

// Start launches the HTTP listener and, when the configuration came
// from a file, the config watcher that rebuilds the registry on
// changes. It does not block.
func (s *Simulator) Start(ctx context.Context) error {
	if s.configPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		s.cancelWatch = cancel

		err := config.Watch(watchCtx, s.configPath, s.logger, func(cfg *config.Config) {
			if err := s.applyConfig(cfg); err != nil {
				s.logger.Error("config reload rejected, keeping previous registry",
					slog.String("error", err.Error()))
			}
		})
		if err != nil {
			cancel()
			return err
		}
	}

	go func() {
		s.serverErr <- s.server.Start()
	}()
	return nil
}

// Err exposes the server's terminal error, if any.
func (s *Simulator) Err() <-chan error { return s.serverErr }

// Handler exposes the assembled HTTP handler, for tests and embedding.
func (s *Simulator) Handler() *server.Server { return s.server }

// Shutdown stops the watcher, drains the server and closes the cache.
func (s *Simulator) Shutdown(ctx context.Context) error {
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.cache.Close()
}
