package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch watches the config file for changes and calls onChange with
// each successfully reloaded configuration. A reload that fails to
// parse is logged and skipped, leaving the running configuration in
// place. The watcher stops when ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	logger.Info("watching config file for changes", slog.String("path", path))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("config watch stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				// Only reload on write events
				if event.Op&fsnotify.Write == fsnotify.Write {
					logger.Info("config file changed, reloading", slog.String("path", event.Name))

					cfg, err := Load(path)
					if err != nil {
						logger.Error("failed to reload config",
							slog.String("error", err.Error()),
							slog.String("path", path))
						continue
					}

					onChange(cfg)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}
