// Package config loads the simulator configuration: the behavior
// tuples, the origin map, the cache settings and the server port.
// Configuration comes from a YAML file with EDGE_-prefixed environment
// variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Cache     CacheConfig       `koanf:"cache"`
	Origin    OriginConfig      `koanf:"origin"`
	Behaviors []BehaviorConfig  `koanf:"behaviors"`
	Origins   map[string]string `koanf:"origins"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type CacheConfig struct {
	// Dir is the durable cache directory. Empty selects the in-memory
	// cache, which does not survive restarts.
	Dir string `koanf:"dir"`

	// KeyHeaders is the subset of request headers included in the
	// cache fingerprint.
	KeyHeaders []string `koanf:"key_headers"`
}

type OriginConfig struct {
	// Timeout bounds a single origin fetch, e.g. "30s".
	Timeout string `koanf:"timeout"`
}

// BehaviorConfig is one (pattern, stage, handler) tuple. Handler is
// either a built-in handler type name or a path to a JavaScript file.
type BehaviorConfig struct {
	Pattern string         `koanf:"pattern"`
	Stage   string         `koanf:"stage"`
	Handler string         `koanf:"handler"`
	Options map[string]any `koanf:"options"`
}

// FetchTimeout parses the configured origin timeout. Zero means the
// client default.
func (c OriginConfig) FetchTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse origin.timeout: %w", err)
	}
	return d, nil
}

// Load reads the configuration file (if path is non-empty) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Load environment variables
	if err := k.Load(env.Provider("EDGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "EDGE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 4000)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
