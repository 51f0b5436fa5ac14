package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
cache:
  dir: /var/cache/edge
  key_headers:
    - Accept
    - Accept-Language
origin:
  timeout: 10s
behaviors:
  - pattern: "/api/*"
    stage: viewer-request
    handler: handlers/auth.js
  - pattern: "/static/*"
    stage: origin-response
    handler: inject-headers
    options:
      headers:
        Cache-Control: public
origins:
  "/api/*": http://localhost:3000
  "*": http://localhost:3001
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Cache.Dir != "/var/cache/edge" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if len(cfg.Cache.KeyHeaders) != 2 || cfg.Cache.KeyHeaders[0] != "Accept" {
		t.Errorf("Cache.KeyHeaders = %v", cfg.Cache.KeyHeaders)
	}

	d, err := cfg.Origin.FetchTimeout()
	if err != nil {
		t.Fatalf("FetchTimeout() error = %v", err)
	}
	if d != 10*time.Second {
		t.Errorf("FetchTimeout() = %v, want 10s", d)
	}

	if len(cfg.Behaviors) != 2 {
		t.Fatalf("Behaviors = %d, want 2", len(cfg.Behaviors))
	}
	b := cfg.Behaviors[0]
	if b.Pattern != "/api/*" || b.Stage != "viewer-request" || b.Handler != "handlers/auth.js" {
		t.Errorf("Behaviors[0] = %+v", b)
	}
	opts := cfg.Behaviors[1].Options
	headers, ok := opts["headers"].(map[string]any)
	if !ok || headers["Cache-Control"] != "public" {
		t.Errorf("Behaviors[1].Options = %v", opts)
	}

	if cfg.Origins["/api/*"] != "http://localhost:3000" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
	if cfg.Origins["*"] != "http://localhost:3001" {
		t.Errorf("Origins = %v", cfg.Origins)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want default 4000", cfg.Server.Port)
	}
	if cfg.Cache.Dir != "" {
		t.Errorf("Cache.Dir = %q, want empty (in-memory)", cfg.Cache.Dir)
	}
	if d, err := cfg.Origin.FetchTimeout(); err != nil || d != 0 {
		t.Errorf("FetchTimeout() = %v, %v; want 0, nil", d, err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)
	t.Setenv("EDGE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want env override 9090", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "behaviors: [}{")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}

func TestFetchTimeout_Invalid(t *testing.T) {
	c := OriginConfig{Timeout: "soon"}
	if _, err := c.FetchTimeout(); err == nil {
		t.Fatal("expected a parse error")
	}
}
