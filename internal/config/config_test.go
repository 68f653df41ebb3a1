package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if len(cfg.Backend.Feeds) == 0 {
		t.Error("expected at least one default feed")
	}
	if cfg.Server.BaseURL == "" {
		t.Error("expected server.base_url to be set")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("embedded defaults should validate: %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2h30m", 2*time.Hour + 30*time.Minute, false},
		{"invalid", 0, true},
		{"", 0, true},
		{"d", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("ParseDuration(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	if got := cfg.ImageTTL(); got != 24*time.Hour {
		t.Errorf("expected 24h default image ttl, got %v", got)
	}
	if got := cfg.ImageCleanupDelay(); got != 5*time.Second {
		t.Errorf("expected 5s default cleanup delay, got %v", got)
	}
	if got := cfg.Timeout(); got != 15*time.Second {
		t.Errorf("expected 15s default timeout, got %v", got)
	}

	cfg.Images.TTL = "invalid"
	if got := cfg.ImageTTL(); got != 24*time.Hour {
		t.Errorf("expected 24h for invalid ttl, got %v", got)
	}
	cfg.Backend.Retention = "90d"
	if got := cfg.RetentionDuration(); got != 90*24*time.Hour {
		t.Errorf("expected 90d retention, got %v", got)
	}
}

func TestPageSizeDefault(t *testing.T) {
	cfg := &Config{}
	if got := cfg.PageSize(); got != 50 {
		t.Errorf("expected default page size 50, got %d", got)
	}
	cfg.Filter.PageSize = 20
	if got := cfg.PageSize(); got != 20 {
		t.Errorf("expected page size 20, got %d", got)
	}
}

func TestEnabledFeeds(t *testing.T) {
	cfg := &Config{Backend: Backend{Feeds: []Feed{
		{Name: "A", Enabled: true},
		{Name: "B", Enabled: false},
		{Name: "C", Enabled: true},
	}}}
	enabled := cfg.EnabledFeeds()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled feeds, got %d", len(enabled))
	}
	if enabled[0].Name != "A" || enabled[1].Name != "C" {
		t.Errorf("unexpected enabled feeds: %v", enabled)
	}
}

func TestServerURLEnvOverride(t *testing.T) {
	cfg := &Config{Server: Server{BaseURL: "http://localhost:1"}}
	t.Setenv("FEEDVIEW_SERVER", "http://example.com:9000")
	if got := cfg.ServerURL(); got != "http://example.com:9000" {
		t.Errorf("expected env override, got %s", got)
	}
}

func TestAIKeyFromEnv(t *testing.T) {
	cfg := &Config{Backend: Backend{AI: &AIConfig{Provider: "claude"}}}
	t.Setenv("FEEDVIEW_AI_KEY", "secret")
	if !cfg.AIEnabled() {
		t.Error("expected AI enabled with env key")
	}
	if cfg.AIKey() != "secret" {
		t.Errorf("expected env key, got %q", cfg.AIKey())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `server:
  base_url: http://localhost:8080
filter:
  page_size: 25
backend:
  feeds:
    - name: Test
      type: rss
      url: https://example.com/feed
      enabled: true
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("expected overridden base url, got %s", cfg.Server.BaseURL)
	}
	if cfg.PageSize() != 25 {
		t.Errorf("expected page size 25, got %d", cfg.PageSize())
	}
	if len(cfg.Backend.Feeds) != 1 || cfg.Backend.Feeds[0].Name != "Test" {
		t.Errorf("expected user feeds to replace defaults, got %v", cfg.Backend.Feeds)
	}
	// Untouched sections keep their defaults
	if cfg.Images.TTL != "24h" {
		t.Errorf("expected default image ttl, got %q", cfg.Images.TTL)
	}
}

func TestLoadTOML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[server]
base_url = "http://127.0.0.1:9000"

[filter]
page_size = 10
default = "category==go"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:9000" {
		t.Errorf("expected toml base url, got %s", cfg.Server.BaseURL)
	}
	if cfg.PageSize() != 10 {
		t.Errorf("expected page size 10, got %d", cfg.PageSize())
	}
	if cfg.Filter.Default != "category==go" {
		t.Errorf("expected default filter, got %q", cfg.Filter.Default)
	}
	if len(cfg.Backend.Feeds) == 0 {
		t.Error("expected default feeds to survive a partial toml file")
	}
}

func TestLoadWritesTOMLDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if _, err := Load(cfgPath); err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("reading written defaults: %v", err)
	}
	if !strings.Contains(string(data), "[server]") {
		t.Errorf("expected toml tables in written defaults, got:\n%s", data)
	}
}

func TestLoadNonexistentFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Backend.Feeds) == 0 {
		t.Error("expected default feeds when config doesn't exist")
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("expected defaults to be written: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad scheme", "server:\n  base_url: ftp://x\n", "scheme"},
		{"bad threshold", "translation:\n  threshold: 2\n", "threshold"},
		{"missing feed url", "backend:\n  feeds:\n    - name: X\n      type: rss\n", "url is required"},
		{"bad feed type", "backend:\n  feeds:\n    - name: X\n      type: json\n      url: https://x.com\n", "unknown type"},
		{"bad provider", "backend:\n  ai:\n    provider: gemini\n", "unknown provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
