package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type Server struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Timeout string `yaml:"timeout" toml:"timeout"`
}

type Filter struct {
	PageSize int `yaml:"page_size" toml:"page_size"`
	// Default is the filter expression applied when the browser starts.
	Default string `yaml:"default" toml:"default"`
}

// Translation tunes when a list row counts as visible.
type Translation struct {
	Threshold   float64 `yaml:"threshold" toml:"threshold"`
	MarginLines int     `yaml:"margin_lines" toml:"margin_lines"`
}

type Images struct {
	TTL          string `yaml:"ttl" toml:"ttl"`
	CleanupDelay string `yaml:"cleanup_delay" toml:"cleanup_delay"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

type Feed struct {
	Name      string `yaml:"name" toml:"name"`
	Category  string `yaml:"category" toml:"category"`
	Type      string `yaml:"type" toml:"type"`
	URL       string `yaml:"url" toml:"url"`
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	ImageMode bool   `yaml:"image_mode,omitempty" toml:"image_mode,omitempty"`
}

type AIConfig struct {
	Provider   string `yaml:"provider" toml:"provider"` // "claude" or "openai"
	APIKey     string `yaml:"api_key" toml:"api_key"`
	Model      string `yaml:"model" toml:"model"`
	UsageLimit int    `yaml:"usage_limit,omitempty" toml:"usage_limit,omitempty"`
}

// Backend configures the local development backend started by `feedview serve`.
type Backend struct {
	Listen             string    `yaml:"listen" toml:"listen"`
	Database           string    `yaml:"database" toml:"database"`
	RefreshInterval    string    `yaml:"refresh_interval" toml:"refresh_interval"`
	Retention          string    `yaml:"retention" toml:"retention"`
	TranslationEnabled bool      `yaml:"translation_enabled" toml:"translation_enabled"`
	TargetLanguage     string    `yaml:"target_language" toml:"target_language"`
	Feeds              []Feed    `yaml:"feeds" toml:"feeds"`
	AI                 *AIConfig `yaml:"ai,omitempty" toml:"ai,omitempty"`
}

type Config struct {
	Server      Server      `yaml:"server" toml:"server"`
	Filter      Filter      `yaml:"filter" toml:"filter"`
	Translation Translation `yaml:"translation" toml:"translation"`
	Images      Images      `yaml:"images" toml:"images"`
	Log         Log         `yaml:"log" toml:"log"`
	Backend     Backend     `yaml:"backend" toml:"backend"`
}

// ServerURL returns the backend base URL, honoring FEEDVIEW_SERVER.
func (c *Config) ServerURL() string {
	if v := os.Getenv("FEEDVIEW_SERVER"); v != "" {
		return v
	}
	return c.Server.BaseURL
}

func (c *Config) Timeout() time.Duration {
	return parseDuration(c.Server.Timeout, 15*time.Second)
}

// PageSize returns the filter page size, defaulting to 50.
func (c *Config) PageSize() int {
	if c.Filter.PageSize <= 0 {
		return 50
	}
	return c.Filter.PageSize
}

func (c *Config) ImageTTL() time.Duration {
	return parseDuration(c.Images.TTL, 24*time.Hour)
}

func (c *Config) ImageCleanupDelay() time.Duration {
	return parseDuration(c.Images.CleanupDelay, 5*time.Second)
}

func (c *Config) RefreshDuration() time.Duration {
	return parseDuration(c.Backend.RefreshInterval, 30*time.Minute)
}

func (c *Config) RetentionDuration() time.Duration {
	return parseDuration(c.Backend.Retention, 30*24*time.Hour)
}

// AIEnabled returns true if AI translation is configured with a key.
func (c *Config) AIEnabled() bool {
	return c.Backend.AI != nil && c.AIKey() != ""
}

// AIKey returns the resolved API key (config or env var).
func (c *Config) AIKey() string {
	if c.Backend.AI != nil && c.Backend.AI.APIKey != "" {
		return c.Backend.AI.APIKey
	}
	return os.Getenv("FEEDVIEW_AI_KEY")
}

func (c *Config) EnabledFeeds() []Feed {
	var out []Feed
	for _, f := range c.Backend.Feeds {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

// DatabasePath returns the backend database location.
func (c *Config) DatabasePath() string {
	if c.Backend.Database != "" {
		return c.Backend.Database
	}
	return filepath.Join(xdg.DataHome, "feedview", "backend.db")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(xdg.StateHome, "feedview", "feedview.log")
}

// ParseDuration parses Go durations plus the "Nd" day syntax.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "feedview", "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the default path), layering it over the
// embedded defaults. A missing file is created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: embedded defaults still apply
			_ = writeDefaults(path, cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := unmarshal(path, data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// unmarshal decodes TOML for a .toml path and YAML otherwise.
func unmarshal(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func writeDefaults(path string, defaults *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	if isTOML(path) {
		var err error
		if data, err = toml.Marshal(defaults); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if err := validateHTTPURL("server.base_url", cfg.Server.BaseURL); err != nil {
		return err
	}
	if cfg.Filter.PageSize < 0 {
		return fmt.Errorf("filter.page_size must be positive, got %d", cfg.Filter.PageSize)
	}
	if t := cfg.Translation.Threshold; t < 0 || t > 1 {
		return fmt.Errorf("translation.threshold must be within [0, 1], got %v", t)
	}
	if cfg.Translation.MarginLines < 0 {
		return fmt.Errorf("translation.margin_lines must not be negative, got %d", cfg.Translation.MarginLines)
	}

	validTypes := map[string]bool{"rss": true, "atom": true}
	for i, f := range cfg.Backend.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed %d: name is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feed %q: url is required", f.Name)
		}
		if err := validateHTTPURL("feed "+f.Name, f.URL); err != nil {
			return err
		}
		if !validTypes[f.Type] {
			return fmt.Errorf("feed %q: unknown type %q (valid: rss, atom)", f.Name, f.Type)
		}
	}
	if ai := cfg.Backend.AI; ai != nil && ai.Provider != "" && ai.Provider != "claude" && ai.Provider != "openai" {
		return fmt.Errorf("backend.ai.provider: unknown provider %q (valid: claude, openai)", ai.Provider)
	}
	return nil
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid url: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: url scheme must be http or https, got %q", name, u.Scheme)
	}
	return nil
}
