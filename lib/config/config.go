// Package config loads the niforms server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all niforms settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Messages MessagesConfig `yaml:"messages"`
	Submit   SubmitConfig   `yaml:"submit"`
	Honeypot HoneypotConfig `yaml:"honeypot"`
	Email    EmailConfig    `yaml:"email"`
	Logging  LoggingConfig  `yaml:"logging"`

	// SanitizeResponses filters processor messages and replacement HTML
	// through the UGC policy.
	SanitizeResponses bool `yaml:"sanitize_responses"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	BaseURL  string `yaml:"base_url"`
	PagesDir string `yaml:"pages_dir"`
}

type CacheConfig struct {
	Dir       string `yaml:"dir"`
	Key       string `yaml:"key"`
	Sensitive bool   `yaml:"sensitive"`
	MaxAge    string `yaml:"max_age"`
}

type MessagesConfig struct {
	Success string `yaml:"success"`
	Failure string `yaml:"failure"`
}

type SubmitConfig struct {
	StripSlashes bool `yaml:"strip_slashes"`
}

type HoneypotConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Store         string `yaml:"store"` // session, sql
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn"`
	MaxAge        string `yaml:"max_age"`
	EvictInterval string `yaml:"evict_interval"`
}

type EmailConfig struct {
	To      string `yaml:"to"`
	Subject string `yaml:"subject"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the defaults used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			BaseURL:  "http://localhost:8080",
			PagesDir: "pages",
		},
		Cache: CacheConfig{
			Dir:    filepath.Join("var", "niforms-cache"),
			MaxAge: "168h",
		},
		Messages: MessagesConfig{
			Failure: "Form submit failed.",
		},
		Submit: SubmitConfig{
			StripSlashes: true,
		},
		Honeypot: HoneypotConfig{
			Enabled:       true,
			Store:         "session",
			Driver:        "sqlite",
			DSN:           filepath.Join("var", "honeypot.db"),
			MaxAge:        "24h",
			EvictInterval: "1h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		SanitizeResponses: true,
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"NIFORMS_ADDR":           &c.Server.Addr,
		"NIFORMS_BASE_URL":       &c.Server.BaseURL,
		"NIFORMS_PAGES_DIR":      &c.Server.PagesDir,
		"NIFORMS_CACHE_DIR":      &c.Cache.Dir,
		"NIFORMS_CACHE_KEY":      &c.Cache.Key,
		"NIFORMS_HONEYPOT_STORE": &c.Honeypot.Store,
		"NIFORMS_HONEYPOT_DSN":   &c.Honeypot.DSN,
		"NIFORMS_EMAIL_TO":       &c.Email.To,
		"NIFORMS_LOG_LEVEL":      &c.Logging.Level,
		"NIFORMS_LOG_FORMAT":     &c.Logging.Format,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"NIFORMS_CACHE_SENSITIVE":    &c.Cache.Sensitive,
		"NIFORMS_STRIP_SLASHES":      &c.Submit.StripSlashes,
		"NIFORMS_HONEYPOT_ENABLED":   &c.Honeypot.Enabled,
		"NIFORMS_SANITIZE_RESPONSES": &c.SanitizeResponses,
	}
	for name, dst := range bools {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = b
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Honeypot.Store {
	case "session", "sql":
	default:
		return fmt.Errorf("invalid honeypot.store %q: want session or sql", c.Honeypot.Store)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q: want json or console", c.Logging.Format)
	}
	for name, v := range map[string]string{
		"cache.max_age":           c.Cache.MaxAge,
		"honeypot.max_age":        c.Honeypot.MaxAge,
		"honeypot.evict_interval": c.Honeypot.EvictInterval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// CacheMaxAge returns how long cached forms are kept by purge.
func (c *Config) CacheMaxAge() time.Duration {
	return duration(c.Cache.MaxAge, 7*24*time.Hour)
}

// HoneypotMaxAge returns the age after which unused tokens are evicted.
func (c *Config) HoneypotMaxAge() time.Duration {
	return duration(c.Honeypot.MaxAge, 24*time.Hour)
}

// HoneypotEvictInterval returns how often the evictor runs.
func (c *Config) HoneypotEvictInterval() time.Duration {
	return duration(c.Honeypot.EvictInterval, time.Hour)
}

// CacheKey returns the key snapshots are sealed with. It is empty when
// cache.key is unset.
func (c *Config) CacheKey() []byte {
	return []byte(c.Cache.Key)
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
