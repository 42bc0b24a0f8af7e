package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "niforms.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
cache:
  dir: /tmp/forms
  key: secret
  sensitive: true
messages:
  success: "Thanks!"
honeypot:
  store: sql
  dsn: /tmp/hp.db
  max_age: 2h
logging:
  format: console
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" || cfg.Cache.Dir != "/tmp/forms" || !cfg.Cache.Sensitive {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if string(cfg.CacheKey()) != "secret" {
		t.Errorf("CacheKey() = %q", cfg.CacheKey())
	}
	if cfg.Messages.Success != "Thanks!" || cfg.Messages.Failure != "Form submit failed." {
		t.Errorf("messages = %+v", cfg.Messages)
	}
	if cfg.Honeypot.Store != "sql" || cfg.HoneypotMaxAge() != 2*time.Hour {
		t.Errorf("honeypot = %+v", cfg.Honeypot)
	}
	// Unset keys keep their defaults.
	if cfg.Server.PagesDir != "pages" || cfg.HoneypotEvictInterval() != time.Hour || !cfg.Submit.StripSlashes {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("NIFORMS_ADDR", ":7000")
	t.Setenv("NIFORMS_CACHE_KEY", "from-env")
	t.Setenv("NIFORMS_HONEYPOT_ENABLED", "false")
	t.Setenv("NIFORMS_STRIP_SLASHES", "0")
	t.Setenv("NIFORMS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want env value", cfg.Server.Addr)
	}
	if cfg.Cache.Key != "from-env" || cfg.Logging.Level != "debug" {
		t.Errorf("string overrides not applied: %+v", cfg)
	}
	if cfg.Honeypot.Enabled || cfg.Submit.StripSlashes {
		t.Errorf("bool overrides not applied: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{"bad yaml", "server: [", nil, "failed to parse config"},
		{"bad store", "honeypot:\n  store: redis\n", nil, "honeypot.store"},
		{"bad format", "logging:\n  format: xml\n", nil, "logging.format"},
		{"bad duration", "cache:\n  max_age: weekly\n", nil, "cache.max_age"},
		{"bad env bool", "", map[string]string{"NIFORMS_CACHE_SENSITIVE": "maybe"}, "NIFORMS_CACHE_SENSITIVE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "niforms.yaml")
	cfg := DefaultConfig()
	cfg.Email.To = "admin@example.com"
	cfg.Honeypot.Store = "sql"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	if cfg.CacheMaxAge() != 7*24*time.Hour {
		t.Errorf("CacheMaxAge() = %v", cfg.CacheMaxAge())
	}
	if cfg.HoneypotMaxAge() != 24*time.Hour {
		t.Errorf("HoneypotMaxAge() = %v", cfg.HoneypotMaxAge())
	}
}
