package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/vaultlens/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Fatalf("err = %v, want token is empty", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Embedding.Configured() {
		t.Error("default config has no api key and should not be configured")
	}
	if !cfg.Index.PruneDeleted || cfg.Index.Workers != 4 || cfg.Index.Truncate != 2000 {
		t.Errorf("index defaults = %+v", cfg.Index)
	}
}

func TestConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"empty vault", func(c *Config) { c.Vault.Path = "" }, "vault"},
		{"bad backend", func(c *Config) { c.Index.Backend = "redis" }, "index"},
		{"zero workers", func(c *Config) { c.Index.Workers = 0 }, "index"},
		{"bad provider", func(c *Config) { c.Embedding.Provider = "cohere" }, "embedding"},
		{"backoff order", func(c *Config) { c.Embedding.MaxBackoff = time.Millisecond }, "embedding"},
		{"backup without remote", func(c *Config) { c.Backup.Enabled = true; c.Backup.Remote = "" }, "backup"},
		{"bad port", func(c *Config) { c.App.HTTP.Port = 70000 }, "app"},
		{"token without secret", func(c *Config) { c.Auth.Mode = AuthModeToken }, "token is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mut(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestIndexConfig_Location(t *testing.T) {
	root := filepath.FromSlash("/vault")
	tests := []struct {
		cfg  IndexConfig
		want string
	}{
		{IndexConfig{Backend: "json"}, filepath.Join(root, ".search_index", "index.json")},
		{IndexConfig{Backend: "sqlite"}, filepath.Join(root, ".search_index", "index.db")},
		{IndexConfig{Path: "idx/custom.json"}, filepath.Join(root, "idx", "custom.json")},
	}
	for _, tt := range tests {
		if got := tt.cfg.Location(root); got != tt.want {
			t.Errorf("Location(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestLoad_YAMLOntoDefaults(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
vault:
  path: /notes
index:
  backend: msgpack
embedding:
  provider: openai
  api_key: ${TEST_EMBED_KEY}
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Embedding.APIKey != "secret" || cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if !cfg.Embedding.Configured() {
		t.Error("expected configured provider")
	}
	if cfg.Index.Workers != 4 || cfg.App.HTTP.Port != 8080 {
		t.Error("unset keys should keep defaults")
	}
	if len(cfg.Vault.Ignore) == 0 || cfg.Vault.Ignore[0] != ".git" {
		t.Errorf("ignore = %v", cfg.Vault.Ignore)
	}
}
