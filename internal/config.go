package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/vaultlens/internal/embedding"
	"github.com/starford/vaultlens/internal/graph"
	"github.com/starford/vaultlens/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Embedding providers.
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultIgnore lists directory names never scanned for notes.
var DefaultIgnore = []string{".git", ".obsidian", "node_modules", "__pycache__", "scripts", ".github", "exports"}

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	Index     IndexConfig       `yaml:"index"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Backup    BackupConfig      `yaml:"backup"`
	Notify    NotifyConfig      `yaml:"notify"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Index.Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := c.Backup.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig describes the note corpus.
type VaultConfig struct {
	Path   string   `yaml:"path"`
	Ignore []string `yaml:"ignore"`
	// Exempt lists note ids never reported as orphans.
	Exempt []string `yaml:"exempt"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig controls embedding index persistence and builds.
type IndexConfig struct {
	Backend      string `yaml:"backend"`
	Path         string `yaml:"path"`
	Truncate     int    `yaml:"truncate"`
	Preview      int    `yaml:"preview"`
	Workers      int    `yaml:"workers"`
	PruneDeleted bool   `yaml:"prune_deleted"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.In(index.BackendJSON, index.BackendMsgpack, index.BackendSQLite)),
		validation.Field(&c.Truncate, validation.Min(0)),
		validation.Field(&c.Preview, validation.Min(0)),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// Location returns the index path, resolving the default and relative paths
// against the vault root.
func (c *IndexConfig) Location(root string) string {
	if c.Path == "" {
		return index.DefaultPath(root, c.Backend)
	}
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(root, c.Path)
}

// BuildOptions converts the section to builder options.
func (c *IndexConfig) BuildOptions() index.BuildOptions {
	return index.BuildOptions{
		Truncate:     c.Truncate,
		Preview:      c.Preview,
		Workers:      c.Workers,
		PruneDeleted: c.PruneDeleted,
	}
}

// EmbeddingConfig selects the embedding provider. An empty APIKey disables
// semantic features without failing validation.
type EmbeddingConfig struct {
	Provider       string        `yaml:"provider"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(ProviderNone, ProviderGemini, ProviderOpenAI)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.InitialBackoff, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxBackoff, validation.Min(c.InitialBackoff)),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
	)
}

// Options converts the section to provider options.
func (c *EmbeddingConfig) Options() embedding.Options {
	return embedding.Options{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		Retry: embedding.RetryConfig{
			Timeout:        c.Timeout,
			MaxRetries:     c.MaxRetries,
			InitialBackoff: c.InitialBackoff,
			MaxBackoff:     c.MaxBackoff,
			RatePerSecond:  c.RatePerSecond,
		},
	}
}

// Configured reports whether a provider will be composed.
func (c *EmbeddingConfig) Configured() bool {
	return c.Provider != "" && c.Provider != ProviderNone && c.APIKey != ""
}

// BackupConfig controls git auto-backup.
type BackupConfig struct {
	Enabled bool          `yaml:"enabled"`
	Remote  string        `yaml:"remote"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Remote, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// NotifyConfig holds the optional chat webhook.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Validate validates the notify configuration.
func (c *NotifyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds HTTP API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:   "./vault",
			Ignore: append([]string(nil), DefaultIgnore...),
			Exempt: append([]string(nil), graph.DefaultExempt...),
		},
		Index: IndexConfig{
			Backend:      index.BackendJSON,
			Truncate:     2000,
			Preview:      200,
			Workers:      4,
			PruneDeleted: true,
		},
		Embedding: EmbeddingConfig{
			Provider:       ProviderGemini,
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Backup: BackupConfig{
			Remote:  "origin",
			Timeout: 30 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
