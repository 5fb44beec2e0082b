package internal

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/vaultlens/internal/embedding"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	logger     *slog.Logger
	out        io.Writer
	httpClient *http.Client
	version    string
	provider   embedding.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON stderr logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithOutput sets where human-readable command output is written.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithHTTPClient sets the client used for embedding and webhook calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *application) {
		a.httpClient = c
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithEmbeddingProvider overrides the provider composed from the config.
func WithEmbeddingProvider(p embedding.Provider) Option {
	return func(a *application) {
		a.provider = p
	}
}
