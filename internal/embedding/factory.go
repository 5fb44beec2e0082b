package embedding

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// Options selects and configures a provider.
type Options struct {
	Provider string // gemini | openai | none
	APIKey   string
	Model    string
	BaseURL  string
	Retry    RetryConfig
}

// New composes the configured provider. An empty API key or the "none"
// provider yields Disabled.
func New(opts Options, client *http.Client, logger *slog.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Provider))
	if name == "" || name == "none" || opts.APIKey == "" {
		return Disabled{}, nil
	}
	var p Provider
	switch name {
	case "gemini":
		p = NewGemini(opts.APIKey, opts.Model, opts.BaseURL, client)
	case "openai":
		p = NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL, client)
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", opts.Provider)
	}
	return NewRetrying(p, opts.Retry, logger), nil
}
