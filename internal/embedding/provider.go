// Package embedding turns text into vectors through an external provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/starford/vaultlens/internal/apperr"
)

// TaskType tells the provider how the vector will be used.
type TaskType string

const (
	TaskDocument TaskType = "document"
	TaskQuery    TaskType = "query"
)

// Provider embeds a single text.
//
// Failures wrap apperr.ErrAuth, apperr.ErrRateLimit or apperr.ErrNetwork.
type Provider interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
	Name() string
}

// Disabled is the provider used when no credentials are configured.
type Disabled struct{}

// Embed always fails with apperr.ErrConfigMissing.
func (Disabled) Embed(context.Context, string, TaskType) ([]float32, error) {
	return nil, fmt.Errorf("embedding: no provider configured: %w", apperr.ErrConfigMissing)
}

func (Disabled) Name() string { return "none" }

// Enabled reports whether p can produce vectors.
func Enabled(p Provider) bool {
	if p == nil {
		return false
	}
	_, off := p.(Disabled)
	return !off
}
