// Package apperr defines the sentinel errors shared across vaultlens packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConfigMissing = errors.New("configuration missing")
	ErrIndexMissing  = errors.New("search index not found")
	ErrIndexLocked   = errors.New("search index is locked by another writer")
)

// Embedding provider failure kinds.
var (
	ErrAuth      = errors.New("provider authentication failed")
	ErrRateLimit = errors.New("provider rate limit exceeded")
	ErrNetwork   = errors.New("provider network failure")
)

// IsProviderError reports whether err is one of the embedding provider failure kinds.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrNetwork)
}

// IsRetryable reports whether a provider call that failed with err may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrNetwork)
}

// Public returns a fixed client-facing message for the sentinel kind of err.
// Wrapped detail, which may include provider responses, is never exposed.
func Public(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrConfigMissing):
		return "embedding provider not configured"
	case errors.Is(err, ErrIndexMissing):
		return "search index not built yet"
	case errors.Is(err, ErrIndexLocked):
		return "index build already running"
	case errors.Is(err, ErrAuth):
		return "embedding provider rejected the credentials"
	case errors.Is(err, ErrRateLimit):
		return "embedding provider rate limit exceeded"
	case errors.Is(err, ErrNetwork):
		return "embedding provider unavailable"
	default:
		return "internal error"
	}
}
