package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/vaultlens/internal/apperr"
)

func TestGemini_Embed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/embedding-001:embedContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	}))
	defer srv.Close()

	g := NewGemini("secret", "", srv.URL, srv.Client())
	vec, err := g.Embed(context.Background(), "hello", TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "models/embedding-001", got["model"])
	assert.Equal(t, "RETRIEVAL_QUERY", got["taskType"])
}

func TestGemini_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	g := NewGemini("SUPERSECRETKEY", "", base, &http.Client{Timeout: time.Second})
	_, err := g.Embed(context.Background(), "hello", TaskDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
}

func TestGemini_TimeoutErrorOmitsKey(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-release }))
	defer srv.Close()
	defer close(release)

	g := NewGemini("SUPERSECRETKEY", "", srv.URL, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.Embed(ctx, "hello", TaskDocument)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
}

func TestOpenAI_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0],"index":0}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI("k", "", srv.URL, srv.Client())
	vec, err := o.Embed(context.Background(), "hello", TaskDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperr.ErrAuth},
		{http.StatusForbidden, apperr.ErrAuth},
		{http.StatusTooManyRequests, apperr.ErrRateLimit},
		{http.StatusInternalServerError, apperr.ErrNetwork},
		{http.StatusBadGateway, apperr.ErrNetwork},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		_, err := NewGemini("k", "", srv.URL, srv.Client()).Embed(context.Background(), "x", TaskDocument)
		srv.Close()
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.True(t, apperr.IsProviderError(err))
	}
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewOpenAI("k", "", url, nil).Embed(context.Background(), "x", TaskDocument)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

type scripted struct {
	calls atomic.Int32
	errs  []error
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Embed(context.Context, string, TaskType) ([]float32, error) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.errs) && s.errs[n] != nil {
		return nil, s.errs[n]
	}
	return []float32{1}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetrying_RetriesTransient(t *testing.T) {
	inner := &scripted{errs: []error{apperr.ErrRateLimit, apperr.ErrNetwork}}
	r := NewRetrying(inner, RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond}, nil)
	r.sleep = noSleep

	vec, err := r.Embed(context.Background(), "x", TaskDocument)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestRetrying_GivesUp(t *testing.T) {
	inner := &scripted{errs: []error{apperr.ErrNetwork, apperr.ErrNetwork, apperr.ErrNetwork}}
	r := NewRetrying(inner, RetryConfig{MaxRetries: 2}, nil)
	r.sleep = noSleep

	_, err := r.Embed(context.Background(), "x", TaskDocument)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestRetrying_NoRetryOnAuth(t *testing.T) {
	inner := &scripted{errs: []error{apperr.ErrAuth}}
	r := NewRetrying(inner, RetryConfig{MaxRetries: 5}, nil)
	r.sleep = noSleep

	_, err := r.Embed(context.Background(), "x", TaskDocument)
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestRetrying_PerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := NewRetrying(NewGemini("k", "", srv.URL, srv.Client()), RetryConfig{Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	_, err := r.Embed(context.Background(), "x", TaskDocument)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNew(t *testing.T) {
	p, err := New(Options{Provider: "gemini"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, Enabled(p), "missing key must select the disabled provider")

	_, err = p.Embed(context.Background(), "x", TaskQuery)
	assert.True(t, errors.Is(err, apperr.ErrConfigMissing))

	p, err = New(Options{Provider: "openai", APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	assert.True(t, Enabled(p))
	assert.Equal(t, "openai", p.Name())

	_, err = New(Options{Provider: "bogus", APIKey: "k"}, nil, nil)
	assert.Error(t, err)
}
