// Package testutil provides shared test helpers for setting up vaults and fake providers.
package testutil

import (
	"context"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/embedding"
	"github.com/starford/vaultlens/internal/storage"
)

// TestVault creates a temporary vault directory populated with files
// (relative path → content) and returns its storage provider.
func TestVault(t *testing.T, files map[string]string, ignore ...string) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	for rel, content := range files {
		WriteNote(t, vaultDir, rel, content)
	}
	store, err := storage.NewFS(vaultDir, ignore)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNote writes one file below root, creating parent directories.
func WriteNote(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Touch sets the modification time of a vault file.
func Touch(t *testing.T, root, rel string, ts time.Time) {
	t.Helper()
	if err := os.Chtimes(filepath.Join(root, filepath.FromSlash(rel)), ts, ts); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// FakeProvider is a deterministic embedding.Provider that counts calls.
//
// Vectors come from Vectors when the text has an entry there, otherwise
// from a hash of the text. Texts containing any FailOn substring fail
// with apperr.ErrNetwork.
type FakeProvider struct {
	Vectors map[string][]float32
	FailOn  []string

	mu    sync.Mutex
	calls []string
}

var _ embedding.Provider = (*FakeProvider)(nil)

func (f *FakeProvider) Name() string { return "fake" }

// Embed implements embedding.Provider.
func (f *FakeProvider) Embed(_ context.Context, text string, _ embedding.TaskType) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	for _, s := range f.FailOn {
		if strings.Contains(text, s) {
			return nil, apperr.ErrNetwork
		}
	}
	if v, ok := f.Vectors[text]; ok {
		return v, nil
	}
	return HashVector(text), nil
}

// Calls returns the number of Embed calls so far.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Texts returns the texts passed to Embed, in call order.
func (f *FakeProvider) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Reset clears the call log.
func (f *FakeProvider) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// HashVector derives a small non-zero vector from text.
func HashVector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	sum := h.Sum64()
	v := make([]float32, 4)
	for i := range v {
		v[i] = float32((sum>>(i*16))&0xffff)/65535 + 0.01
	}
	return v
}
