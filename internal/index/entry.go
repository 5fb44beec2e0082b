// Package index maintains the persisted embedding index of a vault and ranks notes against queries.
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Entry is the persisted embedding of one note.
type Entry struct {
	Name      string    `json:"name" msgpack:"name"`
	Embedding []float32 `json:"embedding" msgpack:"embedding"`
	MTime     float64   `json:"mtime" msgpack:"mtime"`
	Preview   string    `json:"preview" msgpack:"preview"`
}

// Index maps a note's vault-relative path to its entry.
type Index map[string]Entry

// MTime converts a modification time to the stored snapshot (seconds since epoch).
func MTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Fresh reports whether e was computed from a note modified at t.
func (e Entry) Fresh(t time.Time) bool {
	return e.MTime == MTime(t)
}

// Store persists an Index as a single document.
type Store interface {
	// Load returns the persisted index, or an error wrapping
	// apperr.ErrIndexMissing if nothing was ever saved.
	Load(ctx context.Context) (Index, error)
	// Save replaces the persisted index with idx.
	Save(ctx context.Context, idx Index) error
	Path() string
	Close() error
}

// Backends accepted by OpenStore.
const (
	BackendJSON    = "json"
	BackendMsgpack = "msgpack"
	BackendSQLite  = "sqlite"
)

// OpenStore returns the store for backend at path.
func OpenStore(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewFileStore(path, JSONCodec{}), nil
	case BackendMsgpack:
		return NewFileStore(path, MsgpackCodec{}), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("index: unknown backend %q", backend)
	}
}

// DefaultPath returns the default index location for a backend under root.
func DefaultPath(root, backend string) string {
	name := "index.json"
	switch backend {
	case BackendMsgpack:
		name = "index.msgpack"
	case BackendSQLite:
		name = "index.db"
	}
	return filepath.Join(root, ".search_index", name)
}
