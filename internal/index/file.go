package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/storage"
)

// Codec serializes an Index to bytes.
type Codec interface {
	Marshal(Index) ([]byte, error)
	Unmarshal([]byte, *Index) error
}

// JSONCodec writes the index as indented JSON.
type JSONCodec struct{}

func (JSONCodec) Marshal(idx Index) ([]byte, error) { return json.MarshalIndent(idx, "", "  ") }

func (JSONCodec) Unmarshal(data []byte, idx *Index) error { return json.Unmarshal(data, idx) }

// MsgpackCodec writes the index as MessagePack.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(idx Index) ([]byte, error) { return msgpack.Marshal(idx) }

func (MsgpackCodec) Unmarshal(data []byte, idx *Index) error { return msgpack.Unmarshal(data, idx) }

// FileStore keeps the index in a single file, replaced atomically on save.
type FileStore struct {
	path  string
	codec Codec
}

// NewFileStore creates a file-backed store.
func NewFileStore(path string, codec Codec) *FileStore {
	return &FileStore{path: path, codec: codec}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Close() error { return nil }

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (Index, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("index: %s: %w", s.path, apperr.ErrIndexMissing)
		}
		return nil, fmt.Errorf("index: read: %w", err)
	}
	idx := Index{}
	if err := s.codec.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("index: decode %s: %w", s.path, err)
	}
	return idx, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, idx Index) error {
	data, err := s.codec.Marshal(idx)
	if err != nil {
		return fmt.Errorf("index: encode: %w", err)
	}
	if err := storage.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("index: save: %w", err)
	}
	return nil
}
