// Package storage defines the vault file-system abstraction and the corpus loader.
package storage

import "github.com/starford/vaultlens/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// Root returns the absolute vault root.
	Root() string
	// Load enumerates every .md note under the root, skipping ignored directories.
	Load() (*models.Corpus, error)
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Stat returns metadata for the note at path (relative to vault root).
	Stat(path string) (models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
}
