package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/models"
)

const noteExt = ".md"

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to vault directory
	ignore map[string]struct{}
}

// NewFS creates a new FS provider rooted at the given directory.
// Directories whose name appears in ignore are skipped at any depth.
// The root directory must already exist.
func NewFS(root string, ignore []string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	set := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		set[name] = struct{}{}
	}
	return &FS{root: abs, ignore: set}, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string {
	return f.root
}

// Ignored reports whether a directory with the given name is excluded from scans.
func (f *FS) Ignored(name string) bool {
	_, ok := f.ignore[name]
	return ok
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// walk visits every note file under base, skipping ignored directories.
// Per-entry errors are passed to fn with a nil DirEntry and never abort the walk.
func (f *FS) walk(base string, fn func(abs, rel string, d fs.DirEntry, err error)) error {
	return filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		rel, _ := filepath.Rel(f.root, p)
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			fn(p, rel, nil, walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != base && f.Ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), noteExt) {
			return nil
		}
		fn(p, rel, d, nil)
		return nil
	})
}

// Load enumerates the vault into a Corpus. Unreadable files are recorded in
// Corpus.Unreadable and skipped; undecodable bytes are dropped from the text.
func (f *FS) Load() (*models.Corpus, error) {
	var (
		notes      []models.Note
		unreadable []string
	)
	err := f.walk(f.root, func(abs, rel string, d fs.DirEntry, err error) {
		if err != nil {
			unreadable = append(unreadable, rel)
			return
		}
		info, err := d.Info()
		if err != nil {
			unreadable = append(unreadable, rel)
			return
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			unreadable = append(unreadable, rel)
			return
		}
		notes = append(notes, models.Note{
			ID:         NoteID(rel),
			Path:       filepath.ToSlash(rel),
			Content:    DecodeText(data),
			ModifiedAt: info.ModTime(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}

	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: read root: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}

	c := models.NewCorpus(f.root, notes, dirs)
	c.Unreadable = unreadable
	return c, nil
}

// List walks dir (relative to root) and returns metadata for every .md file.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = f.walk(base, func(_, rel string, d fs.DirEntry, err error) {
		if err != nil {
			return
		}
		info, err := d.Info()
		if err != nil {
			return
		}
		out = append(out, models.NoteMetadata{
			ID:         NoteID(rel),
			Path:       filepath.ToSlash(rel),
			ModifiedAt: info.ModTime(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Stat returns metadata for a vault file.
func (f *FS) Stat(path string) (models.NoteMetadata, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.NoteMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NoteMetadata{}, fmt.Errorf("storage: stat %s: %w", path, apperr.ErrNotFound)
		}
		return models.NoteMetadata{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	rel, _ := filepath.Rel(f.root, abs)
	return models.NoteMetadata{
		ID:         NoteID(rel),
		Path:       filepath.ToSlash(rel),
		ModifiedAt: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content below the vault root.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	return WriteFileAtomic(abs, content, 0o644)
}

// NoteID derives the note id (file stem) from a path.
func NoteID(path string) string {
	base := filepath.Base(filepath.FromSlash(path))
	return strings.TrimSuffix(base, noteExt)
}

// DecodeText converts raw file bytes to text, dropping invalid UTF-8
// sequences and a leading byte-order mark.
func DecodeText(data []byte) string {
	s := strings.ToValidUTF8(string(data), "")
	return strings.TrimPrefix(s, "\ufeff")
}
