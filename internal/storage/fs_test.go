package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/vaultlens/internal/apperr"
)

func tempVault(t *testing.T, ignore ...string) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, ignore)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempVault(t)
	_, err := s.Read("nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoad(t *testing.T) {
	s := tempVault(t, ".obsidian", "scripts")
	_ = s.Write("Home.md", []byte("[[Projects]]"))
	_ = s.Write("Projects/Plan.md", []byte("plan"))
	_ = s.Write("Projects/deep/Idea.md", []byte("idea"))
	_ = s.Write(".obsidian/config.md", []byte("ignored"))
	_ = s.Write("Projects/scripts/tool.md", []byte("ignored at depth"))
	_ = s.Write("readme.txt", []byte("not md"))

	c, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	for _, id := range []string{"Home", "Plan", "Idea"} {
		if !c.HasID(id) {
			t.Errorf("missing note %q", id)
		}
	}
	if c.HasID("config") || c.HasID("tool") {
		t.Error("ignored directories were scanned")
	}
	n, _ := c.ByID("Idea")
	if n.Path != "Projects/deep/Idea.md" {
		t.Errorf("path = %q", n.Path)
	}
	if n.Content != "idea" {
		t.Errorf("content = %q", n.Content)
	}
	if n.ModifiedAt.IsZero() {
		t.Error("ModifiedAt not set")
	}
	if !c.IsDir("Projects") || !c.IsDir(".obsidian") {
		t.Errorf("dirs = %v", c.Dirs)
	}
	if c.IsDir("deep") {
		t.Error("nested directory reported as top-level")
	}
}

func TestLoadInvalidUTF8(t *testing.T) {
	s := tempVault(t)
	raw := append([]byte("\xef\xbb\xbfgood "), 0xff, 0xfe)
	raw = append(raw, []byte(" text")...)
	_ = s.Write("bad.md", raw)

	c, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n, ok := c.ByID("bad")
	if !ok {
		t.Fatal("note with invalid bytes was dropped")
	}
	if n.Content != "good  text" {
		t.Errorf("content = %q", n.Content)
	}
}

func TestLoadDuplicateIDs(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a/Same.md", []byte("first"))
	_ = s.Write("b/Same.md", []byte("second"))

	c, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n, _ := c.ByID("Same")
	if n.Path != "a/Same.md" {
		t.Errorf("ByID path = %q, want a/Same.md", n.Path)
	}
	if dups := c.Duplicates(); len(dups) != 1 || dups[0] != "b/Same.md" {
		t.Errorf("duplicates = %v", dups)
	}
}

func TestLoadModTime(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("n.md", []byte("x"))
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(s.Root(), "n.md"), ts, ts); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	c, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	n, _ := c.ByID("n")
	if !n.ModifiedAt.Equal(ts) {
		t.Errorf("ModifiedAt = %v, want %v", n.ModifiedAt, ts)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	sub, err := s.List("sub")
	if err != nil {
		t.Fatalf("List sub: %v", err)
	}
	if len(sub) != 1 || sub[0].Path != "sub/b.md" || sub[0].ID != "b" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestWriteFileAtomicNoLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "index.json")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "two" {
		t.Errorf("content = %q, want two", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"), nil)
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "vaultlens-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name(), nil)
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestNoteID(t *testing.T) {
	if got := NoteID("a/b/My Note.md"); got != "My Note" {
		t.Errorf("NoteID = %q", got)
	}
}
