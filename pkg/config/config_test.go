package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be positive")
	}
	return nil
}

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	s := &sample{Count: 7}
	if err := Load(write(t, "name: ${SAMPLE_NAME}\n"), s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "vault" || s.Count != 7 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	err := Load(write(t, "count: -1\n"), &sample{})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	s := &sample{Name: "default"}
	err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), s)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if s.Name != "default" {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadOptional_MissingFileInvalidDefaults(t *testing.T) {
	err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &sample{Count: -2})
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
