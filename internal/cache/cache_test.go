package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSource(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoundtrip(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "cache"), true)
	if err != nil {
		t.Fatal(err)
	}

	source := []byte("def f():\n    pass\n")
	path := writeSource(t, dir, "app.py", source)

	if _, ok := c.Get(path, source); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set(path, source, []byte("payload"))
	data, ok := c.Get(path, source)
	if !ok {
		t.Fatal("unchanged file should hit")
	}
	if string(data) != "payload" {
		t.Errorf("payload = %q", data)
	}
}

func TestChangedSourceMisses(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "cache"), true)
	if err != nil {
		t.Fatal(err)
	}

	source := []byte("x = 1\n")
	path := writeSource(t, dir, "app.py", source)
	c.Set(path, source, []byte("payload"))

	changed := []byte("x = 2000\n")
	writeSource(t, dir, "app.py", changed)
	if _, ok := c.Get(path, changed); ok {
		t.Error("changed content should miss")
	}
}

func TestTouchedButIdenticalHits(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "cache"), true)
	if err != nil {
		t.Fatal(err)
	}

	source := []byte("x = 1\n")
	path := writeSource(t, dir, "app.py", source)
	c.Set(path, source, []byte("payload"))

	// bump mtime, keep content
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(path, source); !ok {
		t.Error("identical content with a new mtime should hit via the hash")
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Enabled() {
		t.Error("cache built disabled should report disabled")
	}

	c.Set("app.py", []byte("x = 1\n"), []byte("payload"))
	if _, ok := c.Get("app.py", []byte("x = 1\n")); ok {
		t.Error("disabled cache should never hit")
	}
}

func TestWriteFailureDisables(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "cache"), true)
	if err != nil {
		t.Fatal(err)
	}

	// remove the cache directory so the write fails
	if err := os.RemoveAll(filepath.Join(dir, "cache")); err != nil {
		t.Fatal(err)
	}
	source := []byte("x = 1\n")
	path := writeSource(t, dir, "app.py", source)
	c.Set(path, source, []byte("payload"))

	if c.Enabled() {
		t.Error("failed write should disable the cache for the run")
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	c, err := New(cacheDir, true)
	if err != nil {
		t.Fatal(err)
	}

	source := []byte("x = 1\n")
	path := writeSource(t, dir, "app.py", source)
	c.Set(path, source, []byte("payload"))

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Error("Clear() should remove the cache directory")
	}
}

func TestHashBytes(t *testing.T) {
	a := HashBytes([]byte("hello"))
	b := HashBytes([]byte("hello"))
	if a != b {
		t.Error("same input should hash identically")
	}
	if a == HashBytes([]byte("world")) {
		t.Error("different input should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
