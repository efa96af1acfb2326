// Package cache stores per-file analysis payloads keyed by content identity.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// Cache provides file-based caching for per-file analysis results. A cached
// entry is valid when the source file's size and mtime are unchanged, or,
// failing that, when its content hash still matches. A failed write disables
// the cache for the rest of the run.
type Cache struct {
	dir     string
	mu      sync.Mutex
	enabled bool
}

// Entry represents one cached analysis payload.
type Entry struct {
	Hash    string    `json:"hash"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Data    []byte    `json:"data"`
}

// New creates a cache rooted at dir.
func New(dir string, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, enabled: true}, nil
}

// Enabled reports whether the cache is still accepting reads and writes.
func (c *Cache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get returns the cached payload for a source file if it is still current.
// The size/mtime precheck avoids hashing unchanged files; a stat mismatch
// falls back to comparing content hashes, so touched-but-identical files
// still hit.
func (c *Cache) Get(path string, source []byte) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	raw, err := os.ReadFile(c.keyPath(path))
	if err != nil {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}

	if info, err := os.Stat(path); err == nil {
		if info.Size() == entry.Size && info.ModTime().Equal(entry.ModTime) {
			return entry.Data, true
		}
	}
	if HashBytes(source) == entry.Hash {
		return entry.Data, true
	}
	return nil, false
}

// Set stores the payload for a source file. Write failures disable the cache
// for the remainder of the run rather than failing the analysis.
func (c *Cache) Set(path string, source, data []byte) {
	if !c.Enabled() {
		return
	}

	entry := Entry{
		Hash: HashBytes(source),
		Size: int64(len(source)),
		Data: data,
	}
	if info, err := os.Stat(path); err == nil {
		entry.Size = info.Size()
		entry.ModTime = info.ModTime()
	}

	raw, err := json.Marshal(entry)
	if err == nil {
		err = os.WriteFile(c.keyPath(path), raw, 0600)
	}
	if err != nil {
		c.mu.Lock()
		c.enabled = false
		c.mu.Unlock()
	}
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a source path to a cache file path.
func (c *Cache) keyPath(path string) string {
	hash := blake3.Sum256([]byte(path))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}
