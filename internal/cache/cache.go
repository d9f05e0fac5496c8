// Package cache provides a content-hash keyed file cache for model
// responses. Identical prompts short-circuit the network call. The cache is
// bounded: when it grows past the configured entry count the oldest entries
// are evicted, and it is cleared wholesale on index rebuild so stale answers
// do not outlive the documents they were generated from.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 1000

type entry struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Cache is a file-backed prompt cache. Writes are idempotent, so concurrent
// queries racing to store the same entry are harmless.
type Cache struct {
	dir        string
	maxEntries int

	mu sync.Mutex
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string, maxEntries int) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, maxEntries: maxEntries}, nil
}

// Key returns the cache key for a prompt.
func Key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached content for an exact prompt, if present.
func (c *Cache) Get(prompt string) (string, bool) {
	data, err := os.ReadFile(c.path(prompt))
	if err != nil {
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	return e.Content, true
}

// Set stores content under the prompt's hash and evicts the oldest entries
// if the cache has grown past its bound.
func (c *Cache) Set(prompt, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(entry{Content: content, Timestamp: time.Now().Unix()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path(prompt), data, 0o644); err != nil {
		return err
	}

	return c.evict()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries())
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range c.entries() {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) path(prompt string) string {
	return filepath.Join(c.dir, Key(prompt)+".json")
}

func (c *Cache) entries() []string {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range dirEntries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	return names
}

// evict removes the oldest entries until the cache is within bounds.
// Caller holds the lock.
func (c *Cache) evict() error {
	names := c.entries()
	if len(names) <= c.maxEntries {
		return nil
	}

	type aged struct {
		name    string
		modTime time.Time
	}
	infos := make([]aged, 0, len(names))
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(c.dir, name))
		if err != nil {
			continue
		}
		infos = append(infos, aged{name: name, modTime: fi.ModTime()})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].modTime.Before(infos[j].modTime)
	})

	for i := 0; i < len(infos)-c.maxEntries; i++ {
		if err := os.Remove(filepath.Join(c.dir, infos[i].name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
