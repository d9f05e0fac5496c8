package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "api_cache")
	_, err := New(dir, 10)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t, Key("same prompt"), Key("same prompt"))
	assert.NotEqual(t, Key("prompt a"), Key("prompt b"))
	assert.Len(t, Key("anything"), 64)
}

func TestGetSet(t *testing.T) {
	c, err := New(t.TempDir(), 10)
	require.NoError(t, err)

	_, ok := c.Get("unseen prompt")
	assert.False(t, ok)

	require.NoError(t, c.Set("what are the fees?", "Tuition is $5000."))

	content, ok := c.Get("what are the fees?")
	require.True(t, ok)
	assert.Equal(t, "Tuition is $5000.", content)

	_, ok = c.Get("what are the Fees?")
	assert.False(t, ok, "keys are exact, not case-folded")
}

func TestSet_Overwrites(t *testing.T) {
	c, err := New(t.TempDir(), 10)
	require.NoError(t, err)

	require.NoError(t, c.Set("prompt", "old"))
	require.NoError(t, c.Set("prompt", "new"))

	content, ok := c.Get("prompt")
	require.True(t, ok)
	assert.Equal(t, "new", content)
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c, err := New(t.TempDir(), 10)
	require.NoError(t, err)

	require.NoError(t, c.Set("one", "1"))
	require.NoError(t, c.Set("two", "2"))
	require.Equal(t, 2, c.Len())

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get("one")
	assert.False(t, ok)
}

func TestEviction_RemovesOldest(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 3)
	require.NoError(t, err)

	require.NoError(t, c.Set("first", "1"))
	// Age the first entry so mod times order deterministically.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, Key("first")+".json"), old, old))

	require.NoError(t, c.Set("second", "2"))
	require.NoError(t, c.Set("third", "3"))
	require.NoError(t, c.Set("fourth", "4"))

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("first")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = c.Get("fourth")
	assert.True(t, ok)
}

func TestGet_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 10)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, Key("bad")+".json"), []byte("{not json"), 0o644))

	_, ok := c.Get("bad")
	assert.False(t, ok)
}
