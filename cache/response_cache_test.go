package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/forgeline/forgeline/errors"
)

func newTestCache(maxEntries int) *ResponseCache {
	return NewResponseCache(Options{
		MaxEntries: maxEntries,
		DefaultTTL: time.Hour,
	})
}

func TestResponseCache_PutAndGet(t *testing.T) {
	c := newTestCache(10)

	c.Put("key1", "value1")

	value, ok := c.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", value)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestResponseCache_LRUEviction(t *testing.T) {
	c := newTestCache(3)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Inserting a fourth key evicts exactly the least-recently-touched one.
	c.Put("d", 4)

	_, ok := c.Get("a")
	assert.False(t, ok)
	for _, key := range []string{"b", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestResponseCache_GetProtectsFromEviction(t *testing.T) {
	c := newTestCache(2)

	c.Put("a", 1)
	c.Put("b", 2)

	// Touching "a" makes "b" the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)

	value, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)
	value, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, value)
}

func TestResponseCache_OverwriteIsNotEviction(t *testing.T) {
	c := newTestCache(2)

	c.Put("a", 1)
	c.Put("a", 2)

	value, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, int64(0), c.Stats().Evictions)
	assert.Equal(t, 1, c.Len())
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	c := newTestCache(10)

	c.PutWithTTL("short", "value", 100*time.Millisecond)

	value, ok := c.Get("short")
	require.True(t, ok)
	assert.Equal(t, "value", value)

	time.Sleep(150 * time.Millisecond)

	_, ok = c.Get("short")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.ExpiredEntries)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0, stats.TotalEntries)

	// The expired hit was removed; looking it up again is a plain miss.
	_, ok = c.Get("short")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().ExpiredEntries)
}

func TestResponseCache_HitRate(t *testing.T) {
	c := newTestCache(10)

	// 0/0 lookups
	assert.Equal(t, 0.0, c.Stats().HitRate)

	c.Put("a", 1)
	for i := 0; i < 3; i++ {
		c.Get("a")
	}
	c.Get("missing")

	assert.Equal(t, 0.75, c.Stats().HitRate)
}

func TestResponseCache_FillRate(t *testing.T) {
	c := newTestCache(4)

	assert.Equal(t, 0.0, c.Stats().FillRate)

	c.Put("a", 1)
	c.Put("b", 2)

	assert.Equal(t, 0.5, c.Stats().FillRate)
}

func TestResponseCache_DeleteAndClear(t *testing.T) {
	c := newTestCache(10)

	c.Put("a", 1)
	c.Put("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 1, c.Len())

	c.Put("c", 3)
	assert.Equal(t, 2, c.Clear())
	assert.Equal(t, 0, c.Len())
}

func TestResponseCache_CleanupExpired(t *testing.T) {
	c := newTestCache(10)

	c.PutWithTTL("gone1", 1, 50*time.Millisecond)
	c.PutWithTTL("gone2", 2, 50*time.Millisecond)
	c.Put("kept", 3)

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 2, c.CleanupExpired())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(2), c.Stats().ExpiredEntries)

	_, ok := c.Get("kept")
	assert.True(t, ok)
}

func TestResponseCache_ConcreteScenario(t *testing.T) {
	// max_size=2: put a, put b, get a, put c => b evicted, a and c survive.
	c := newTestCache(2)

	c.Put("a", 1)
	c.Put("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Put("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)

	value, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value)

	value, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, value)
}

func TestResponseCache_PersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.json")

	c := NewResponseCache(Options{MaxEntries: 10, DefaultTTL: time.Hour, PersistPath: path})
	c.Put("k1", "v1")
	c.Put("k2", "v2")
	c.PutWithTTL("expired", "dead", 10*time.Millisecond)
	c.Get("k1")
	c.Get("missing")

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Persist(false))

	// Second persist without changes is a no-op.
	require.NoError(t, c.Persist(false))

	reloaded := NewResponseCache(Options{MaxEntries: 10, DefaultTTL: time.Hour, PersistPath: path})

	value, ok := reloaded.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", value)
	value, ok = reloaded.Get("k2")
	require.True(t, ok)
	assert.Equal(t, "v2", value)

	// The entry expired before persisting is dropped on load.
	_, ok = reloaded.Get("expired")
	assert.False(t, ok)
	assert.Equal(t, 2, reloaded.Len())

	// Persisted counters folded into the fresh stats (plus this test's lookups).
	stats := reloaded.Stats()
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
	assert.GreaterOrEqual(t, stats.Misses, int64(1))
}

func TestResponseCache_SnapshotSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.json")

	c := NewResponseCache(Options{MaxEntries: 10, DefaultTTL: time.Hour, PersistPath: path})
	c.Put("k1", "v1")
	require.NoError(t, c.Persist(true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &snap))
	assert.Equal(t, "1.0", snap["version"])
	assert.Contains(t, snap, "created")
	assert.Contains(t, snap, "stats")

	entries, ok := snap["entries"].(map[string]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	for _, e := range entries {
		entry := e.(map[string]interface{})
		assert.Equal(t, "k1", entry["key"])
		assert.Equal(t, "v1", entry["value"])
		assert.Contains(t, entry, "created_at")
		assert.Contains(t, entry, "expires_at")
		assert.Contains(t, entry, "access_count")
	}
}

func TestResponseCache_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c := NewResponseCache(Options{MaxEntries: 10, DefaultTTL: time.Hour, PersistPath: path})
	assert.Equal(t, 0, c.Len())
}

func TestResponseCache_LoadSkipsBadEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.json")

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	content := fmt.Sprintf(`{
		"version": "1.0",
		"unknown_field": true,
		"entries": {
			"good": {"key": "good", "value": 42, "created_at": %q, "expires_at": %q},
			"bad": {"key": "bad", "expires_at": "not-a-time"}
		}
	}`, time.Now().Format(time.RFC3339), future)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := NewResponseCache(Options{MaxEntries: 10, DefaultTTL: time.Hour, PersistPath: path})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("good")
	assert.True(t, ok)

	// Missing stats default to zero counters, so only this test's lookups count.
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestResponseCache_RotateFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.json")

	c := NewResponseCache(Options{MaxEntries: 10, DefaultTTL: time.Hour, PersistPath: path})
	c.Put("k", "v")
	require.NoError(t, c.Persist(true))

	require.NoError(t, c.RotateFiles(3))
	assert.NoFileExists(t, path)
	assert.FileExists(t, path+".1")

	c.Put("k2", "v2")
	require.NoError(t, c.Persist(true))
	require.NoError(t, c.RotateFiles(3))
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
}

func TestResponseCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%20)
				c.Put(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
	stats := c.Stats()
	assert.Equal(t, int64(1000), stats.Hits+stats.Misses)
}

func TestResponseCache_PersistErrorKeepsState(t *testing.T) {
	dir := t.TempDir()
	// Point the snapshot inside a path occupied by a regular file so MkdirAll fails.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	c := NewResponseCache(Options{
		MaxEntries:  10,
		DefaultTTL:  time.Hour,
		PersistPath: filepath.Join(blocker, "responses.json"),
	})
	c.Put("k", "v")

	err := c.Persist(true)
	require.Error(t, err)
	assert.True(t, appErrors.IsCacheError(err))

	value, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}
