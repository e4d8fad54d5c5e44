package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	appErrors "github.com/forgeline/forgeline/errors"
)

// SnapshotVersion identifies the on-disk cache schema.
const SnapshotVersion = "1.0"

// snapshot is the persisted cache file layout. Unknown fields in older or
// newer files are ignored on load.
type snapshot struct {
	Version string            `json:"version"`
	Created time.Time         `json:"created"`
	Stats   Stats             `json:"stats"`
	Entries map[string]*Entry `json:"entries"`
}

// rawSnapshot defers entry decoding so one malformed entry does not discard
// the rest of the file.
type rawSnapshot struct {
	Version string                     `json:"version"`
	Stats   Stats                      `json:"stats"`
	Entries map[string]json.RawMessage `json:"entries"`
}

// Persist writes a snapshot of the cache to disk when it has unsaved changes,
// or unconditionally when force is set. The write goes to a temp file first
// and is renamed into place, so readers never observe a partial file. I/O
// failures surface as a CacheError and leave the in-memory state untouched.
func (c *ResponseCache) Persist(force bool) error {
	if c.persistPath == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty && !force {
		return nil
	}

	snap := snapshot{
		Version: SnapshotVersion,
		Created: time.Now(),
		Stats:   c.stats,
		Entries: make(map[string]*Entry, len(c.items)),
	}
	snap.Stats.TotalEntries = len(c.items)
	for key, item := range c.items {
		snap.Entries[key] = item.entry
	}

	data, err := sonic.MarshalIndent(snap, "", "  ")
	if err != nil {
		return &appErrors.CacheError{Op: "persist", Path: c.persistPath, Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(c.persistPath), 0755); err != nil {
		return &appErrors.CacheError{Op: "persist", Path: c.persistPath, Cause: err}
	}

	tmpFile := c.persistPath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return &appErrors.CacheError{Op: "persist", Path: c.persistPath, Cause: err}
	}

	// Atomic rename
	if err := os.Rename(tmpFile, c.persistPath); err != nil {
		os.Remove(tmpFile)
		return &appErrors.CacheError{Op: "persist", Path: c.persistPath, Cause: err}
	}

	c.dirty = false
	return nil
}

// load restores the previous snapshot at construction time. Entries that fail
// to parse or are already expired are skipped; persisted counters fold into
// the fresh stats. Called before the cache is shared, so no lock is needed.
func (c *ResponseCache) load() {
	data, err := os.ReadFile(c.persistPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warnf("failed to read cache file %s: %v", c.persistPath, err)
		}
		return
	}

	var raw rawSnapshot
	if err := sonic.Unmarshal(data, &raw); err != nil {
		c.logger.Warnf("corrupt cache file %s, starting empty: %v", c.persistPath, err)
		return
	}

	c.stats.Hits = raw.Stats.Hits
	c.stats.Misses = raw.Stats.Misses
	c.stats.Evictions = raw.Stats.Evictions
	c.stats.ExpiredEntries = raw.Stats.ExpiredEntries

	loaded, skipped := 0, 0
	for key, rawEntry := range raw.Entries {
		var entry Entry
		if err := sonic.Unmarshal(rawEntry, &entry); err != nil {
			c.logger.Warnf("skipping unreadable cache entry %s: %v", key, err)
			skipped++
			continue
		}
		if entry.IsExpired() {
			skipped++
			continue
		}
		if entry.Key == "" {
			entry.Key = key
		}

		item := &lruItem{entry: &entry, size: estimateSize(entry.Value)}
		c.items[key] = item
		c.pushFront(item)
		c.stats.TotalSizeBytes += item.size

		if len(c.items) > c.maxEntries {
			c.evictOldest()
		}
		loaded++
	}

	c.stats.TotalEntries = len(c.items)
	c.stats.UpdateFillRate(c.maxEntries)
	if loaded > 0 || skipped > 0 {
		c.logger.Infof("cache loaded from %s: %d entries, %d skipped", c.persistPath, loaded, skipped)
	}
}

// RotateFiles bounds on-disk growth by shifting numbered backups up one slot
// and moving the current cache file to ".1". The oldest backup falls off.
func (c *ResponseCache) RotateFiles(backupCount int) error {
	if c.persistPath == "" || backupCount < 1 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := backupCount - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", c.persistPath, i)
		dst := fmt.Sprintf("%s.%d", c.persistPath, i+1)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			return &appErrors.CacheError{Op: "rotate", Path: src, Cause: err}
		}
	}

	if _, err := os.Stat(c.persistPath); err != nil {
		return nil
	}
	if err := os.Rename(c.persistPath, c.persistPath+".1"); err != nil {
		return &appErrors.CacheError{Op: "rotate", Path: c.persistPath, Cause: err}
	}
	return nil
}
