package cache

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/forgeline/forgeline/logging"
)

const (
	// DefaultMaxEntries bounds the cache when no limit is configured.
	DefaultMaxEntries = 100
	// DefaultTTL applies to entries stored without an explicit TTL.
	DefaultTTL = 24 * time.Hour
)

// ResponseCache is a bounded LRU cache for model responses with per-entry TTL
// and optional JSON persistence. A single mutex serializes all public
// operations, so Get/Put from different goroutines are linearizable.
type ResponseCache struct {
	mu         sync.Mutex
	maxEntries int
	defaultTTL time.Duration
	items      map[string]*lruItem
	head       *lruItem // most recently used side
	tail       *lruItem // least recently used side
	stats      Stats
	onEvicted  EvictionCallback

	persistPath string
	dirty       bool

	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *logging.Logger
}

// lruItem is a node in the recency list. head.next is most recent, tail.prev
// is least recent; among untouched entries insertion order decides eviction.
type lruItem struct {
	entry *Entry
	size  int64
	prev  *lruItem
	next  *lruItem
}

// Options configures a ResponseCache.
type Options struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	PersistPath     string // empty disables persistence
	AutoPersist     bool
	PersistInterval time.Duration
	OnEvicted       EvictionCallback
	Logger          *logging.Logger
}

// NewResponseCache creates a cache and, when a persist path is configured,
// loads the previous snapshot from disk. A corrupt or missing snapshot is
// logged and treated as an empty cache.
func NewResponseCache(opts Options) *ResponseCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobalLogger()
	}

	c := &ResponseCache{
		maxEntries:  opts.MaxEntries,
		defaultTTL:  opts.DefaultTTL,
		items:       make(map[string]*lruItem),
		onEvicted:   opts.OnEvicted,
		persistPath: opts.PersistPath,
		stopCh:      make(chan struct{}),
		logger:      opts.Logger,
	}

	// Sentinel nodes
	c.head = &lruItem{}
	c.tail = &lruItem{}
	c.head.next = c.tail
	c.tail.prev = c.head

	if c.persistPath != "" {
		c.load()
	}

	if opts.AutoPersist && c.persistPath != "" {
		interval := opts.PersistInterval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go c.autoPersist(interval)
	}

	return c
}

// Get retrieves a value and promotes it to most recently used. An expired
// entry is removed as a side effect and counts as both a miss and an expiry.
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		c.stats.UpdateHitRate()
		return nil, false
	}

	if item.entry.IsExpired() {
		c.removeItem(item)
		c.stats.ExpiredEntries++
		c.stats.Misses++
		c.stats.UpdateHitRate()
		c.dirty = true
		return nil, false
	}

	now := time.Now()
	item.entry.AccessCount++
	item.entry.LastAccessed = &now
	c.moveToFront(item)

	c.stats.Hits++
	c.stats.UpdateHitRate()
	return item.entry.Value, true
}

// Put inserts or overwrites a value with the default TTL.
func (c *ResponseCache) Put(key string, value interface{}) {
	c.PutWithTTL(key, value, c.defaultTTL)
}

// PutWithTTL inserts or overwrites a value. When the insertion pushes the
// entry count past the bound, least-recently-used entries are evicted one at
// a time until the cache fits. Overwriting an existing key is not an eviction.
func (c *ResponseCache) PutWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	size := estimateSize(value)

	if item, exists := c.items[key]; exists {
		c.stats.TotalSizeBytes += size - item.size
		item.entry.Value = value
		item.entry.CreatedAt = now
		item.entry.ExpiresAt = now.Add(ttl)
		item.size = size
		c.moveToFront(item)
		c.dirty = true
		return
	}

	item := &lruItem{
		entry: &Entry{
			Key:       key,
			Value:     value,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		},
		size: size,
	}
	c.items[key] = item
	c.pushFront(item)
	c.stats.TotalEntries = len(c.items)
	c.stats.TotalSizeBytes += size

	for len(c.items) > c.maxEntries {
		c.evictOldest()
	}
	c.stats.UpdateFillRate(c.maxEntries)
	c.dirty = true
}

// Delete removes an entry, reporting whether it existed.
func (c *ResponseCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		return false
	}
	c.removeItem(item)
	c.dirty = true
	return true
}

// Clear removes all entries and returns how many were dropped. Accumulated
// counters are kept; gauges reset.
func (c *ResponseCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.items)
	c.items = make(map[string]*lruItem)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.stats.TotalEntries = 0
	c.stats.TotalSizeBytes = 0
	c.stats.UpdateFillRate(c.maxEntries)
	if count > 0 {
		c.dirty = true
	}
	return count
}

// CleanupExpired sweeps the whole cache, removing expired entries without
// touching the recency order of survivors. Returns the number removed.
func (c *ResponseCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for item := c.head.next; item != c.tail; {
		next := item.next
		if item.entry.IsExpired() {
			c.removeItem(item)
			c.stats.ExpiredEntries++
			removed++
		}
		item = next
	}
	if removed > 0 {
		c.dirty = true
	}
	return removed
}

// Len returns the current entry count.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache metrics.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.TotalEntries = len(c.items)
	stats.UpdateHitRate()
	stats.UpdateFillRate(c.maxEntries)
	return stats
}

// Close stops the auto-persist loop and flushes a final snapshot when the
// cache is dirty. Safe to call more than once.
func (c *ResponseCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	if c.persistPath == "" {
		return nil
	}
	return c.Persist(false)
}

func (c *ResponseCache) autoPersist(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Persist(false); err != nil {
				c.logger.Warnf("auto-persist failed: %v", err)
			}
		case <-c.stopCh:
			return
		}
	}
}

// evictOldest drops the entry at the LRU end. Caller holds the lock.
func (c *ResponseCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	key, entry := oldest.entry.Key, oldest.entry
	c.removeItem(oldest)
	c.stats.Evictions++
	if c.onEvicted != nil {
		c.onEvicted(key, entry)
	}
}

// removeItem unlinks an item and updates the gauges. Caller holds the lock.
func (c *ResponseCache) removeItem(item *lruItem) {
	item.prev.next = item.next
	item.next.prev = item.prev
	item.prev = nil
	item.next = nil
	delete(c.items, item.entry.Key)
	c.stats.TotalEntries = len(c.items)
	c.stats.TotalSizeBytes -= item.size
	c.stats.UpdateFillRate(c.maxEntries)
}

func (c *ResponseCache) pushFront(item *lruItem) {
	item.next = c.head.next
	item.prev = c.head
	c.head.next.prev = item
	c.head.next = item
}

func (c *ResponseCache) moveToFront(item *lruItem) {
	item.prev.next = item.next
	item.next.prev = item.prev
	c.pushFront(item)
}

// estimateSize approximates the serialized footprint of a value.
func estimateSize(value interface{}) int64 {
	switch v := value.(type) {
	case string:
		return int64(len(v))
	case []byte:
		return int64(len(v))
	}
	if data, err := sonic.Marshal(value); err == nil {
		return int64(len(data))
	}
	return 64
}
