package cache

import (
	"time"
)

// Stats provides metrics about cache performance. Hits, Misses, Evictions and
// ExpiredEntries accumulate monotonically; TotalEntries and TotalSizeBytes
// are point-in-time gauges.
type Stats struct {
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Evictions      int64   `json:"evictions"`
	ExpiredEntries int64   `json:"expired_entries"`
	TotalEntries   int     `json:"total_entries"`
	TotalSizeBytes int64   `json:"total_size_bytes"`
	HitRate        float64 `json:"hit_rate"`
	FillRate       float64 `json:"fill_rate"`
}

// UpdateHitRate recalculates the hit rate, 0.0 when no lookups happened yet.
func (s *Stats) UpdateHitRate() {
	total := s.Hits + s.Misses
	if total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	} else {
		s.HitRate = 0.0
	}
}

// UpdateFillRate recalculates the fill rate, 0.0 for an unbounded cache.
func (s *Stats) UpdateFillRate(maxSize int) {
	if maxSize > 0 {
		s.FillRate = float64(s.TotalEntries) / float64(maxSize)
	} else {
		s.FillRate = 0.0
	}
}

// Entry represents a cache entry with access metadata.
type Entry struct {
	Key          string      `json:"key"`
	Value        interface{} `json:"value"`
	CreatedAt    time.Time   `json:"created_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	AccessCount  uint64      `json:"access_count"`
	LastAccessed *time.Time  `json:"last_accessed"`
}

// IsExpired reports whether the entry's TTL has elapsed.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// RemainingTTL returns how long the entry stays valid, 0 when already expired.
func (e *Entry) RemainingTTL() time.Duration {
	remaining := time.Until(e.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EvictionCallback is called when an entry is evicted to make room. It runs
// with the cache lock held, so it must not call back into the cache.
type EvictionCallback func(key string, entry *Entry)
