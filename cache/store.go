package cache

import (
	"path/filepath"
	"time"

	"github.com/forgeline/forgeline/logging"
)

// StoreConfig configures the two-tier response store.
type StoreConfig struct {
	Dir             string // base directory for snapshot and archive
	MaxEntries      int
	DefaultTTL      time.Duration
	AutoPersist     bool
	PersistInterval time.Duration
	ArchiveEnabled  bool
}

// Store combines the in-memory LRU cache with an optional Badger archive.
// Entries evicted from memory while still valid spill to the archive; a
// memory miss consults the archive and promotes the hit back.
type Store struct {
	cache   *ResponseCache
	archive *Archive
	logger  *logging.Logger
}

// NewStore builds the store. Persistence lives under cfg.Dir; an empty Dir
// yields a purely in-memory store with the archive disabled.
func NewStore(cfg StoreConfig, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Store{logger: logger}

	if cfg.ArchiveEnabled && cfg.Dir != "" {
		archive, err := NewArchive(filepath.Join(cfg.Dir, "archive"), logger)
		if err != nil {
			return nil, err
		}
		s.archive = archive
	}

	opts := Options{
		MaxEntries:      cfg.MaxEntries,
		DefaultTTL:      cfg.DefaultTTL,
		AutoPersist:     cfg.AutoPersist,
		PersistInterval: cfg.PersistInterval,
		Logger:          logger,
	}
	if cfg.Dir != "" {
		opts.PersistPath = filepath.Join(cfg.Dir, "responses.json")
	}
	if s.archive != nil {
		archive := s.archive
		opts.OnEvicted = func(key string, entry *Entry) {
			if err := archive.Put(key, entry); err != nil {
				logger.Warnf("failed to archive evicted entry %s: %v", key, err)
			}
		}
	}
	s.cache = NewResponseCache(opts)

	return s, nil
}

// Get looks up a response, first in memory, then in the archive. Archive hits
// are promoted into the memory tier with their remaining TTL.
func (s *Store) Get(key string) (interface{}, bool) {
	if value, ok := s.cache.Get(key); ok {
		return value, true
	}
	if s.archive == nil {
		return nil, false
	}

	entry, ok := s.archive.Get(key)
	if !ok {
		return nil, false
	}
	s.cache.PutWithTTL(key, entry.Value, entry.RemainingTTL())
	return entry.Value, true
}

// Put stores a response with the default TTL.
func (s *Store) Put(key string, value interface{}) {
	s.cache.Put(key, value)
}

// PutWithTTL stores a response with an explicit TTL.
func (s *Store) PutWithTTL(key string, value interface{}, ttl time.Duration) {
	s.cache.PutWithTTL(key, value, ttl)
}

// Delete removes a response from both tiers.
func (s *Store) Delete(key string) bool {
	deleted := s.cache.Delete(key)
	if s.archive != nil {
		if err := s.archive.Delete(key); err != nil {
			s.logger.Warnf("failed to delete archived entry %s: %v", key, err)
		}
	}
	return deleted
}

// Clear empties both tiers and returns the number of in-memory entries dropped.
func (s *Store) Clear() int {
	count := s.cache.Clear()
	if s.archive != nil {
		if err := s.archive.Clear(); err != nil {
			s.logger.Warnf("failed to clear archive: %v", err)
		}
	}
	return count
}

// CleanupExpired sweeps expired entries from the memory tier. The archive
// expires entries on its own.
func (s *Store) CleanupExpired() int {
	return s.cache.CleanupExpired()
}

// Persist flushes the memory tier snapshot to disk.
func (s *Store) Persist(force bool) error {
	return s.cache.Persist(force)
}

// RotateFiles rotates the snapshot backups of the memory tier.
func (s *Store) RotateFiles(backupCount int) error {
	return s.cache.RotateFiles(backupCount)
}

// Stats reports memory-tier metrics plus the archive footprint.
func (s *Store) Stats() Stats {
	stats := s.cache.Stats()
	if s.archive != nil {
		stats.TotalSizeBytes += s.archive.Size()
	}
	return stats
}

// Close flushes the snapshot and releases the archive.
func (s *Store) Close() error {
	err := s.cache.Close()
	if s.archive != nil {
		if closeErr := s.archive.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
