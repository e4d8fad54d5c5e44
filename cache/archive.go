package cache

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	badger "github.com/dgraph-io/badger/v3"

	"github.com/forgeline/forgeline/logging"
)

// Archive is a disk-backed spill tier for responses evicted from the LRU
// cache while still unexpired. Badger handles expiry natively, so archived
// entries keep their remaining TTL.
type Archive struct {
	db     *badger.DB
	logger *logging.Logger
}

// archivedEntry is the value stored per key; access metadata restarts when an
// entry is promoted back into the memory tier.
type archivedEntry struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// NewArchive opens (or creates) a Badger archive at dir.
func NewArchive(dir string, logger *logging.Logger) (*Archive, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logger is too chatty for a cache tier

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache archive at %s: %w", dir, err)
	}

	return &Archive{db: db, logger: logger}, nil
}

// Put stores an evicted entry with its remaining TTL. Expired entries are
// dropped silently.
func (a *Archive) Put(key string, entry *Entry) error {
	ttl := entry.RemainingTTL()
	if ttl <= 0 {
		return nil
	}

	data, err := sonic.Marshal(archivedEntry{
		Key:       entry.Key,
		Value:     entry.Value,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize archive entry: %w", err)
	}

	return a.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// Get retrieves an archived entry, removing it so the caller can promote it
// back into the memory tier.
func (a *Archive) Get(key string) (*Entry, bool) {
	var stored archivedEntry
	found := false

	err := a.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		if err := item.Value(func(val []byte) error {
			return sonic.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		found = true
		return txn.Delete([]byte(key))
	})
	if err != nil {
		a.logger.Warnf("archive read failed for %s: %v", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	entry := &Entry{
		Key:       stored.Key,
		Value:     stored.Value,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	if entry.Key == "" {
		entry.Key = key
	}
	if entry.IsExpired() {
		return nil, false
	}
	return entry, true
}

// Delete removes an archived entry if present.
func (a *Archive) Delete(key string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops all archived entries.
func (a *Archive) Clear() error {
	return a.db.DropAll()
}

// Size returns the on-disk footprint (LSM plus value log) in bytes.
func (a *Archive) Size() int64 {
	lsm, vlog := a.db.Size()
	return lsm + vlog
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
