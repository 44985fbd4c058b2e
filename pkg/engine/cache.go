package engine

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/peterbourgon/diskv/v3"

	"tableflip.dev/meshctl/pkg/status"
)

const cacheKey = "last-good"

// Cache persists the last successful poll's snapshot and roster so a fresh
// process can show stale-but-known state before its first poll completes.
type Cache struct {
	d *diskv.Diskv
}

// NewCache opens a cache rooted at the given directory.
func NewCache(dir string) *Cache {
	return &Cache{d: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

type cachedState struct {
	Status status.Snapshot `json:"status"`
	Roster status.Roster   `json:"roster"`
}

// Save stores the snapshot and roster, replacing any previous entry.
func (c *Cache) Save(snap status.Snapshot, roster status.Roster) error {
	data, err := json.Marshal(cachedState{Status: snap, Roster: roster})
	if err != nil {
		return err
	}
	return c.d.Write(cacheKey, data)
}

// Load returns the cached snapshot and roster. A missing or unreadable cache
// yields ok=false; the cache is best-effort and never fails startup.
func (c *Cache) Load() (status.Snapshot, status.Roster, bool) {
	data, err := c.d.Read(cacheKey)
	if err != nil {
		return status.Snapshot{}, nil, false
	}
	var cached cachedState
	if err := json.Unmarshal(data, &cached); err != nil {
		return status.Snapshot{}, nil, false
	}
	return cached.Status, cached.Roster, true
}

// Clear removes the cached entry.
func (c *Cache) Clear() error {
	err := c.d.Erase(cacheKey)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
