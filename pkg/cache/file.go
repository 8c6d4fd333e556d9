package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileCache keeps rendered scenes and artifacts on disk between CLI runs.
// Each kind lives in its own subdirectory so one can be dropped without
// the other:
//
//	<dir>/scene/ab/cdef….json
//	<dir>/artifact/12/3456….json
//
// A scene is cheap to rebuild from a layout while PNG and PDF artifacts are
// not, so "gantt cache clear --kind scene" is the common partial clear.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// fileEntry is the on-disk form of one cached render output. Key is kept
// so a hash collision reads as a miss instead of someone else's bytes.
type fileEntry struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get retrieves a value from the cache. Corrupt and expired entries are
// removed and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	entry, err := readEntry(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if entry.Key != key || entry.expired(time.Now()) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set stores a value in the cache.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{Key: key, Kind: KeyKind(key), Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// Write then rename so a concurrent Get never sees half an artifact.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// KindUsage summarises the live entries of one kind.
type KindUsage struct {
	Entries int
	Bytes   int64
}

// Usage walks the cache and reports live entries per kind. Expired and
// unreadable entries are pruned along the way.
func (c *FileCache) Usage() (map[string]KindUsage, error) {
	usage := make(map[string]KindUsage)
	now := time.Now()
	err := c.walk(nil, func(kind, path string, info fs.FileInfo) error {
		entry, err := readEntry(path)
		if err != nil || entry.expired(now) {
			_ = os.Remove(path)
			return nil
		}
		u := usage[kind]
		u.Entries++
		u.Bytes += info.Size()
		usage[kind] = u
		return nil
	})
	return usage, err
}

// Clear removes every entry of the given kinds, or of all kinds when none
// are named, and returns how many entries were removed.
func (c *FileCache) Clear(kinds ...string) (int, error) {
	removed := 0
	err := c.walk(kinds, func(_, path string, _ fs.FileInfo) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}
	if len(kinds) == 0 {
		kinds = []string{KindScene, KindArtifact, KindOther}
	}
	for _, kind := range kinds {
		if err := os.RemoveAll(filepath.Join(c.dir, kind)); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// walk calls fn for every entry file below the given kind directories.
func (c *FileCache) walk(kinds []string, fn func(kind, path string, info fs.FileInfo) error) error {
	if len(kinds) == 0 {
		kinds = []string{KindScene, KindArtifact, KindOther}
	}
	for _, kind := range kinds {
		root := filepath.Join(c.dir, kind)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".json" {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			return fn(kind, path, info)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// path maps a key to <dir>/<kind>/<hash[:2]>/<hash[2:]>.json.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, KeyKind(key), hash[:2], hash[2:]+".json")
}

func readEntry(path string) (fileEntry, error) {
	var entry fileEntry
	raw, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(raw, &entry)
	return entry, err
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
