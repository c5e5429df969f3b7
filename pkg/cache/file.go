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

// FileCache is the CLI cache: one JSON file per entry under dir, sharded
// by the first two hex digits of the key's hash. Each file records the
// entry's [Kind] so the cache can be summarized per pipeline stage.
type FileCache struct {
	dir string
}

// NewFileCache opens (and creates) a file cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

type fileEntry struct {
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
	Data      []byte    `json:"data"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Get returns the entry for key. Expired and unreadable entries are
// removed and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok, err := c.read(c.path(key))
	if !ok || err != nil {
		return nil, false, err
	}
	return e.Data, true, nil
}

// Set writes the entry through a temporary file, so concurrent CLI runs
// never read a half-written graph or artifact.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := fileEntry{Kind: KindOf(key), Data: data}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// Clear removes every entry and the emptied shard directories, returning
// the number of entries removed.
func (c *FileCache) Clear(ctx context.Context) (int, error) {
	count := 0
	err := c.walk(ctx, func(path string) {
		if os.Remove(path) == nil {
			count++
		}
	})
	if shards, rerr := os.ReadDir(c.dir); rerr == nil {
		for _, s := range shards {
			if s.IsDir() {
				os.Remove(filepath.Join(c.dir, s.Name()))
			}
		}
	}
	return count, err
}

// Stats counts live entries per kind. Expired and unreadable entries are
// removed along the way and not counted.
func (c *FileCache) Stats(ctx context.Context) (map[Kind]int, error) {
	counts := make(map[Kind]int)
	err := c.walk(ctx, func(path string) {
		if e, ok, _ := c.read(path); ok {
			kind := e.Kind
			if kind == "" {
				kind = KindOther
			}
			counts[kind]++
		}
	})
	return counts, err
}

// Close is a no-op.
func (c *FileCache) Close() error {
	return nil
}

// read loads one entry file. A missing file is a miss; a corrupt or
// expired one is deleted and reported as a miss.
func (c *FileCache) read(path string) (fileEntry, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileEntry{}, false, nil
	}
	if err != nil {
		return fileEntry{}, false, err
	}
	var e fileEntry
	if json.Unmarshal(raw, &e) != nil || e.expired(time.Now()) {
		os.Remove(path)
		return fileEntry{}, false, nil
	}
	return e, true, nil
}

// walk calls fn for every entry file under the shard directories.
func (c *FileCache) walk(ctx context.Context, fn func(path string)) error {
	shards, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, shard := range shards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !shard.IsDir() {
			continue
		}
		sub := filepath.Join(c.dir, shard.Name())
		entries, err := os.ReadDir(sub)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".json" {
				fn(filepath.Join(sub, e.Name()))
			}
		}
	}
	return nil
}

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+".json")
}

var (
	_ Cache      = (*FileCache)(nil)
	_ Clearer    = (*FileCache)(nil)
	_ Summarizer = (*FileCache)(nil)
)
