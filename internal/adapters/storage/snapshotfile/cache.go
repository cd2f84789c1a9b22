// Package snapshotfile keeps the last known-good snapshot as a JSON file.
package snapshotfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hylla/metier/internal/app"
	"github.com/hylla/metier/internal/domain"
)

// Cache reads and writes one snapshot file.
type Cache struct {
	path  string
	clock func() time.Time
	mu    sync.Mutex
}

// New returns a cache stored at path. The file is created on first Save.
func New(path string) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	return &Cache{path: path, clock: time.Now}, nil
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Load returns the cached data or app.ErrCacheMiss when no file exists yet.
func (c *Cache) Load(_ context.Context) (domain.AppData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.AppData{}, app.ErrCacheMiss
	}
	if err != nil {
		return domain.AppData{}, fmt.Errorf("read snapshot cache: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return domain.AppData{}, app.ErrCacheMiss
	}
	var snap app.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.AppData{}, fmt.Errorf("decode snapshot cache: %w", err)
	}
	if snap.Version != "" && snap.Version != app.SnapshotVersion {
		return domain.AppData{}, fmt.Errorf("snapshot cache version %q: %w", snap.Version, app.ErrInvalidSnapshot)
	}
	return snap.AppData, nil
}

// Save replaces the cache file atomically.
func (c *Cache) Save(_ context.Context, data domain.AppData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	raw, err := json.Marshal(app.Snapshot{Version: app.SnapshotVersion, ExportedAt: c.clock().UTC(), AppData: data})
	if err != nil {
		return fmt.Errorf("encode snapshot cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace snapshot cache: %w", err)
	}
	return nil
}
