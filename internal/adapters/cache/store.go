// Package cache persists the build-directory cache record as a flat
// JSON file.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// RecordFile is the name of the cache record inside a build directory.
const RecordFile = "forge.cache.json"

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore using one JSON file per build
// directory.
type Store struct {
	mu sync.RWMutex
}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Load reads the cache record of a build directory. A missing or
// unparsable record means the directory was never exported into, which
// surfaces as domain.ErrNotBuildDirectory.
func (s *Store) Load(buildDir string) (*domain.CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := recordPath(buildDir)
	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotBuildDirectory, "cache record not readable"), "path", path)
	}

	rec := domain.NewCacheRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrNotBuildDirectory, "cache record not parsable"), "path", path)
	}
	return rec, nil
}

// Save writes the cache record, replacing any previous one.
func (s *Store) Save(buildDir string, rec *domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache record")
	}

	if err := os.MkdirAll(buildDir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create build directory"), "dir", buildDir)
	}

	path := recordPath(buildDir)
	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write cache record"), "path", path)
	}
	return nil
}

func recordPath(buildDir string) string {
	return filepath.Join(filepath.Clean(buildDir), RecordFile)
}
