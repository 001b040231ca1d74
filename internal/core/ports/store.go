package ports

import "go.trai.ch/forge/internal/core/domain"

// CacheStore persists the cache record of a build directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Load reads the cache record of a build directory. A missing or
	// unreadable record fails with domain.ErrNotBuildDirectory.
	Load(buildDir string) (*domain.CacheRecord, error)

	// Save writes the cache record, replacing any previous one.
	Save(buildDir string, rec *domain.CacheRecord) error
}
