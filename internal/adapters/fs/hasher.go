// Package fs provides filesystem-backed hashing for the action graph.
package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

var _ ports.Hasher = (*Hasher)(nil)

// fileHashCacheSize bounds the memoized file-content hashes. Large
// builds reference the same headers and sources from many actions.
const fileHashCacheSize = 4096

type fileKey struct {
	path  string
	mtime int64
	size  int64
}

// Hasher computes action hashes and modification-time sums.
type Hasher struct {
	fileHashes *lru.Cache[fileKey, uint64]
}

// NewHasher creates a new Hasher.
func NewHasher() (*Hasher, error) {
	cache, err := lru.New[fileKey, uint64](fileHashCacheSize)
	if err != nil {
		return nil, err
	}
	return &Hasher{fileHashes: cache}, nil
}

// ActionHash computes the stable content hash of an action by folding
// its hash components into a single digest. File components fold the
// path and the file's content hash; a missing file folds the path with
// a marker instead, so the hash stays computable before a first build.
func (h *Hasher) ActionHash(a *domain.Action) string {
	hasher := xxhash.New()

	for _, comp := range a.HashComponents() {
		switch comp.Kind {
		case domain.HashData:
			_, _ = hasher.Write(comp.Data)
			_, _ = hasher.Write([]byte{0})
		case domain.HashFile:
			h.hashFileComponent(comp.Path, hasher)
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64())
}

func (h *Hasher) hashFileComponent(path string, hasher io.Writer) {
	_, _ = hasher.Write([]byte(path))
	_, _ = hasher.Write([]byte{0})

	content, err := h.fileContentHash(path)
	if err != nil {
		_, _ = hasher.Write([]byte("missing"))
		_, _ = hasher.Write([]byte{0})
		return
	}
	_ = binary.Write(hasher, binary.LittleEndian, content)
}

// fileContentHash returns the XXHash of a file's content, memoized by
// path, modification time and size.
func (h *Hasher) fileContentHash(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	key := fileKey{path: path, mtime: info.ModTime().UnixNano(), size: info.Size()}
	if hash, ok := h.fileHashes.Get(key); ok {
		return hash, nil
	}

	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, err
	}

	hash := hasher.Sum64()
	h.fileHashes.Add(key, hash)
	return hash, nil
}

// MtimeSum returns the sum of the modification times of the given
// files, in seconds. Missing files contribute zero.
func (h *Hasher) MtimeSum(paths []string) int64 {
	var sum int64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		sum += info.ModTime().Unix()
	}
	return sum
}
