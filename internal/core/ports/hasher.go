package ports

import "go.trai.ch/forge/internal/core/domain"

// Hasher computes content hashes and modification-time sums.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ActionHash computes the stable content hash of an action from its
	// hash components. Missing component files are folded in by path so
	// the hash stays computable before a first build.
	ActionHash(a *domain.Action) string

	// MtimeSum returns the sum of the modification times of the given
	// files, in seconds. Missing files contribute zero.
	MtimeSum(paths []string) int64
}
