package ports

import "go.trai.ch/forge/internal/core/domain"

// ScriptLoader resolves a build script into a populated session. The
// returned main module carries its dependent-file list (script plus any
// transitively loaded manifests) for change detection.
//
//go:generate go run go.uber.org/mock/mockgen -source=loader.go -destination=mocks/mock_loader.go -package=mocks
type ScriptLoader interface {
	Load(scriptPath, buildDir string) (*domain.Session, *domain.Module, error)
}
