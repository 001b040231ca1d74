package ports

import (
	"io"

	"go.trai.ch/forge/internal/core/domain"
)

// Exporter serializes the translated action graph into an external
// executor's format. Export is deterministic and idempotent, a re-run
// fully overwrites the previous document.
//
//go:generate go run go.uber.org/mock/mockgen -source=exporter.go -destination=mocks/mock_exporter.go -package=mocks
type Exporter interface {
	Export(w io.Writer, session *domain.Session) error
}
