package ninja

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/ports"
)

// NodeID is the unique identifier for the exporter Graft node.
const NodeID graft.ID = "adapter.exporter"

func init() {
	graft.Register(graft.Node[ports.Exporter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.NodeID},
		Run: func(ctx context.Context) (ports.Exporter, error) {
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			exporter := NewExporter(hasher)
			if exe, err := os.Executable(); err == nil {
				exporter.SelfCommand = []string{exe}
			}
			return exporter, nil
		},
	})
}
