package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/core/domain"
)

// NodeID is the unique identifier for the spawner Graft node.
const NodeID graft.ID = "adapter.spawner"

func init() {
	graft.Register(graft.Node[domain.Spawner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{},
		Run: func(_ context.Context) (domain.Spawner, error) {
			return NewRunner(), nil
		},
	})
}
