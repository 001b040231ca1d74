package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/forge/internal/adapters/cache"              //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/config"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/fs"                 //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/logger"             //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/ninja"              //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/shell"              //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in app layer
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			cache.NodeID,
			ninja.NodeID,
			fs.NodeID,
			shell.NodeID,
			scheduler.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			config.NodeID,
			cache.NodeID,
			ninja.NodeID,
			fs.NodeID,
			shell.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ScriptLoader](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.CacheStore](ctx)
	if err != nil {
		return nil, err
	}

	exporter, err := graft.Dep[ports.Exporter](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	spawner, err := graft.Dep[domain.Spawner](ctx)
	if err != nil {
		return nil, err
	}

	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, store, exporter, hasher, sched, spawner, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	loader, err := graft.Dep[ports.ScriptLoader](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[ports.CacheStore](ctx)
	if err != nil {
		return nil, err
	}

	exporter, err := graft.Dep[ports.Exporter](ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}

	spawner, err := graft.Dep[domain.Spawner](ctx)
	if err != nil {
		return nil, err
	}

	telemetry, err := graft.Dep[ports.Telemetry](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:       application,
		Logger:    log,
		Loader:    loader,
		Store:     store,
		Exporter:  exporter,
		Hasher:    hasher,
		Spawner:   spawner,
		Telemetry: telemetry,
	}, nil
}
