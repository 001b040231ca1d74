package app

import (
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

// Components aggregates the resolved application dependencies for the
// CLI entrypoint.
type Components struct {
	App       *App
	Logger    ports.Logger
	Loader    ports.ScriptLoader
	Store     ports.CacheStore
	Exporter  ports.Exporter
	Hasher    ports.Hasher
	Spawner   domain.Spawner
	Telemetry ports.Telemetry
}
