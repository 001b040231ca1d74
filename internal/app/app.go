// Package app implements the application layer for forge.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"go.trai.ch/forge/internal/adapters/ninja"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	loader    ports.ScriptLoader
	store     ports.CacheStore
	exporter  ports.Exporter
	hasher    ports.Hasher
	scheduler *scheduler.Scheduler
	spawner   domain.Spawner
	logger    ports.Logger
}

// New creates a new App instance.
func New(
	loader ports.ScriptLoader,
	store ports.CacheStore,
	exporter ports.Exporter,
	hasher ports.Hasher,
	sched *scheduler.Scheduler,
	spawner domain.Spawner,
	logger ports.Logger,
) *App {
	return &App{
		loader:    loader,
		store:     store,
		exporter:  exporter,
		hasher:    hasher,
		scheduler: sched,
		spawner:   spawner,
		logger:    logger,
	}
}

// Export loads the build script, translates the graph and writes the
// external build document plus the cache record into the build
// directory. Re-running export fully overwrites both.
func (a *App) Export(_ context.Context, scriptPath, buildDir string) error {
	session, module, err := a.loadTranslated(scriptPath, buildDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(session.BuildDirectory, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create build directory"), "dir", session.BuildDirectory)
	}

	buildFile := filepath.Join(session.BuildDirectory, ninja.BuildFileName)
	f, err := os.Create(buildFile) //nolint:gosec // Path is derived from the build directory
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create build file"), "path", buildFile)
	}
	if err := a.exporter.Export(f, session); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return zerr.Wrap(err, "failed to close build file")
	}

	module.Executed = true
	a.logger.Info(fmt.Sprintf("wrote %q", buildFile))

	return a.store.Save(session.BuildDirectory, a.cacheRecord(session, module))
}

// Build executes the selected targets in-process. The build directory
// must have been exported into before; a missing cache record is fatal.
// A module whose dependent files changed since the export only warrants
// a warning, the stale graph stays usable.
func (a *App) Build(ctx context.Context, scriptPath, buildDir string, targetNames []string, parallelism int) error {
	rec, err := a.store.Load(buildDir)
	if err != nil {
		return zerr.Wrap(err, "run export first")
	}

	session, _, err := a.loadTranslated(scriptPath, buildDir)
	if err != nil {
		return err
	}
	a.warnChangedModules(session, rec)

	actions, err := a.selectActions(session, targetNames)
	if err != nil {
		return err
	}
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}
	if err := a.scheduler.Run(ctx, actions, parallelism); err != nil {
		return zerr.Wrap(err, "build execution failed")
	}
	return nil
}

// Clean removes the declared output files of the selected targets.
// Missing files are ignored.
func (a *App) Clean(_ context.Context, scriptPath, buildDir string, targetNames []string) error {
	session, _, err := a.loadTranslated(scriptPath, buildDir)
	if err != nil {
		return err
	}

	actions, err := a.selectActions(session, targetNames)
	if err != nil {
		return err
	}

	removed := 0
	for _, action := range actions {
		for _, path := range domain.ActionOutputs(action) {
			err := os.Remove(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to remove output"), "path", path)
			}
			removed++
		}
	}
	a.logger.Info(fmt.Sprintf("removed %d output files", removed))
	return nil
}

// RunNode executes exactly one action by its long name. Its dependency
// preconditions are assumed satisfied externally (the exported build
// document orders the invocations), so every other action is marked
// skipped first. Output goes to the real streams. The returned code is
// the action's exit code.
func (a *App) RunNode(ctx context.Context, scriptPath, buildDir, longName string) (int, error) {
	if _, err := a.store.Load(buildDir); err != nil {
		return 0, zerr.Wrap(err, "run export first")
	}

	session, _, err := a.loadTranslated(scriptPath, buildDir)
	if err != nil {
		return 0, err
	}

	action, err := session.Action(longName)
	if err != nil {
		return 0, err
	}
	for _, other := range session.Actions() {
		if other != action {
			_ = other.Skip()
		}
	}

	progress := domain.NewProgress(a.spawner, false)
	code, err := action.Execute(ctx, progress)
	if err != nil {
		return 0, err
	}
	return code, nil
}

func (a *App) loadTranslated(scriptPath, buildDir string) (*domain.Session, *domain.Module, error) {
	session, module, err := a.loader.Load(scriptPath, buildDir)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load build script")
	}
	if err := session.Translate(); err != nil {
		return nil, nil, err
	}
	return session, module, nil
}

func (a *App) cacheRecord(session *domain.Session, main *domain.Module) *domain.CacheRecord {
	rec := domain.NewCacheRecord()
	rec.Main = main.Name
	for _, t := range session.Targets() {
		rec.Targets = append(rec.Targets, t.Name.String())
	}
	for k, v := range session.Options {
		rec.Options[k] = v
	}
	for _, m := range session.Modules() {
		rec.PutModule(m.Name, m.Version, domain.ModuleRecord{
			Deps:  m.DependentFiles,
			Mtime: a.hasher.MtimeSum(m.DependentFiles),
		})
	}
	return rec
}

// warnChangedModules compares recorded mtime sums against the current
// filesystem. A mismatch is a notification only.
func (a *App) warnChangedModules(session *domain.Session, rec *domain.CacheRecord) {
	for _, m := range session.Modules() {
		recorded, ok := rec.Module(m.Name, m.Version)
		if !ok {
			continue
		}
		if recorded.Mtime != a.hasher.MtimeSum(m.DependentFiles) {
			a.logger.Warn(fmt.Sprintf("module %q changed since export, re-export recommended", m.Name))
		}
	}
}

// selectActions resolves the build selection: the actions of the named
// targets, or every non-explicit action with no names given, plus the
// transitive dependency closure.
func (a *App) selectActions(session *domain.Session, targetNames []string) ([]*domain.Action, error) {
	var roots []*domain.Action
	if len(targetNames) == 0 {
		for _, action := range session.Actions() {
			if !action.Explicit {
				roots = append(roots, action)
			}
		}
	} else {
		for _, name := range targetNames {
			target, err := session.Target(name)
			if err != nil {
				return nil, err
			}
			roots = append(roots, target.Actions()...)
		}
	}

	seen := make(map[*domain.Action]bool)
	var out []*domain.Action
	var visit func(action *domain.Action)
	visit = func(action *domain.Action) {
		if seen[action] {
			return
		}
		seen[action] = true
		for _, dep := range action.Deps {
			visit(dep)
		}
		out = append(out, action)
	}
	for _, root := range roots {
		visit(root)
	}
	return out, nil
}
