package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type fakeSpawner struct {
	mu    sync.Mutex
	argvs [][]string
}

func (f *fakeSpawner) Spawn(_ context.Context, spec domain.SpawnSpec) (domain.Process, error) {
	f.mu.Lock()
	f.argvs = append(f.argvs, spec.Argv)
	f.mu.Unlock()
	return fakeProcess{}, nil
}

func (f *fakeSpawner) launched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.argvs))
	for i, argv := range f.argvs {
		out[i] = argv[0]
	}
	return out
}

type fakeProcess struct{}

func (fakeProcess) Wait() int  { return 0 }
func (fakeProcess) Terminate() {}

type testHarness struct {
	app      *App
	loader   *mocks.MockScriptLoader
	store    *mocks.MockCacheStore
	exporter *mocks.MockExporter
	hasher   *mocks.MockHasher
	logger   *mocks.MockLogger
	spawner  *fakeSpawner
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockScriptLoader(ctrl)
	store := mocks.NewMockCacheStore(ctrl)
	exporter := mocks.NewMockExporter(ctrl)
	hasher := mocks.NewMockHasher(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	vertex := mocks.NewMockVertex(ctrl)
	vertex.EXPECT().Stdout().Return(io.Discard).AnyTimes()
	vertex.EXPECT().Progress(gomock.Any(), gomock.Any()).AnyTimes()
	vertex.EXPECT().Cached().AnyTimes()
	vertex.EXPECT().Complete(gomock.Any()).AnyTimes()
	telemetry := mocks.NewMockTelemetry(ctrl)
	telemetry.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ctx, vertex
		}).AnyTimes()

	spawner := &fakeSpawner{}
	sched := scheduler.NewScheduler(spawner, telemetry, logger)

	return &testHarness{
		app:      New(loader, store, exporter, hasher, sched, spawner, logger),
		loader:   loader,
		store:    store,
		exporter: exporter,
		hasher:   hasher,
		logger:   logger,
		spawner:  spawner,
	}
}

// buildSession constructs a session with one module and one target
// running a single command producing out.txt.
func buildSession(t *testing.T, buildDir string, outputs []string) (*domain.Session, *domain.Module) {
	t.Helper()
	session := domain.NewSession(buildDir)
	module := domain.NewModule("demo", "1.0.0", t.TempDir())
	module.AddDependentFile(filepath.Join(module.Directory, "forge.yaml"))
	session.AddModule(module)

	target, err := session.AddTarget(module, "main")
	require.NoError(t, err)
	op := target.AddOperator("run", [][]string{{"do-work"}})
	bs := domain.NewBuildSet("run")
	if len(outputs) > 0 {
		bs.AddOutputs("out", outputs...)
	}
	op.AddBuildSet(bs)
	return session, module
}

func TestApp_Export(t *testing.T) {
	t.Parallel()

	buildDir := filepath.Join(t.TempDir(), "build")
	h := newHarness(t)
	session, module := buildSession(t, buildDir, nil)

	h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session, module, nil)
	h.exporter.EXPECT().Export(gomock.Any(), session).DoAndReturn(
		func(w io.Writer, _ *domain.Session) error {
			_, err := w.Write([]byte("# generated\n"))
			return err
		})
	h.hasher.EXPECT().MtimeSum(module.DependentFiles).Return(int64(42))
	h.store.EXPECT().Save(buildDir, gomock.Any()).DoAndReturn(
		func(_ string, rec *domain.CacheRecord) error {
			assert.Equal(t, "demo", rec.Main)
			assert.Equal(t, []string{"demo@main"}, rec.Targets)
			mod, ok := rec.Module("demo", "1.0.0")
			require.True(t, ok)
			assert.Equal(t, int64(42), mod.Mtime)
			return nil
		})

	require.NoError(t, h.app.Export(context.Background(), "forge.yaml", buildDir))

	data, err := os.ReadFile(filepath.Join(buildDir, "build.ninja"))
	require.NoError(t, err)
	assert.Equal(t, "# generated\n", string(data))
	assert.True(t, module.Executed)
}

func TestApp_Build(t *testing.T) {
	t.Parallel()

	t.Run("requires an exported build directory", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.store.EXPECT().Load("build").Return(nil, domain.ErrNotBuildDirectory)

		err := h.app.Build(context.Background(), "forge.yaml", "build", nil, 1)
		require.ErrorIs(t, err, domain.ErrNotBuildDirectory)
	})

	t.Run("runs the selected actions", func(t *testing.T) {
		t.Parallel()

		buildDir := t.TempDir()
		h := newHarness(t)
		session, module := buildSession(t, buildDir, nil)

		rec := domain.NewCacheRecord()
		rec.PutModule("demo", "1.0.0", domain.ModuleRecord{Deps: module.DependentFiles, Mtime: 7})
		h.store.EXPECT().Load(buildDir).Return(rec, nil)
		h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session, module, nil)
		h.hasher.EXPECT().MtimeSum(module.DependentFiles).Return(int64(7))

		require.NoError(t, h.app.Build(context.Background(), "forge.yaml", buildDir, []string{"demo@main"}, 2))
		assert.Contains(t, h.spawner.launched(), "do-work")
	})

	t.Run("warns on changed modules", func(t *testing.T) {
		t.Parallel()

		buildDir := t.TempDir()
		h := newHarness(t)
		session, module := buildSession(t, buildDir, nil)

		rec := domain.NewCacheRecord()
		rec.PutModule("demo", "1.0.0", domain.ModuleRecord{Deps: module.DependentFiles, Mtime: 7})
		h.store.EXPECT().Load(buildDir).Return(rec, nil)
		h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session, module, nil)
		h.hasher.EXPECT().MtimeSum(module.DependentFiles).Return(int64(99))

		require.NoError(t, h.app.Build(context.Background(), "forge.yaml", buildDir, nil, 1))
	})
}

func TestApp_Clean(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	output := filepath.Join(buildDir, "out.txt")
	require.NoError(t, os.WriteFile(output, []byte("stale"), 0o600))

	h := newHarness(t)
	session, module := buildSession(t, buildDir, []string{output})
	h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session, module, nil)

	require.NoError(t, h.app.Clean(context.Background(), "forge.yaml", buildDir, nil))
	assert.NoFileExists(t, output)

	// A second clean finds nothing to remove and still succeeds.
	session2, module2 := buildSession(t, buildDir, []string{output})
	h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session2, module2, nil)
	require.NoError(t, h.app.Clean(context.Background(), "forge.yaml", buildDir, nil))
}

func TestApp_RunNode(t *testing.T) {
	t.Parallel()

	t.Run("executes exactly the named action", func(t *testing.T) {
		t.Parallel()

		buildDir := t.TempDir()
		h := newHarness(t)
		session, module := buildSession(t, buildDir, nil)

		h.store.EXPECT().Load(buildDir).Return(domain.NewCacheRecord(), nil)
		h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session, module, nil)

		code, err := h.app.RunNode(context.Background(), "forge.yaml", buildDir, "demo@main#run#1")
		require.NoError(t, err)
		assert.Equal(t, 0, code)
		assert.Equal(t, []string{"do-work"}, h.spawner.launched())
	})

	t.Run("unknown action fails", func(t *testing.T) {
		t.Parallel()

		buildDir := t.TempDir()
		h := newHarness(t)
		session, module := buildSession(t, buildDir, nil)

		h.store.EXPECT().Load(buildDir).Return(domain.NewCacheRecord(), nil)
		h.loader.EXPECT().Load("forge.yaml", buildDir).Return(session, module, nil)

		_, err := h.app.RunNode(context.Background(), "forge.yaml", buildDir, "demo@main#missing")
		require.ErrorIs(t, err, domain.ErrActionNotFound)
	})
}
