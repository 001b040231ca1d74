package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// fakeSpawner records launched argvs and reports a scripted exit code.
type fakeSpawner struct {
	mu    sync.Mutex
	argvs [][]string
	codes map[string]int
}

func (f *fakeSpawner) Spawn(_ context.Context, spec domain.SpawnSpec) (domain.Process, error) {
	f.mu.Lock()
	f.argvs = append(f.argvs, spec.Argv)
	f.mu.Unlock()
	if spec.Output != nil {
		_, _ = spec.Output.Write([]byte("ran " + spec.Argv[0] + "\n"))
	}
	code := 0
	if f.codes != nil {
		code = f.codes[spec.Argv[0]]
	}
	return &fakeProcess{code: code}, nil
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

type fakeProcess struct {
	code int
}

func (p *fakeProcess) Wait() int  { return p.code }
func (p *fakeProcess) Terminate() {}

// blockingSpawner signals the first launch and holds every process
// until released.
type blockingSpawner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSpawner) Spawn(context.Context, domain.SpawnSpec) (domain.Process, error) {
	b.once.Do(func() { close(b.started) })
	return &blockingProcess{release: b.release}, nil
}

type blockingProcess struct {
	release chan struct{}
}

func (p *blockingProcess) Wait() int {
	<-p.release
	return 0
}

func (p *blockingProcess) Terminate() {}

func newTestScheduler(t *testing.T, spawner domain.Spawner) *Scheduler {
	t.Helper()
	ctrl := gomock.NewController(t)

	vertex := mocks.NewMockVertex(ctrl)
	vertex.EXPECT().Stdout().Return(io.Discard).AnyTimes()
	vertex.EXPECT().Stderr().Return(io.Discard).AnyTimes()
	vertex.EXPECT().Progress(gomock.Any(), gomock.Any()).AnyTimes()
	vertex.EXPECT().Cached().AnyTimes()
	vertex.EXPECT().Complete(gomock.Any()).AnyTimes()

	telemetry := mocks.NewMockTelemetry(ctrl)
	telemetry.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ctx, vertex
		}).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	return NewScheduler(spawner, telemetry, logger)
}

func newTestTarget(t *testing.T) *domain.Target {
	t.Helper()
	session := domain.NewSession(t.TempDir())
	module := domain.NewModule("demo", "1.0.0", t.TempDir())
	session.AddModule(module)
	target, err := session.AddTarget(module, "main")
	require.NoError(t, err)
	return target
}

func commandAction(t *testing.T, target *domain.Target, name, cmd string, deps ...*domain.Action) *domain.Action {
	t.Helper()
	actionDeps := make([]domain.ActionDep, len(deps))
	for i, dep := range deps {
		actionDeps[i] = domain.DepOn(dep)
	}
	a, err := domain.NewAction(target, name, actionDeps, &domain.RunCommands{
		Commands: [][]string{{cmd}},
	})
	require.NoError(t, err)
	return a
}

func TestScheduler_Run(t *testing.T) {
	t.Parallel()

	t.Run("respects dependency order", func(t *testing.T) {
		t.Parallel()

		target := newTestTarget(t)
		first := commandAction(t, target, "first", "cmd-first")
		second := commandAction(t, target, "second", "cmd-second", first)
		third := commandAction(t, target, "third", "cmd-third", second)

		spawner := &fakeSpawner{}
		s := newTestScheduler(t, spawner)
		require.NoError(t, s.Run(context.Background(), []*domain.Action{third, second, first}, 4))

		assert.Equal(t, []string{"cmd-first", "cmd-second", "cmd-third"}, spawner.launched())
		assert.True(t, third.IsExecuted())
	})

	t.Run("failure gates dependents but not siblings", func(t *testing.T) {
		t.Parallel()

		target := newTestTarget(t)
		failing := commandAction(t, target, "failing", "cmd-fail")
		dependent := commandAction(t, target, "dependent", "cmd-dependent", failing)
		unrelated := commandAction(t, target, "unrelated", "cmd-unrelated")

		spawner := &fakeSpawner{codes: map[string]int{"cmd-fail": 2}}
		s := newTestScheduler(t, spawner)
		err := s.Run(context.Background(), []*domain.Action{failing, dependent, unrelated}, 4)
		require.ErrorIs(t, err, domain.ErrBuildFailed)

		assert.NotContains(t, spawner.launched(), "cmd-dependent")
		assert.Contains(t, spawner.launched(), "cmd-unrelated")
		assert.Equal(t, domain.StateExecuted, failing.State())
		assert.Equal(t, domain.StatePending, dependent.State())
	})

	t.Run("skippable actions are skipped", func(t *testing.T) {
		t.Parallel()

		target := newTestTarget(t)
		noop, err := domain.NewAction(target, "noop", nil, domain.Null{})
		require.NoError(t, err)

		spawner := &fakeSpawner{}
		s := newTestScheduler(t, spawner)
		require.NoError(t, s.Run(context.Background(), []*domain.Action{noop}, 1))

		assert.True(t, noop.Skipped())
		assert.Empty(t, spawner.launched())
	})

	t.Run("parallelism below one is clamped", func(t *testing.T) {
		t.Parallel()

		target := newTestTarget(t)
		only := commandAction(t, target, "only", "cmd-only")

		spawner := &fakeSpawner{}
		s := newTestScheduler(t, spawner)
		require.NoError(t, s.Run(context.Background(), []*domain.Action{only}, 0))
		assert.Equal(t, []string{"cmd-only"}, spawner.launched())
	})

	t.Run("cancellation drains in-flight actions", func(t *testing.T) {
		t.Parallel()

		target := newTestTarget(t)
		slow := commandAction(t, target, "slow", "cmd-slow")
		blocked := commandAction(t, target, "blocked", "cmd-blocked", slow)

		started := make(chan struct{})
		release := make(chan struct{})
		spawner := &blockingSpawner{started: started, release: release}
		s := newTestScheduler(t, spawner)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Run(ctx, []*domain.Action{slow, blocked}, 2)
		}()

		<-started
		cancel()
		close(release)

		err := <-errCh
		require.ErrorIs(t, err, context.Canceled)
		// The running action finished; its dependent was never started.
		assert.Equal(t, domain.StateExecuted, slow.State())
		assert.Equal(t, domain.StatePending, blocked.State())
	})

	t.Run("cancelled context stops scheduling", func(t *testing.T) {
		t.Parallel()

		target := newTestTarget(t)
		never := commandAction(t, target, "never", "cmd-never")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		spawner := &fakeSpawner{}
		s := newTestScheduler(t, spawner)
		err := s.Run(ctx, []*domain.Action{never}, 2)
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, spawner.launched())
	})
}
