package domain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.trai.ch/zerr"
)

// Process is a spawned child process.
type Process interface {
	// Wait blocks until the process exits and returns its exit code.
	Wait() int
	// Terminate requests process termination. Best effort.
	Terminate()
}

// SpawnSpec describes one child process launch. The environment
// override is scoped strictly to the launch and must not leak to
// sibling concurrent spawns. When Output is nil the child inherits the
// parent's standard streams.
type SpawnSpec struct {
	Argv   []string
	Dir    string
	Env    map[string]string
	Output io.Writer
}

// Spawner launches child processes for action payloads. The shell
// adapter provides the production implementation.
type Spawner interface {
	Spawn(ctx context.Context, spec SpawnSpec) (Process, error)
}

// UpdateFunc receives advisory progress updates. A negative percent
// means the action cannot estimate its progress.
type UpdateFunc func(percent float64, message string)

// Progress is exclusively owned by exactly one in-flight action. It
// guards a byte output buffer behind a mutex/condition pair; with
// buffering disabled output goes straight to the process streams, which
// syncio operators need for real terminal access. Abort is cooperative:
// the first call flips the flag and runs the registered callbacks,
// later calls are no-ops.
type Progress struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf       bytes.Buffer
	buffering bool
	executed  bool
	code      int

	aborted  bool
	abortFns []func()

	spawner Spawner
	update  UpdateFunc
}

// NewProgress creates a progress backed by the given spawner. With
// buffered false, child output and prints bypass the buffer.
func NewProgress(spawner Spawner, buffered bool) *Progress {
	p := &Progress{spawner: spawner, buffering: buffered}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// OnUpdate registers the advisory update hook. Update is side-effect
// free without one.
func (p *Progress) OnUpdate(fn UpdateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.update = fn
}

// Update reports advisory progress. It is also invoked once with 1.0
// after the action finished, when the exit code is already recorded.
func (p *Progress) Update(percent float64, message string) {
	p.mu.Lock()
	fn := p.update
	p.mu.Unlock()
	if fn != nil {
		fn(percent, message)
	}
}

// Write appends to the guarded buffer, or to stdout when buffering is
// disabled. Implements io.Writer so child output can stream in.
func (p *Progress) Write(b []byte) (int, error) {
	if !p.buffering {
		return os.Stdout.Write(b)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Write(b)
}

// Printf formats into the guarded buffer.
func (p *Progress) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p, format, args...)
}

// Buffered reports whether output buffering is enabled.
func (p *Progress) Buffered() bool {
	return p.buffering
}

// HasOutput reports whether the buffer holds any bytes.
func (p *Progress) HasOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Len() > 0
}

// Output returns a copy of the buffered bytes.
func (p *Progress) Output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.buf.Bytes()...)
}

// WriteTo flushes the buffered bytes to w.
func (p *Progress) WriteTo(w io.Writer) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := w.Write(p.buf.Bytes())
	return int64(n), err
}

// System launches a child process and blocks until it exits, returning
// its exit code. The environment override is scoped to this call. With
// buffering enabled the child's combined output streams into the
// guarded buffer; otherwise the child inherits the real streams. A
// termination callback is registered so Abort stops the child.
func (p *Progress) System(ctx context.Context, argv []string, cwd string, environ map[string]string) (int, error) {
	if len(argv) == 0 {
		return 0, zerr.New("argv must not be empty")
	}
	if p.spawner == nil {
		return 0, zerr.New("progress has no spawner")
	}

	spec := SpawnSpec{Argv: argv, Dir: cwd, Env: environ}
	if p.buffering {
		spec.Output = p
	}
	proc, err := p.spawner.Spawn(ctx, spec)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to spawn process"),
			"argv0", argv[0])
	}
	p.OnAbort(proc.Terminate)
	return proc.Wait(), nil
}

// OnAbort registers a callback invoked by the first Abort call. When
// already aborted the callback runs immediately.
func (p *Progress) OnAbort(fn func()) {
	p.mu.Lock()
	if p.aborted {
		p.mu.Unlock()
		runAbortFn(fn)
		return
	}
	p.abortFns = append(p.abortFns, fn)
	p.mu.Unlock()
}

// Abort requests cooperative cancellation. The first call flips the
// flag and invokes every registered callback exactly once; later calls
// are no-ops.
func (p *Progress) Abort() {
	p.mu.Lock()
	if p.aborted {
		p.mu.Unlock()
		return
	}
	p.aborted = true
	fns := p.abortFns
	p.abortFns = nil
	p.mu.Unlock()

	for _, fn := range fns {
		runAbortFn(fn)
	}
}

func runAbortFn(fn func()) {
	defer func() {
		// A failing abort callback must not keep the others from running.
		_ = recover()
	}()
	fn()
}

// IsAborted is a non-blocking poll of the abort flag.
func (p *Progress) IsAborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

// Executed reports whether the owning action finished.
func (p *Progress) Executed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.executed
}

// Code returns the recorded exit code.
func (p *Progress) Code() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

// Wait blocks until the owning action finished.
func (p *Progress) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.executed {
		p.cond.Wait()
	}
}

// finish records the exit code, marks the progress executed and emits
// the final update. Called by Action.Execute exactly once.
func (p *Progress) finish(code int) {
	p.mu.Lock()
	p.code = code
	p.executed = true
	p.mu.Unlock()
	p.Update(1.0, "")
	p.cond.Broadcast()
}
