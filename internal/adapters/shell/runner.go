// Package shell provides the child-process spawner adapter.
package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

var _ domain.Spawner = (*Runner)(nil)

// Runner implements domain.Spawner using os/exec.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Spawn launches a child process. The environment override in the spec
// is layered over the parent environment for this launch only, so
// concurrent spawns never observe each other's overrides. With an
// output writer set, the child's combined stdout and stderr is streamed
// into it line by line; without one the child inherits the real
// streams.
func (r *Runner) Spawn(ctx context.Context, spec domain.SpawnSpec) (domain.Process, error) {
	if len(spec.Argv) == 0 {
		return nil, zerr.New("argv must not be empty")
	}

	env := resolveEnvironment(os.Environ(), spec.Env)

	name := spec.Argv[0]
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, spec.Argv[1:]...) //nolint:gosec // argv comes from the build script
	if len(cmd.Args) > 0 {
		// exec puts the resolved path into Args[0]; keep the name as invoked.
		cmd.Args[0] = name
	}
	cmd.Dir = spec.Dir
	cmd.Env = env

	proc := &process{cmd: cmd}

	if spec.Output == nil {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to start process"), "argv0", name)
		}
		return proc, nil
	}

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create output pipe")
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to start process"), "argv0", name)
	}

	proc.streaming = make(chan struct{})
	go streamLines(pipe, spec.Output, proc.streaming)
	return proc, nil
}

type process struct {
	cmd       *exec.Cmd
	streaming chan struct{}
	termOnce  sync.Once
}

// Wait blocks until the process exits, after its output stream drained.
func (p *process) Wait() int {
	if p.streaming != nil {
		<-p.streaming
	}
	err := p.cmd.Wait()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Terminate kills the process. Idempotent and safe on a process that
// already exited.
func (p *process) Terminate() {
	p.termOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

// streamLines copies the child's combined output into w one line at a
// time so writes interleave at line granularity under the buffer lock.
func streamLines(r io.Reader, w io.Writer, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		_, _ = w.Write(append(scanner.Bytes(), '\n'))
	}
}

// resolveEnvironment layers the override on top of the base
// environment. PATH entries in the override are prepended to the base
// PATH instead of replacing it.
func resolveEnvironment(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	var order []string
	for _, entry := range base {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, seen := envMap[k]; !seen {
			order = append(order, k)
		}
		envMap[k] = v
	}
	for _, k := range sortedKeys(override) {
		v := override[k]
		if k == "PATH" {
			if basePath, exists := envMap[k]; exists && basePath != "" {
				v = v + string(os.PathListSeparator) + basePath
			}
		}
		if _, seen := envMap[k]; !seen {
			order = append(order, k)
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches the directories of the PATH entry in env for an
// executable file.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means ".".
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
