package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func TestRunner_Spawn(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	t.Run("captures combined output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runner := NewRunner()
		proc, err := runner.Spawn(context.Background(), domain.SpawnSpec{
			Argv:   []string{"sh", "-c", "echo out; echo err >&2"},
			Output: &buf,
		})
		require.NoError(t, err)

		assert.Equal(t, 0, proc.Wait())
		assert.Contains(t, buf.String(), "out")
		assert.Contains(t, buf.String(), "err")
	})

	t.Run("reports the exit code", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runner := NewRunner()
		proc, err := runner.Spawn(context.Background(), domain.SpawnSpec{
			Argv:   []string{"sh", "-c", "exit 3"},
			Output: &buf,
		})
		require.NoError(t, err)

		assert.Equal(t, 3, proc.Wait())
	})

	t.Run("runs in the requested directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		var buf bytes.Buffer
		runner := NewRunner()
		proc, err := runner.Spawn(context.Background(), domain.SpawnSpec{
			Argv:   []string{"pwd"},
			Dir:    dir,
			Output: &buf,
		})
		require.NoError(t, err)

		require.Equal(t, 0, proc.Wait())
		resolved, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		assert.Equal(t, resolved, strings.TrimSpace(buf.String()))
	})

	t.Run("applies the environment override", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runner := NewRunner()
		proc, err := runner.Spawn(context.Background(), domain.SpawnSpec{
			Argv:   []string{"sh", "-c", "echo $FORGE_TEST_VALUE"},
			Env:    map[string]string{"FORGE_TEST_VALUE": "hello"},
			Output: &buf,
		})
		require.NoError(t, err)

		require.Equal(t, 0, proc.Wait())
		assert.Equal(t, "hello", strings.TrimSpace(buf.String()))
	})

	t.Run("rejects empty argv", func(t *testing.T) {
		t.Parallel()

		runner := NewRunner()
		_, err := runner.Spawn(context.Background(), domain.SpawnSpec{})
		require.Error(t, err)
	})

	t.Run("terminate is idempotent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runner := NewRunner()
		proc, err := runner.Spawn(context.Background(), domain.SpawnSpec{
			Argv:   []string{"sleep", "60"},
			Output: &buf,
		})
		require.NoError(t, err)

		proc.Terminate()
		proc.Terminate()
		assert.NotEqual(t, 0, proc.Wait())
	})
}

func TestResolveEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("override wins", func(t *testing.T) {
		t.Parallel()

		env := resolveEnvironment([]string{"A=1", "B=2"}, map[string]string{"B": "3"})
		assert.Contains(t, env, "A=1")
		assert.Contains(t, env, "B=3")
		assert.NotContains(t, env, "B=2")
	})

	t.Run("path is prepended", func(t *testing.T) {
		t.Parallel()

		env := resolveEnvironment([]string{"PATH=/usr/bin"}, map[string]string{"PATH": "/opt/bin"})
		want := "PATH=/opt/bin" + string(os.PathListSeparator) + "/usr/bin"
		assert.Contains(t, env, want)
	})
}
