package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func newTestAction(t *testing.T, data domain.ActionData) *domain.Action {
	t.Helper()

	session := domain.NewSession(t.TempDir())
	module := domain.NewModule("app", "1.0.0", t.TempDir())
	session.AddModule(module)
	target, err := session.AddTarget(module, "main")
	require.NoError(t, err)

	action, err := domain.NewAction(target, "run", nil, data)
	require.NoError(t, err)
	return action
}

func TestHasher_ActionHash(t *testing.T) {
	t.Parallel()

	t.Run("is stable for the same inputs", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		input := filepath.Join(dir, "main.c")
		require.NoError(t, os.WriteFile(input, []byte("int main() {}"), 0o600))

		action := newTestAction(t, &domain.RunCommands{
			Commands:   [][]string{{"cc", "-o", "main", input}},
			InputFiles: []string{input},
		})

		hasher, err := NewHasher()
		require.NoError(t, err)

		first := hasher.ActionHash(action)
		second := hasher.ActionHash(action)
		assert.Equal(t, first, second)
		assert.Len(t, first, 16)
	})

	t.Run("changes when file content changes", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		input := filepath.Join(dir, "main.c")
		require.NoError(t, os.WriteFile(input, []byte("int main() {}"), 0o600))

		action := newTestAction(t, &domain.RunCommands{
			Commands:   [][]string{{"cc", "-o", "main", input}},
			InputFiles: []string{input},
		})

		hasher, err := NewHasher()
		require.NoError(t, err)
		before := hasher.ActionHash(action)

		require.NoError(t, os.WriteFile(input, []byte("int main() { return 1; }"), 0o600))
		// Force a distinct mtime so the memoized hash is not reused.
		future := time.Now().Add(2 * time.Second)
		require.NoError(t, os.Chtimes(input, future, future))

		assert.NotEqual(t, before, hasher.ActionHash(action))
	})

	t.Run("tolerates missing files", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "nope.c")
		action := newTestAction(t, &domain.RunCommands{
			Commands:   [][]string{{"cc", missing}},
			InputFiles: []string{missing},
		})

		hasher, err := NewHasher()
		require.NoError(t, err)
		assert.Len(t, hasher.ActionHash(action), 16)
	})

	t.Run("differs per action identity", func(t *testing.T) {
		t.Parallel()

		session := domain.NewSession(t.TempDir())
		module := domain.NewModule("app", "1.0.0", t.TempDir())
		session.AddModule(module)
		target, err := session.AddTarget(module, "main")
		require.NoError(t, err)

		first, err := domain.NewAction(target, "one", nil, domain.Null{})
		require.NoError(t, err)
		second, err := domain.NewAction(target, "two", nil, domain.Null{})
		require.NoError(t, err)

		hasher, err := NewHasher()
		require.NoError(t, err)
		assert.NotEqual(t, hasher.ActionHash(first), hasher.ActionHash(second))
	})
}

func TestHasher_MtimeSum(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o600))

	hasher, err := NewHasher()
	require.NoError(t, err)

	sum := hasher.MtimeSum([]string{a, b})
	assert.Positive(t, sum)

	// Missing files contribute zero.
	assert.Equal(t, sum, hasher.MtimeSum([]string{a, b, filepath.Join(dir, "missing")}))

	future := time.Now().Add(10 * time.Second)
	require.NoError(t, os.Chtimes(a, future, future))
	assert.NotEqual(t, sum, hasher.MtimeSum([]string{a, b}))
}
