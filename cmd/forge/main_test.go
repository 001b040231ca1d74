package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
	}()

	tests := []struct {
		name         string
		script       string
		args         func(tmpDir string) []string
		expectedExit int
	}{
		{
			name: "export then build succeeds",
			script: `
project:
  name: demo
targets:
  - name: hello
    operators:
      - name: greet
        commands:
          - ["true"]
`,
			args: func(tmpDir string) []string {
				return []string{"forge", "-c", filepath.Join(tmpDir, "forge.yaml"),
					"-b", filepath.Join(tmpDir, "build"), "export"}
			},
			expectedExit: 0,
		},
		{
			name:   "missing script fails",
			script: "",
			args: func(tmpDir string) []string {
				return []string{"forge", "-c", filepath.Join(tmpDir, "nonexistent.yaml"),
					"-b", filepath.Join(tmpDir, "build"), "export"}
			},
			expectedExit: 1,
		},
		{
			name:   "version always works",
			script: "",
			args: func(string) []string {
				return []string{"forge", "version"}
			},
			expectedExit: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.script != "" {
				require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "forge.yaml"), []byte(tt.script), 0o600))
			}

			os.Args = tt.args(tmpDir)
			assert.Equal(t, tt.expectedExit, run())
		})
	}
}
