package domain

import "path/filepath"

// Module is the named, versioned namespace produced by executing one
// build script. Once the script finished the module is immutable except
// for the Executed flag and the dependent-file list, which feed change
// detection between invocations.
type Module struct {
	Name      string
	Version   string
	Directory string

	// Executed is flipped once the module's build script ran to completion.
	Executed bool

	// DependentFiles lists the module's own script plus any transitively
	// loaded manifests. The sum of their mtimes is persisted in the cache
	// record and a later mismatch signals "re-export recommended".
	DependentFiles []string
}

// NewModule creates a module rooted at the given directory.
func NewModule(name, version, directory string) *Module {
	return &Module{Name: name, Version: version, Directory: directory}
}

// BuildDirectory returns the module's own output directory below the
// session build directory.
func (m *Module) BuildDirectory(session *Session) string {
	return filepath.Join(session.BuildDirectory, m.Name)
}

// AddDependentFile records a file the module's definition depends on.
func (m *Module) AddDependentFile(path string) {
	m.DependentFiles = append(m.DependentFiles, path)
}
