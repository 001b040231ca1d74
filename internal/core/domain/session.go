// Package domain contains the core build graph model: targets,
// properties, dependencies, build sets, operators and the action
// execution state machine.
package domain

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// Session is the root of one build graph. It owns the global target and
// dependency property schemas, the modules produced by build scripts and
// the arena of targets keyed by interned name. The graph is populated
// single-threaded during the declaration phase and read-only afterwards.
type Session struct {
	BuildDirectory string
	Options        map[string]string

	TargetProps     *PropertySet
	DependencyProps *PropertySet

	modules []*Module
	targets map[InternedString]*Target
	order   []InternedString
}

// NewSession creates an empty session for the given build directory.
func NewSession(buildDirectory string) *Session {
	return &Session{
		BuildDirectory:  filepath.Clean(buildDirectory),
		Options:         make(map[string]string),
		TargetProps:     NewPropertySet(),
		DependencyProps: NewPropertySet(),
		targets:         make(map[InternedString]*Target),
	}
}

// AddModule registers a module with the session.
func (s *Session) AddModule(m *Module) {
	s.modules = append(s.modules, m)
}

// Modules returns the registered modules in registration order.
func (s *Session) Modules() []*Module {
	return s.modules
}

// AddTarget creates a target named "<module>@<name>" owned by the given
// module. A taken name fails with ErrTargetExists.
func (s *Session) AddTarget(m *Module, name string) (*Target, error) {
	id := Intern(m.Name + "@" + name)
	if _, exists := s.targets[id]; exists {
		return nil, zerr.With(ErrTargetExists, "target", id.String())
	}
	t := newTarget(s, m, id)
	s.targets[id] = t
	s.order = append(s.order, id)
	return t, nil
}

// Target resolves a target by its full "<module>@<name>" identifier.
func (s *Session) Target(name string) (*Target, error) {
	t, ok := s.targets[Intern(name)]
	if !ok {
		return nil, zerr.With(ErrTargetNotFound, "target", name)
	}
	return t, nil
}

// Targets returns all targets in declaration order.
func (s *Session) Targets() []*Target {
	out := make([]*Target, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.targets[id])
	}
	return out
}

// Translate lowers every target's operators into actions. Targets that
// produced no actions receive a Null action so they still contribute a
// scheduling node.
func (s *Session) Translate() error {
	for _, id := range s.order {
		if err := s.targets[id].Translate(); err != nil {
			return zerr.With(zerr.Wrap(err, "target translation failed"),
				"target", id.String())
		}
	}
	return nil
}

// Actions returns every action of the graph in deterministic order:
// target declaration order, then per-target action creation order.
func (s *Session) Actions() []*Action {
	var out []*Action
	for _, id := range s.order {
		out = append(out, s.targets[id].Actions()...)
	}
	return out
}

// Action resolves an action by its long name "<target>#<action>".
func (s *Session) Action(longName string) (*Action, error) {
	for _, id := range s.order {
		for _, a := range s.targets[id].Actions() {
			if a.LongName() == longName {
				return a, nil
			}
		}
	}
	return nil, zerr.With(ErrActionNotFound, "action", longName)
}
