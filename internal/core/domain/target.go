package domain

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// Dependency is a directed edge between two targets. Public edges
// propagate the public properties of the dependency to every transitive
// dependent, private edges are visible to the immediate owner only.
// Each edge carries its own Properties container bound to the session's
// dependency schema.
type Dependency struct {
	Public     bool
	Properties *Properties

	owner *Target
	to    InternedString
}

// Target returns the target the edge points to.
func (d *Dependency) Target() *Target {
	return d.owner.session.targets[d.to]
}

// Target is a named, scoped node of the build graph. It owns a private
// and a public Properties container, an ordered list of dependency
// edges and the operators and actions its translation produced.
type Target struct {
	Name InternedString

	// Module is the scope that declared the target.
	Module *Module

	// Properties holds the target's private values, Public the values
	// inherited by public dependents.
	Properties *Properties
	Public     *Properties

	session     *Session
	deps        []*Dependency
	operators   []*Operator
	actions     []*Action
	opCounter   map[string]int
	mkdirByPath map[string]*Action
	translated  bool
}

func newTarget(s *Session, m *Module, name InternedString) *Target {
	return &Target{
		Name:        name,
		Module:      m,
		Properties:  NewProperties(s.TargetProps, name.String()),
		Public:      NewProperties(s.TargetProps, name.String()),
		session:     s,
		opCounter:   make(map[string]int),
		mkdirByPath: make(map[string]*Action),
	}
}

// AddDependency adds an edge to another target. Duplicate edges fail
// with ErrDuplicateDependency; an edge that would make the target depend
// on itself, directly or transitively, fails with ErrSelfDependency.
func (t *Target) AddDependency(other *Target, public bool) (*Dependency, error) {
	if other == t {
		return nil, zerr.With(ErrSelfDependency, "target", t.Name.String())
	}
	for _, dep := range t.deps {
		if dep.to == other.Name {
			return nil, zerr.With(zerr.With(ErrDuplicateDependency,
				"target", t.Name.String()), "dependency", other.Name.String())
		}
	}
	if other.reaches(t.Name) {
		return nil, zerr.With(zerr.With(ErrSelfDependency,
			"target", t.Name.String()), "via", other.Name.String())
	}
	dep := &Dependency{
		Public:     public,
		Properties: NewProperties(t.session.DependencyProps, t.Name.String()),
		owner:      t,
		to:         other.Name,
	}
	t.deps = append(t.deps, dep)
	return dep, nil
}

// reaches reports whether any dependency chain from t leads to name.
func (t *Target) reaches(name InternedString) bool {
	for _, dep := range t.deps {
		if dep.to == name {
			return true
		}
		if to := dep.Target(); to != nil && to.reaches(name) {
			return true
		}
	}
	return false
}

// Dependencies returns the target's own edges in declaration order.
func (t *Target) Dependencies() []*Dependency {
	out := make([]*Dependency, len(t.deps))
	copy(out, t.deps)
	return out
}

// TransitiveDependencies yields the target's own edges, public and
// private, followed by the transitive public edges of every dependency,
// in declaration order. Each target is visited at most once and the
// target itself never. The sequence is restartable, every range starts
// a fresh walk.
func (t *Target) TransitiveDependencies() iter.Seq[*Dependency] {
	return func(yield func(*Dependency) bool) {
		visited := map[InternedString]bool{t.Name: true}
		var walk func(cur *Target, top bool) bool
		walk = func(cur *Target, top bool) bool {
			for _, dep := range cur.deps {
				if !top && !dep.Public {
					continue
				}
				if visited[dep.to] {
					continue
				}
				visited[dep.to] = true
				if !yield(dep) {
					return false
				}
				if !walk(dep.Target(), false) {
					return false
				}
			}
			return true
		}
		walk(t, true)
	}
}

// GetProp reads a property value. Without inherit the public container
// wins over the private one, an unset property reads as the declared
// default. With inherit the walk collects, in order, the target's own
// public value, its private value and the public value of every
// transitive public dependency, joined by the type's rule.
func (t *Target) GetProp(name string, inherit bool) (any, error) {
	prop, err := t.session.TargetProps.Lookup(name)
	if err != nil {
		return nil, zerr.With(err, "target", t.Name.String())
	}
	if !inherit {
		if t.Public.IsSet(name) {
			return t.Public.Get(name)
		}
		if t.Properties.IsSet(name) {
			return t.Properties.Get(name)
		}
		return prop.Type.Default(), nil
	}

	var values []any
	collect := func(p *Properties) {
		if p.IsSet(name) {
			v, _ := p.Get(name)
			values = append(values, v)
		}
	}
	collect(t.Public)
	collect(t.Properties)
	for dep := range t.TransitiveDependencies() {
		collect(dep.Target().Public)
	}
	if len(values) == 0 {
		return prop.Type.Default(), nil
	}
	return prop.Type.Join(values), nil
}

// Prop reads a property using its declared inherit option.
func (t *Target) Prop(name string) (any, error) {
	prop, err := t.session.TargetProps.Lookup(name)
	if err != nil {
		return nil, zerr.With(err, "target", t.Name.String())
	}
	return t.GetProp(name, prop.Options.Inherit)
}

// AddOperator creates an operator bound to the target. Names without an
// explicit "#" suffix are numbered per target so repeated use of the
// same base name stays unique.
func (t *Target) AddOperator(name string, commands [][]string) *Operator {
	if !strings.Contains(name, "#") {
		t.opCounter[name]++
		name = fmt.Sprintf("%s#%d", name, t.opCounter[name])
	}
	op := newOperator(t, name, commands)
	t.operators = append(t.operators, op)
	return op
}

// Operators returns the target's operators in creation order.
func (t *Target) Operators() []*Operator {
	out := make([]*Operator, len(t.operators))
	copy(out, t.operators)
	return out
}

// Actions returns the target's actions in creation order.
func (t *Target) Actions() []*Action {
	out := make([]*Action, len(t.actions))
	copy(out, t.actions)
	return out
}

// LeafActions returns the actions of this target no other action of the
// same target depends on. These are what dependent targets attach to.
func (t *Target) LeafActions() []*Action {
	depended := make(map[*Action]bool)
	for _, a := range t.actions {
		for _, dep := range a.Deps {
			if dep.Target == t {
				depended[dep] = true
			}
		}
	}
	var out []*Action
	for _, a := range t.actions {
		if !depended[a] {
			out = append(out, a)
		}
	}
	return out
}

func (t *Target) addAction(a *Action) {
	t.actions = append(t.actions, a)
}

// Translate lowers the target's operators into concrete actions. Every
// operator build set becomes one RunCommands action preceded by
// MakeDirectory actions for its output directories. Dependency targets
// are translated first so leaf-action resolution sees their actions. A
// target that produced no actions receives a Null action so it still
// contributes a scheduling node.
func (t *Target) Translate() error {
	if t.translated {
		return nil
	}
	t.translated = true

	for _, dep := range t.deps {
		if err := dep.Target().Translate(); err != nil {
			return err
		}
	}

	for _, op := range t.operators {
		if err := t.translateOperator(op); err != nil {
			return err
		}
	}

	if len(t.actions) == 0 {
		if _, err := NewAction(t, "null", []ActionDep{DepOnLeaves()}, Null{}); err != nil {
			return err
		}
	}
	return nil
}

func (t *Target) translateOperator(op *Operator) error {
	// An operator with no build sets is meaningless and never scheduled.
	sets := op.BuildSets()
	if len(sets) == 0 {
		return nil
	}

	for i, bs := range sets {
		deps := []ActionDep{DepOnLeaves()}
		for _, dir := range outputDirectories(bs) {
			mkdir, err := t.mkdirAction(dir)
			if err != nil {
				return err
			}
			deps = append(deps, DepOn(mkdir))
		}

		commands, err := op.ExpandCommands(bs)
		if err != nil {
			return err
		}
		name := op.Name
		if len(sets) > 1 {
			name = fmt.Sprintf("%s.%d", op.Name, i)
		}
		action, err := NewAction(t, name, deps, &RunCommands{
			Commands:    commands,
			InputFiles:  bs.AllInputs(),
			OutputFiles: bs.AllOutputs(),
			Cwd:         t.Module.Directory,
		})
		if err != nil {
			return err
		}
		action.Explicit = op.Explicit
		action.Syncio = op.Syncio
	}
	return nil
}

// mkdirAction returns the target's MakeDirectory action for dir,
// creating it on first use so several operators share one node per
// directory.
func (t *Target) mkdirAction(dir string) (*Action, error) {
	if a, ok := t.mkdirByPath[dir]; ok {
		return a, nil
	}
	name := fmt.Sprintf("mkdir#%d", len(t.mkdirByPath)+1)
	a, err := NewAction(t, name, nil, &MakeDirectory{Directory: dir})
	if err != nil {
		return nil, err
	}
	t.mkdirByPath[dir] = a
	return a, nil
}

func outputDirectories(bs *BuildSet) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, f := range bs.AllOutputs() {
		dir := filepath.Dir(f)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
