package domain

import (
	"context"
	"fmt"
	"sync"

	"go.trai.ch/zerr"
)

// HashComponentKind discriminates HashComponent variants.
type HashComponentKind int

const (
	// HashData contributes raw bytes to the action hash.
	HashData HashComponentKind = iota
	// HashFile contributes the contents of a file.
	HashFile
)

// HashComponent is one tagged value an ActionData yields to seed its
// action's content hash, used for stable synthetic naming on export and
// for future cache-key derivation.
type HashComponent struct {
	Kind HashComponentKind
	Data []byte
	Path string
}

// DataComponent builds a raw-bytes component.
func DataComponent(data []byte) HashComponent {
	return HashComponent{Kind: HashData, Data: data}
}

// StringComponent builds a raw-bytes component from a string.
func StringComponent(s string) HashComponent {
	return HashComponent{Kind: HashData, Data: []byte(s)}
}

// FileComponent builds a file-contents component.
func FileComponent(path string) HashComponent {
	return HashComponent{Kind: HashFile, Path: path}
}

// ActionData is the polymorphic payload of an Action. New payload kinds
// implement this interface; the built-in variants are Null,
// MakeDirectory, RunCommands and DownloadFile.
type ActionData interface {
	// Skippable reports whether executing the action is unnecessary
	// given the current state of the file system.
	Skippable(a *Action) bool

	// Execute performs the work, writing output through the progress.
	// The returned code is the action's exit code; a non-nil error is a
	// runtime fault and is recorded by the caller as exit code 127.
	Execute(ctx context.Context, a *Action, p *Progress) (int, error)

	// Display returns a human-readable description of the work.
	Display(a *Action) string

	// HashComponents yields the values that determine the action's
	// content hash. Everything that can change the outcome of Execute
	// belongs here.
	HashComponents(a *Action) []HashComponent
}

// InputFiler is implemented by payloads that declare input files.
type InputFiler interface {
	DeclaredInputs() []string
}

// OutputFiler is implemented by payloads that declare output files.
type OutputFiler interface {
	DeclaredOutputs() []string
}

// ActionInputs returns the input files a payload declares, if any.
func ActionInputs(a *Action) []string {
	if f, ok := a.Data.(InputFiler); ok {
		return f.DeclaredInputs()
	}
	return nil
}

// ActionOutputs returns the output files a payload declares, if any.
func ActionOutputs(a *Action) []string {
	if f, ok := a.Data.(OutputFiler); ok {
		return f.DeclaredOutputs()
	}
	return nil
}

// ActionDep is one entry of the dependency list passed to NewAction:
// either a reference to a concrete action or the distinguished "all
// leaf actions of the target's dependencies" sentinel, which is spliced
// in at its position during construction.
type ActionDep struct {
	action *Action
	leaves bool
}

// DepOn references a concrete action.
func DepOn(a *Action) ActionDep { return ActionDep{action: a} }

// DepOnLeaves is the sentinel that expands to the leaf actions of every
// private and transitive public dependency of the target.
func DepOnLeaves() ActionDep { return ActionDep{leaves: true} }

// ActionState is the execution state of an action.
type ActionState int

const (
	// StatePending means the action has not started.
	StatePending ActionState = iota
	// StateExecuting means the action is running.
	StateExecuting
	// StateExecuted means the action finished (or was skipped) and
	// recorded an exit code. Terminal.
	StateExecuted
)

// Action is the unit the engine executes: a named node owned by a
// target, preceded by its dependency actions and carrying exactly one
// ActionData payload. Once executed or skipped it is immutable.
type Action struct {
	Target *Target
	Name   string
	Deps   []*Action
	Data   ActionData

	// Explicit actions are not built by default.
	Explicit bool

	// Syncio actions need exclusive interactive terminal access and run
	// with progress buffering disabled.
	Syncio bool

	mu       sync.Mutex
	state    ActionState
	code     int
	skipped  bool
	progress *Progress
}

// NewAction creates an action, resolves leaf sentinels in deps and adds
// it to the target. The sentinel expands, at its position, to the leaf
// actions of every private and transitive public dependency of the
// target, deduplicated in dependency declaration order.
func NewAction(target *Target, name string, deps []ActionDep, data ActionData) (*Action, error) {
	if data == nil {
		return nil, zerr.New("action payload must not be nil")
	}
	var resolved []*Action
	seen := make(map[*Action]bool)
	add := func(a *Action) {
		if !seen[a] {
			seen[a] = true
			resolved = append(resolved, a)
		}
	}
	for _, dep := range deps {
		if !dep.leaves {
			add(dep.action)
			continue
		}
		for edge := range target.TransitiveDependencies() {
			for _, leaf := range edge.Target().LeafActions() {
				add(leaf)
			}
		}
	}
	a := &Action{Target: target, Name: name, Deps: resolved, Data: data}
	target.addAction(a)
	return a, nil
}

// LongName returns the graph-wide identifier "<target>#<name>".
func (a *Action) LongName() string {
	return fmt.Sprintf("%s#%s", a.Target.Name.String(), a.Name)
}

// State returns the current execution state.
func (a *Action) State() ActionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsExecuted reports whether the action reached a terminal state.
func (a *Action) IsExecuted() bool {
	return a.State() == StateExecuted
}

// Skipped reports whether the action was skipped rather than run.
func (a *Action) Skipped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skipped
}

// Code returns the recorded exit code. Zero until executed.
func (a *Action) Code() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.code
}

// Progress returns the progress instance the action executed with.
func (a *Action) Progress() *Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// IsSkippable delegates the staleness check to the payload.
func (a *Action) IsSkippable() bool {
	return a.Data.Skippable(a)
}

// Skip marks a pending action as executed with code 0 and the skipped
// marker. Valid only from the pending state.
func (a *Action) Skip() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StatePending {
		return zerr.With(ErrAlreadyExecuted, "action", a.LongName())
	}
	a.state = StateExecuted
	a.code = 0
	a.skipped = true
	return nil
}

// Execute runs the payload with the given progress. It is valid only
// from the pending state and only once every dependency action reached
// a terminal state. A fault raised by the payload never escapes: its
// detail is written to the progress buffer and recorded as exit code
// 127. The returned error reports protocol violations only.
func (a *Action) Execute(ctx context.Context, p *Progress) (int, error) {
	for _, dep := range a.Deps {
		if !dep.IsExecuted() {
			return 0, zerr.With(zerr.With(ErrDependencyNotExecuted,
				"action", a.LongName()), "dependency", dep.LongName())
		}
	}

	a.mu.Lock()
	if a.state != StatePending {
		a.mu.Unlock()
		return 0, zerr.With(ErrAlreadyExecuted, "action", a.LongName())
	}
	a.state = StateExecuting
	a.progress = p
	a.mu.Unlock()

	code := a.runPayload(ctx, p)

	p.finish(code)
	a.mu.Lock()
	a.state = StateExecuted
	a.code = code
	a.mu.Unlock()
	return code, nil
}

// runPayload converts payload faults, including panics, into exit code
// 127 with the detail written to the progress buffer.
func (a *Action) runPayload(ctx context.Context, p *Progress) (code int) {
	defer func() {
		if r := recover(); r != nil {
			p.Printf("panic in %s: %v\n", a.LongName(), r)
			code = 127
		}
	}()
	code, err := a.Data.Execute(ctx, a, p)
	if err != nil {
		p.Printf("%s: %+v\n", a.LongName(), err)
		return 127
	}
	return code
}

// Display returns the payload's description of the work.
func (a *Action) Display() string {
	return a.Data.Display(a)
}

// HashComponents returns the payload's hash contribution prefixed with
// the action identity, so two actions with equal payloads still hash
// apart.
func (a *Action) HashComponents() []HashComponent {
	out := []HashComponent{StringComponent(a.LongName())}
	return append(out, a.Data.HashComponents(a)...)
}
