package domain

import (
	"regexp"
	"strings"
)

// Operator is a named command template bound to a target. Its argument
// lists contain placeholders resolved against a build set's variables
// and file groups when the target is translated.
type Operator struct {
	Name      string
	Commands  [][]string
	Variables map[string]string

	// Explicit operators are not part of the default build.
	Explicit bool

	// Syncio operators need exclusive interactive access to the output
	// streams; at most one such operator runs at a time.
	Syncio bool

	target    *Target
	buildSets []*BuildSet
}

func newOperator(t *Target, name string, commands [][]string) *Operator {
	return &Operator{
		Name:      name,
		Commands:  commands,
		Variables: make(map[string]string),
		target:    t,
	}
}

// Target returns the target the operator belongs to.
func (op *Operator) Target() *Target { return op.target }

// AddBuildSet binds a build set to the operator.
func (op *Operator) AddBuildSet(bs *BuildSet) {
	bs.op = op
	op.buildSets = append(op.buildSets, bs)
}

// BuildSets returns the bound build sets in binding order.
func (op *Operator) BuildSets() []*BuildSet {
	out := make([]*BuildSet, len(op.buildSets))
	copy(out, op.buildSets)
	return out
}

func (op *Operator) removeBuildSet(bs *BuildSet) {
	for i, x := range op.buildSets {
		if x == bs {
			op.buildSets = append(op.buildSets[:i], op.buildSets[i+1:]...)
			return
		}
	}
}

var placeholderRe = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)`)

// ExpandCommands resolves the operator's command templates against a
// build set. An argument that is exactly one "${group}" placeholder for
// a file group is spliced into one argument per file; placeholders
// inside longer arguments expand to the operator or build-set variable,
// or to the space-joined group files. Unresolved placeholders are left
// untouched for the shell.
func (op *Operator) ExpandCommands(bs *BuildSet) ([][]string, error) {
	out := make([][]string, 0, len(op.Commands))
	for _, command := range op.Commands {
		expanded := make([]string, 0, len(command))
		for _, arg := range command {
			if files, ok := op.spliceGroup(bs, arg); ok {
				expanded = append(expanded, files...)
				continue
			}
			expanded = append(expanded, op.expandArg(bs, arg))
		}
		out = append(out, expanded)
	}
	return out, nil
}

// spliceGroup handles arguments that are exactly one group placeholder.
func (op *Operator) spliceGroup(bs *BuildSet, arg string) ([]string, bool) {
	if !strings.HasPrefix(arg, "${") || !strings.HasSuffix(arg, "}") {
		return nil, false
	}
	name := arg[2 : len(arg)-1]
	if placeholderRe.FindString(arg) != arg {
		return nil, false
	}
	if files, ok := bs.Input(name); ok {
		return files, true
	}
	if files, ok := bs.Output(name); ok {
		return files, true
	}
	return nil, false
}

func (op *Operator) expandArg(bs *BuildSet, arg string) string {
	return placeholderRe.ReplaceAllStringFunc(arg, func(match string) string {
		name := placeholderName(match)
		if v, ok := bs.Variables[name]; ok {
			return v
		}
		if v, ok := op.Variables[name]; ok {
			return v
		}
		if files, ok := bs.Input(name); ok {
			return strings.Join(files, " ")
		}
		if files, ok := bs.Output(name); ok {
			return strings.Join(files, " ")
		}
		return match
	})
}

func placeholderName(match string) string {
	if strings.HasPrefix(match, "${") {
		return match[2 : len(match)-1]
	}
	return match[1:]
}
