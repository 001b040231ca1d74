package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

// FileGroup is a named, ordered sequence of absolute paths.
type FileGroup struct {
	Name  string
	Files []string
}

func (g *FileGroup) clone() *FileGroup {
	files := make([]string, len(g.Files))
	copy(files, g.Files)
	return &FileGroup{Name: g.Name, Files: files}
}

// BuildSet is a named bag of input and output file groups plus
// substitution variables, the unit an operator's command templates are
// expanded against. The "from" links record which build sets a derived
// set was produced out of; they are informational only and carry no
// scheduling meaning.
type BuildSet struct {
	Name        string
	Description string
	Variables   map[string]string

	inputs  []*FileGroup
	outputs []*FileGroup
	from    []*BuildSet
	op      *Operator
}

// NewBuildSet creates an empty build set.
func NewBuildSet(name string) *BuildSet {
	return &BuildSet{Name: name, Variables: make(map[string]string)}
}

// AddInputs appends files to the named input group, creating it on first
// use. Group declaration order is preserved for deterministic expansion.
func (bs *BuildSet) AddInputs(group string, files ...string) {
	addToGroups(&bs.inputs, group, files)
}

// AddOutputs appends files to the named output group.
func (bs *BuildSet) AddOutputs(group string, files ...string) {
	addToGroups(&bs.outputs, group, files)
}

func addToGroups(groups *[]*FileGroup, name string, files []string) {
	for _, g := range *groups {
		if g.Name == name {
			g.Files = append(g.Files, files...)
			return
		}
	}
	*groups = append(*groups, &FileGroup{Name: name, Files: files})
}

// Inputs returns the input groups in declaration order.
func (bs *BuildSet) Inputs() []*FileGroup { return bs.inputs }

// Outputs returns the output groups in declaration order.
func (bs *BuildSet) Outputs() []*FileGroup { return bs.outputs }

// Input returns the files of a named input group.
func (bs *BuildSet) Input(name string) ([]string, bool) {
	return groupFiles(bs.inputs, name)
}

// Output returns the files of a named output group.
func (bs *BuildSet) Output(name string) ([]string, bool) {
	return groupFiles(bs.outputs, name)
}

func groupFiles(groups []*FileGroup, name string) ([]string, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g.Files, true
		}
	}
	return nil, false
}

// AllInputs returns every input file across all groups, in group order.
func (bs *BuildSet) AllInputs() []string { return flatten(bs.inputs) }

// AllOutputs returns every output file across all groups, in group order.
func (bs *BuildSet) AllOutputs() []string { return flatten(bs.outputs) }

func flatten(groups []*FileGroup) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Files...)
	}
	return out
}

// From returns the build sets this one was derived from.
func (bs *BuildSet) From() []*BuildSet { return bs.from }

// Operator returns the operator the build set is bound to, nil if
// unbound or fizzled.
func (bs *BuildSet) Operator() *Operator { return bs.op }

// Fizzle unlinks the build set from its operator. A fizzled set is no
// longer part of the live graph; partitioning does this to the source
// set it supersedes.
func (bs *BuildSet) Fizzle() {
	if bs.op != nil {
		bs.op.removeBuildSet(bs)
		bs.op = nil
	}
}

// Partition splits the build set into one build set per element of the
// named groups. All named groups must have equal cardinality N; the i-th
// result holds the i-th file of each partitioned group plus full copies
// of the remaining groups, the variables and a "from" link to the
// source. With no group names every group is partitioned. Unless fizzle
// is false the source set is unlinked from its operator first.
func (bs *BuildSet) Partition(onGroups []string, fizzle bool) ([]*BuildSet, error) {
	selected := make(map[string]bool)
	if len(onGroups) == 0 {
		for _, g := range bs.inputs {
			selected[g.Name] = true
		}
		for _, g := range bs.outputs {
			selected[g.Name] = true
		}
	} else {
		for _, name := range onGroups {
			if _, ok := bs.Input(name); !ok {
				if _, ok := bs.Output(name); !ok {
					return nil, zerr.With(zerr.With(ErrPartition,
						"build_set", bs.Name), "missing_group", name)
				}
			}
			selected[name] = true
		}
	}
	if len(selected) == 0 {
		return nil, zerr.With(zerr.Wrap(ErrPartition, "no groups to partition on"),
			"build_set", bs.Name)
	}

	cardinality := -1
	for _, g := range append(append([]*FileGroup{}, bs.inputs...), bs.outputs...) {
		if !selected[g.Name] {
			continue
		}
		if cardinality == -1 {
			cardinality = len(g.Files)
		} else if len(g.Files) != cardinality {
			return nil, zerr.With(zerr.With(zerr.With(ErrPartition,
				"build_set", bs.Name), "group", g.Name),
				"cardinality", fmt.Sprintf("%d != %d", len(g.Files), cardinality))
		}
	}

	if fizzle {
		bs.Fizzle()
	}

	out := make([]*BuildSet, 0, cardinality)
	for i := 0; i < cardinality; i++ {
		part := NewBuildSet(fmt.Sprintf("%s.%d", bs.Name, i))
		part.Description = bs.Description
		for k, v := range bs.Variables {
			part.Variables[k] = v
		}
		for _, g := range bs.inputs {
			if selected[g.Name] {
				part.AddInputs(g.Name, g.Files[i])
			} else {
				part.inputs = append(part.inputs, g.clone())
			}
		}
		for _, g := range bs.outputs {
			if selected[g.Name] {
				part.AddOutputs(g.Name, g.Files[i])
			} else {
				part.outputs = append(part.outputs, g.clone())
			}
		}
		part.from = append(part.from, bs)
		out = append(out, part)
	}
	return out, nil
}

// Join unions the file groups of several build sets into one new set
// recording all inputs as its provenance. A single set is returned
// unchanged. Variables of later sets win on key collisions.
func Join(sets []*BuildSet) *BuildSet {
	if len(sets) == 1 {
		return sets[0]
	}
	joined := NewBuildSet("join")
	for _, bs := range sets {
		for _, g := range bs.inputs {
			joined.AddInputs(g.Name, g.Files...)
		}
		for _, g := range bs.outputs {
			joined.AddOutputs(g.Name, g.Files...)
		}
		for k, v := range bs.Variables {
			joined.Variables[k] = v
		}
		joined.from = append(joined.from, bs)
	}
	return joined
}
