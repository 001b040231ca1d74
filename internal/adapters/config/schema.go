package config

// Forgefile represents the structure of the forge.yaml build script.
type Forgefile struct {
	Project    ProjectDTO        `yaml:"project"`
	Options    map[string]string `yaml:"options"`
	Properties PropertiesDTO     `yaml:"properties"`
	Targets    []TargetDTO       `yaml:"targets"`
}

// ProjectDTO identifies the module a script declares.
type ProjectDTO struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// PropertiesDTO declares the target and dependency property schemas.
type PropertiesDTO struct {
	Target     []PropertyDTO `yaml:"target"`
	Dependency []PropertyDTO `yaml:"dependency"`
}

// PropertyDTO declares one property: its name, value type and whether
// reads inherit values from public dependencies by default.
type PropertyDTO struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Inherit bool   `yaml:"inherit"`
}

// TargetDTO represents a target definition. Targets form an ordered
// list so declaration order is stable across loads.
type TargetDTO struct {
	Name      string         `yaml:"name"`
	Public    map[string]any `yaml:"public"`
	Private   map[string]any `yaml:"private"`
	DependsOn []DependsDTO   `yaml:"dependsOn"`
	Operators []OperatorDTO  `yaml:"operators"`
}

// DependsDTO represents one dependency edge of a target.
type DependsDTO struct {
	Target     string         `yaml:"target"`
	Public     bool           `yaml:"public"`
	Properties map[string]any `yaml:"properties"`
}

// OperatorDTO represents one operator of a target. Inputs and outputs
// name file groups; a non-nil foreach list partitions the build set
// over the named groups (all groups when the list is empty), producing
// one action per element.
type OperatorDTO struct {
	Name     string              `yaml:"name"`
	Commands [][]string          `yaml:"commands"`
	Inputs   map[string][]string `yaml:"inputs"`
	Outputs  map[string][]string `yaml:"outputs"`
	Vars     map[string]string   `yaml:"vars"`
	ForEach  []string            `yaml:"foreach"`
	Explicit bool                `yaml:"explicit"`
	Syncio   bool                `yaml:"syncio"`
}
