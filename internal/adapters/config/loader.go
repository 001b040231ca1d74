// Package config provides the YAML build-script loader for forge.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// ScriptFileName is the default build script name.
const ScriptFileName = "forge.yaml"

var _ ports.ScriptLoader = (*Loader)(nil)

var validNameRegex = regexp.MustCompile("^[a-zA-Z0-9_.-]+$")

// propTypes maps the schema's type names onto the domain types.
var propTypes = map[string]domain.PropType{
	"string":     domain.StringType{},
	"bool":       domain.BoolType{},
	"stringList": domain.StringListType{},
	"pathList":   domain.PathListType{},
}

// Loader implements ports.ScriptLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads a build script and populates a session from it. The
// returned module records the script path as a dependent file so later
// invocations can detect script changes. Relative input paths resolve
// against the script's directory, relative output paths against the
// module's build directory.
func (l *Loader) Load(scriptPath, buildDir string) (*domain.Session, *domain.Module, error) {
	var script Forgefile
	if err := readAndUnmarshalYAML(scriptPath, &script); err != nil {
		return nil, nil, err
	}

	if script.Project.Name == "" || !validNameRegex.MatchString(script.Project.Name) {
		return nil, nil, zerr.With(zerr.New("invalid project name"),
			"name", script.Project.Name)
	}

	absScript, err := filepath.Abs(scriptPath)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to resolve script path"), "path", scriptPath)
	}

	session := domain.NewSession(buildDir)
	for k, v := range script.Options {
		session.Options[k] = v
	}

	if err := declareProperties(session.TargetProps, script.Properties.Target); err != nil {
		return nil, nil, err
	}
	if err := declareProperties(session.DependencyProps, script.Properties.Dependency); err != nil {
		return nil, nil, err
	}

	version := script.Project.Version
	if version == "" {
		version = "1.0.0"
	}
	module := domain.NewModule(script.Project.Name, version, filepath.Dir(absScript))
	module.AddDependentFile(absScript)
	session.AddModule(module)

	// First pass creates every target so dependency edges can point
	// forward in declaration order.
	for _, dto := range script.Targets {
		if !validNameRegex.MatchString(dto.Name) {
			return nil, nil, zerr.With(zerr.New("invalid target name"), "name", dto.Name)
		}
		if _, err := session.AddTarget(module, dto.Name); err != nil {
			return nil, nil, err
		}
	}

	for _, dto := range script.Targets {
		if err := l.populateTarget(session, module, dto); err != nil {
			return nil, nil, zerr.With(err, "target", dto.Name)
		}
	}

	if len(script.Targets) == 0 {
		l.Logger.Warn("build script declares no targets")
	}

	return session, module, nil
}

func (l *Loader) populateTarget(session *domain.Session, module *domain.Module, dto TargetDTO) error {
	target, err := session.Target(module.Name + "@" + dto.Name)
	if err != nil {
		return err
	}

	if err := setProperties(target.Public, dto.Public); err != nil {
		return err
	}
	if err := setProperties(target.Properties, dto.Private); err != nil {
		return err
	}

	for _, depDTO := range dto.DependsOn {
		other, err := session.Target(qualifyTarget(module, depDTO.Target))
		if err != nil {
			return err
		}
		dep, err := target.AddDependency(other, depDTO.Public)
		if err != nil {
			return err
		}
		if err := setProperties(dep.Properties, depDTO.Properties); err != nil {
			return err
		}
	}

	for _, opDTO := range dto.Operators {
		if err := bindOperator(session, target, opDTO); err != nil {
			return zerr.With(err, "operator", opDTO.Name)
		}
	}
	return nil
}

func bindOperator(session *domain.Session, target *domain.Target, dto OperatorDTO) error {
	if len(dto.Commands) == 0 {
		return zerr.New("operator declares no commands")
	}

	op := target.AddOperator(dto.Name, dto.Commands)
	for k, v := range dto.Vars {
		op.Variables[k] = v
	}
	op.Explicit = dto.Explicit
	op.Syncio = dto.Syncio

	bs := domain.NewBuildSet(dto.Name)
	moduleBuildDir := target.Module.BuildDirectory(session)
	for _, group := range sortedGroupNames(dto.Inputs) {
		bs.AddInputs(group, resolvePaths(target.Module.Directory, dto.Inputs[group])...)
	}
	for _, group := range sortedGroupNames(dto.Outputs) {
		bs.AddOutputs(group, resolvePaths(moduleBuildDir, dto.Outputs[group])...)
	}
	op.AddBuildSet(bs)

	if dto.ForEach != nil {
		parts, err := bs.Partition(dto.ForEach, true)
		if err != nil {
			return err
		}
		for _, part := range parts {
			op.AddBuildSet(part)
		}
	}
	return nil
}

func declareProperties(set *domain.PropertySet, dtos []PropertyDTO) error {
	for _, dto := range dtos {
		typ, ok := propTypes[dto.Type]
		if !ok {
			return zerr.With(zerr.With(zerr.New("unknown property type"),
				"property", dto.Name), "type", dto.Type)
		}
		opts := domain.PropOptions{Inherit: dto.Inherit}
		if err := set.Declare(dto.Name, typ, opts); err != nil {
			return err
		}
	}
	return nil
}

func setProperties(props *domain.Properties, values map[string]any) error {
	for _, name := range sortedValueNames(values) {
		if err := props.Set(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// qualifyTarget resolves a bare target name within the declaring
// module; names containing "@" are used as is.
func qualifyTarget(module *domain.Module, name string) string {
	if strings.Contains(name, "@") {
		return name
	}
	return module.Name + "@" + name
}

func resolvePaths(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = filepath.Clean(p)
			continue
		}
		out[i] = filepath.Join(base, p)
	}
	return out
}

func sortedGroupNames(groups map[string][]string) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func sortedValueNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func readAndUnmarshalYAML(path string, out any) error {
	//nolint:gosec // Path is provided by trusted caller
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read build script"), "path", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to parse build script"), "path", path)
	}
	return nil
}
