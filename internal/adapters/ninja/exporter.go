package ninja

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// BuildFileName is the name of the exported document inside a build
// directory.
const BuildFileName = "build.ninja"

var _ ports.Exporter = (*Exporter)(nil)

var unsafeNameRegex = regexp.MustCompile(`[^\w\-.]+`)

// Exporter serializes the action graph as a ninja build file. Every
// action becomes one rule invoking this program back in run-node mode,
// so ninja contributes ordering and staleness while the action payloads
// stay in-process.
type Exporter struct {
	hasher ports.Hasher

	// SelfCommand is the argv prefix that re-invokes this program.
	SelfCommand []string
}

// NewExporter creates an Exporter deriving synthetic names with the
// given hasher.
func NewExporter(hasher ports.Hasher) *Exporter {
	return &Exporter{hasher: hasher, SelfCommand: []string{"forge"}}
}

// Export writes the full graph document. Node iteration is a stable
// sort by long name, so re-exports of an unchanged graph are
// byte-identical.
func (e *Exporter) Export(w io.Writer, session *domain.Session) error {
	actions := session.Actions()
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].LongName() < actions[j].LongName()
	})

	names := make(map[*domain.Action]string, len(actions))
	for _, a := range actions {
		names[a] = e.syntheticName(a)
	}

	out := newWriter(w)
	out.Comment("This file was automatically generated by forge.")
	out.Comment("It is not recommended to edit this file manually.")
	out.Newline()
	out.Variable("builddir", session.BuildDirectory)
	out.Newline()

	var defaults []string
	for _, a := range actions {
		phonyName := names[a]
		ruleName := "rule_" + phonyName
		if !a.Explicit {
			defaults = append(defaults, phonyName)
		}

		pool := ""
		if a.Syncio {
			pool = "console"
		}
		out.Rule(ruleName, e.nodeCommand(session, a), escapeText(a.Display()), pool)

		// File-level edges wherever the dependency declares outputs;
		// the phony name is the order-only fallback for the rest.
		var implicit, orderOnly []string
		for _, dep := range a.Deps {
			if outputs := domain.ActionOutputs(dep); len(outputs) > 0 {
				implicit = append(implicit, outputs...)
			} else {
				orderOnly = append(orderOnly, names[dep])
			}
		}

		outputs := domain.ActionOutputs(a)
		buildOutputs := outputs
		if len(buildOutputs) == 0 {
			buildOutputs = []string{phonyName}
		}
		out.Build(buildOutputs, ruleName, domain.ActionInputs(a), implicit, orderOnly)
		if len(outputs) > 0 {
			out.Build([]string{phonyName}, "phony", outputs, nil, nil)
		}
		out.Newline()
	}

	if len(defaults) > 0 {
		out.Default(defaults)
	}

	if err := out.Err(); err != nil {
		return zerr.Wrap(err, "failed to write export document")
	}
	return nil
}

// syntheticName derives the stable external name of an action: its
// sanitized long name plus the content hash, unique when anything about
// the node changed and stable otherwise.
func (e *Exporter) syntheticName(a *domain.Action) string {
	return unsafeNameRegex.ReplaceAllString(a.LongName(), "_") + "_" + e.hasher.ActionHash(a)
}

func (e *Exporter) nodeCommand(session *domain.Session, a *domain.Action) string {
	argv := make([]string, 0, len(e.SelfCommand)+4)
	argv = append(argv, e.SelfCommand...)
	argv = append(argv, "--build-directory", session.BuildDirectory, "run-node", a.LongName())
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = quoteArg(arg)
	}
	return escapeText(strings.Join(quoted, " "))
}

// quoteArg single-quotes an argument when it contains shell
// metacharacters.
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$&|;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// escapeText escapes "$" in free-form rule text so ninja does not treat
// it as a variable reference.
func escapeText(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
