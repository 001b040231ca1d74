// Package ninja exports the action graph as a ninja build file.
package ninja

import (
	"fmt"
	"io"
	"strings"
)

// writer emits ninja syntax. It is a minimal serializer, no wrapping,
// one declaration per line.
type writer struct {
	w   io.Writer
	err error
}

func newWriter(w io.Writer) *writer {
	return &writer{w: w}
}

func (n *writer) printf(format string, args ...any) {
	if n.err != nil {
		return
	}
	_, n.err = fmt.Fprintf(n.w, format, args...)
}

func (n *writer) Comment(text string) {
	n.printf("# %s\n", text)
}

func (n *writer) Newline() {
	n.printf("\n")
}

func (n *writer) Variable(key, value string) {
	n.printf("%s = %s\n", key, value)
}

func (n *writer) Rule(name, command, description, pool string) {
	n.printf("rule %s\n", name)
	n.printf("  command = %s\n", command)
	if description != "" {
		n.printf("  description = %s\n", description)
	}
	if pool != "" {
		n.printf("  pool = %s\n", pool)
	}
}

func (n *writer) Build(outputs []string, rule string, inputs, implicit, orderOnly []string) {
	n.printf("build %s: %s", joinPaths(outputs), rule)
	if len(inputs) > 0 {
		n.printf(" %s", joinPaths(inputs))
	}
	if len(implicit) > 0 {
		n.printf(" | %s", joinPaths(implicit))
	}
	if len(orderOnly) > 0 {
		n.printf(" || %s", joinPaths(orderOnly))
	}
	n.printf("\n")
}

func (n *writer) Default(targets []string) {
	n.printf("default %s\n", joinPaths(targets))
}

func (n *writer) Err() error {
	return n.err
}

func joinPaths(paths []string) string {
	escaped := make([]string, len(paths))
	for i, p := range paths {
		escaped[i] = escapePath(p)
	}
	return strings.Join(escaped, " ")
}

// escapePath escapes the characters ninja treats specially in paths.
func escapePath(p string) string {
	p = strings.ReplaceAll(p, "$", "$$")
	p = strings.ReplaceAll(p, " ", "$ ")
	p = strings.ReplaceAll(p, ":", "$:")
	return p
}
