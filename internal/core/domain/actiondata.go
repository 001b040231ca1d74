package domain

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Null does nothing. Targets that perform no work still need at least
// one action to participate in scheduling; translation adds one of
// these when a target produced no other actions.
type Null struct{}

func (Null) Skippable(*Action) bool { return true }

func (Null) Execute(context.Context, *Action, *Progress) (int, error) { return 0, nil }

func (Null) Display(a *Action) string { return "null " + a.LongName() }

func (Null) HashComponents(*Action) []HashComponent {
	return []HashComponent{StringComponent("null")}
}

// MakeDirectory ensures a directory exists.
type MakeDirectory struct {
	Directory string
}

func (m *MakeDirectory) Skippable(*Action) bool {
	info, err := os.Stat(m.Directory)
	return err == nil && info.IsDir()
}

func (m *MakeDirectory) Execute(_ context.Context, _ *Action, p *Progress) (int, error) {
	if err := os.MkdirAll(m.Directory, 0o750); err != nil {
		p.Printf("%v\n", err)
		return 1, nil
	}
	return 0, nil
}

func (m *MakeDirectory) Display(*Action) string {
	return "mkdir " + quoteArg(m.Directory)
}

func (m *MakeDirectory) HashComponents(*Action) []HashComponent {
	return []HashComponent{StringComponent("mkdir"), StringComponent(m.Directory)}
}

// RunCommands executes one or more argv sequences in order, stopping at
// the first failing one. The declared input and output file lists drive
// the staleness check and the exported graph edges; the environment
// override is scoped to the child processes.
type RunCommands struct {
	Commands    [][]string
	InputFiles  []string
	OutputFiles []string
	Environ     map[string]string
	Cwd         string
}

// DeclaredInputs implements InputFiler.
func (r *RunCommands) DeclaredInputs() []string { return r.InputFiles }

// DeclaredOutputs implements OutputFiler.
func (r *RunCommands) DeclaredOutputs() []string { return r.OutputFiles }

// Skippable reports whether all declared input files are strictly older
// than all declared output files and at least one output exists. With
// no declared inputs the outputs merely need to exist; with no declared
// outputs there is no way to tell, so the action always reruns.
func (r *RunCommands) Skippable(*Action) bool {
	if len(r.InputFiles) == 0 {
		if len(r.OutputFiles) == 0 {
			return false
		}
		for _, f := range r.OutputFiles {
			if _, err := os.Stat(f); err != nil {
				return false
			}
		}
		return true
	}
	if len(r.OutputFiles) == 0 {
		return false
	}

	newestInput := time.Time{}
	for _, f := range r.InputFiles {
		info, err := os.Stat(f)
		if err != nil {
			// A missing input forces a rerun so the command can report it.
			return false
		}
		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}
	oldestOutput := time.Time{}
	for i, f := range r.OutputFiles {
		info, err := os.Stat(f)
		if err != nil {
			return false
		}
		if i == 0 || info.ModTime().Before(oldestOutput) {
			oldestOutput = info.ModTime()
		}
	}
	return newestInput.Before(oldestOutput)
}

func (r *RunCommands) Execute(ctx context.Context, _ *Action, p *Progress) (int, error) {
	for _, command := range r.Commands {
		code, err := p.System(ctx, command, r.Cwd, r.Environ)
		if err != nil {
			return 0, err
		}
		if code != 0 {
			return code, nil
		}
	}
	return 0, nil
}

func (r *RunCommands) Display(*Action) string {
	parts := make([]string, 0, len(r.Commands))
	for _, command := range r.Commands {
		quoted := make([]string, len(command))
		for i, arg := range command {
			quoted[i] = quoteArg(arg)
		}
		parts = append(parts, strings.Join(quoted, " "))
	}
	return "$ " + strings.Join(parts, " && ")
}

func (r *RunCommands) HashComponents(*Action) []HashComponent {
	out := []HashComponent{StringComponent("run")}
	for _, command := range r.Commands {
		out = append(out, StringComponent(strings.Join(command, "\x00")))
	}
	for _, k := range sortedKeys(r.Environ) {
		out = append(out, StringComponent(k+"="+r.Environ[k]))
	}
	for _, f := range r.InputFiles {
		out = append(out, FileComponent(f))
	}
	for _, f := range r.OutputFiles {
		out = append(out, StringComponent(f))
	}
	return out
}

// DownloadFile fetches a URL to a destination path.
type DownloadFile struct {
	URL      string
	Filename string
}

// DeclaredOutputs implements OutputFiler.
func (d *DownloadFile) DeclaredOutputs() []string { return []string{d.Filename} }

func (d *DownloadFile) Skippable(*Action) bool {
	info, err := os.Stat(d.Filename)
	return err == nil && info.Mode().IsRegular()
}

func (d *DownloadFile) Execute(ctx context.Context, _ *Action, p *Progress) (int, error) {
	p.Printf("[download] %s\n", d.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return 0, zerr.Wrap(err, "invalid download url")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "download failed"), "url", d.URL)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer
	if resp.StatusCode != http.StatusOK {
		p.Printf("unexpected status %s for %s\n", resp.Status, d.URL)
		return 1, nil
	}

	if err := os.MkdirAll(filepath.Dir(d.Filename), 0o750); err != nil {
		return 0, zerr.Wrap(err, "failed to create download directory")
	}

	// The destination only appears once fully written, so an interrupted
	// transfer never reads as skippable on the next run.
	tmp, err := os.CreateTemp(filepath.Dir(d.Filename), filepath.Base(d.Filename)+".*")
	if err != nil {
		return 0, zerr.Wrap(err, "failed to create download file")
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return 0, zerr.With(zerr.Wrap(err, "download write failed"), "path", d.Filename)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, zerr.Wrap(err, "failed to close download file")
	}
	if err := os.Rename(tmp.Name(), d.Filename); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, zerr.Wrap(err, "failed to finalize download file")
	}
	return 0, nil
}

func (d *DownloadFile) Display(*Action) string {
	return "download " + d.URL
}

func (d *DownloadFile) HashComponents(*Action) []HashComponent {
	return []HashComponent{
		StringComponent("download"),
		StringComponent(d.URL),
		StringComponent(d.Filename),
	}
}

// quoteArg quotes a single shell argument for display purposes.
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'`$&|;<>()*?[]#~%{}\\") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
