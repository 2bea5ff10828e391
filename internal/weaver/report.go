package weaver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"martianoff/sandbox/internal/sandbox"
	"martianoff/sandbox/sandboxerr"
)

// Report summarizes one weaving run.
type Report struct {
	RunID        string        `yaml:"run_id"`
	Module       string        `yaml:"module"`
	ProxyModules []string      `yaml:"proxy_modules,omitempty"`
	Proxies      int           `yaml:"proxies"`
	Stats        sandbox.Stats `yaml:"stats"`
	Warnings     []string      `yaml:"warnings,omitempty"`
	Diagnostics  []Diagnostic  `yaml:"diagnostics,omitempty"`
}

// Diagnostic is a reported problem, split into its parts.
type Diagnostic struct {
	Category sandboxerr.ErrorType `yaml:"category"`
	Message  string               `yaml:"message"`
	Context  string               `yaml:"context,omitempty"`
}

func newDiagnostic(err error) Diagnostic {
	d := Diagnostic{Category: sandboxerr.TypeOf(err), Message: err.Error()}
	var ctx *sandboxerr.ContextError
	if errors.As(err, &ctx) {
		d.Message = ctx.Err.Error()
		d.Context = ctx.Context
	}
	return d
}

func (d Diagnostic) String() string {
	if d.Context == "" {
		return d.Message
	}
	return fmt.Sprintf("%s in '%s'", d.Message, d.Context)
}

// Clean reports whether the run produced no diagnostics.
func (r *Report) Clean() bool {
	return len(r.Diagnostics) == 0
}

// Count returns the number of diagnostics in a category.
func (r *Report) Count(category sandboxerr.ErrorType) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Category == category {
			n++
		}
	}
	return n
}

// Summary is a one-line description of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("%s: %d types, %d methods, %d instructions, %d substitutions, %d diagnostics",
		r.Module, r.Stats.Types, r.Stats.Methods, r.Stats.Instructions, r.Stats.Substitutions, len(r.Diagnostics))
}

// Write encodes the report as YAML.
func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes the report to path as YAML.
func (r *Report) Save(path string) error {
	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
