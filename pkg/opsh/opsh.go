// Package opsh is the public embeddable API: a host process links this
// package to run scripted lines through the kernel without reaching into
// internal/ directly.
//
// This mirrors pkg/losp's functional-options Runtime and pkg/dwscript's
// single-facade-struct convention: one constructor, a handful of
// options, a handful of methods — both candidate teachers converge on
// this shape for an embeddable interpreter even though neither is the
// chosen teacher for the core itself (see DESIGN.md's internal/kernel
// entry).
package opsh

import (
	"bufio"
	"io"

	"github.com/sirupsen/logrus"

	"opsh/internal/collab"
	"opsh/internal/diag"
	"opsh/internal/kernel"
	"opsh/internal/token"
)

// Runtime is an opsh execution context: a Kernel plus the line-oriented
// convenience methods a host embeds.
type Runtime struct {
	kernel  *kernel.Kernel
	adapter *collab.FunctionRuntimeAdapter
	sink    diag.Sink
	lineNo  int
}

// Option configures a Runtime during New.
type Option func(*Runtime)

// WithCommandRunner installs a fallback CommandRunner for handler names
// with no in-process registration.
func WithCommandRunner(runner collab.CommandRunner) Option {
	return func(r *Runtime) {
		r.adapter = collab.NewFunctionRuntimeAdapter(runner)
	}
}

// WithLogger installs a logrus.Logger-backed diagnostic sink in place of
// the default, which discards every diagnostic. A nil log falls back to
// logrus.StandardLogger().
func WithLogger(log *logrus.Logger) Option {
	return func(r *Runtime) {
		r.sink = diag.NewLogrus(log)
	}
}

// WithDiscardDiagnostics silences every diagnostic, useful for embedders
// that only care about returned errors.
func WithDiscardDiagnostics() Option {
	return func(r *Runtime) {
		r.sink = diag.Discard{}
	}
}

// New builds a Runtime. With no options it has no in-process handlers
// and no external command fallback, so every operator handler call
// fails with HandlerNotFound until RegisterHandler or
// WithCommandRunner supplies one.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		adapter: collab.NewFunctionRuntimeAdapter(nil),
		sink:    diag.Discard{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.kernel = kernel.New(r.adapter, r.sink)
	return r
}

// RegisterHandler binds an operator handler name to an in-process Go
// function taking only the operator's operands (not the symbol or the
// result-holder token HandlerBridge appends); its return value is
// written into the result holder for HandlerBridge to read back.
func (r *Runtime) RegisterHandler(name string, fn func(args []string) (string, error)) {
	r.adapter.Register(name, r.adaptTokenHandler(fn))
}

func (r *Runtime) adaptTokenHandler(fn func(args []string) (string, error)) func(args []token.Token) error {
	return func(tokens []token.Token) error {
		if len(tokens) < 2 {
			return nil
		}
		resultHolder := tokens[len(tokens)-1].Text
		operands := make([]string, 0, len(tokens)-2)
		for _, t := range tokens[1 : len(tokens)-1] {
			operands = append(operands, unquote(t.Text))
		}
		value, err := fn(operands)
		if err != nil {
			return err
		}
		return r.kernel.Vars.Set(resultHolder, value, false)
	}
}

// EvalLine runs one line of input through the kernel and returns its
// result value: the expression's value for a standalone expression, the
// registered symbol for a defoperator line, the assigned value for an
// assignment, and the empty string for an empty line (see
// kernel.LineResult).
func (r *Runtime) EvalLine(line string) (string, error) {
	r.lineNo++
	res := r.kernel.ProcessLine(line, r.lineNo)
	return res.Value, res.Err
}

// EvalReader runs every line from reader in sequence, returning the last
// line's result (or an error as soon as one line fails).
func (r *Runtime) EvalReader(reader io.Reader) (string, error) {
	scanner := bufio.NewScanner(reader)
	var last string
	for scanner.Scan() {
		val, err := r.EvalLine(scanner.Text())
		if err != nil {
			return val, err
		}
		last = val
	}
	if err := scanner.Err(); err != nil {
		return last, err
	}
	return last, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			out = append(out, s[i])
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// Get reads a variable from the current scope.
func (r *Runtime) Get(name string) (string, bool) {
	return r.kernel.Vars.Get(name)
}

// Set writes a variable into the current scope.
func (r *Runtime) Set(name, value string) error {
	return r.kernel.Vars.Set(name, value, false)
}
