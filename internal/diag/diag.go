// Package diag implements the core's diagnostic channel: every LexError,
// ExprParseError, RegistryError, and HandlerError is reported here, and
// reporting never aborts the process — nothing in this package can turn a
// diagnostic into a panic or an os.Exit.
package diag

import (
	"github.com/sirupsen/logrus"

	"opsh/internal/kernelerr"
)

// Sink receives diagnostics. Implementations must not block the caller for
// long or fail loudly; a dropped diagnostic is preferable to a crashed
// kernel. Nothing at the core level is fatal: the process always continues.
type Sink interface {
	Report(err *kernelerr.Error)
}

// Logrus adapts a *logrus.Logger into a Sink. It is the Sink the opsh CLI
// installs (kernel.New itself discards diagnostics when given a nil sink),
// grounded on the rami3l-golox manifest's logrus-based interpreter
// diagnostics.
type Logrus struct {
	log *logrus.Logger
}

// NewLogrus builds a Logrus sink. A nil logger falls back to
// logrus.StandardLogger().
func NewLogrus(log *logrus.Logger) *Logrus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logrus{log: log}
}

// Report logs err as a structured warning. Every kernelerr.Kind logs at
// WarnLevel: the kernel never decides a script's error is fatal to the
// process, only to the expression currently being evaluated.
func (l *Logrus) Report(err *kernelerr.Error) {
	if err == nil {
		return
	}
	fields := logrus.Fields{
		"kind": err.Kind.String(),
		"code": string(err.Code),
	}
	if err.Line > 0 {
		fields["line"] = err.Line
		fields["column"] = err.Column
	}
	l.log.WithFields(fields).Warn(err.Message)
}

// Discard is a Sink that drops every diagnostic. Useful for tests that
// assert on return values rather than log output.
type Discard struct{}

func (Discard) Report(*kernelerr.Error) {}

// Collector is a Sink that records diagnostics for later inspection, used
// by tests that assert specific diagnostics were raised for a given input.
type Collector struct {
	Errors []*kernelerr.Error
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Report(err *kernelerr.Error) {
	if err == nil {
		return
	}
	c.Errors = append(c.Errors, err)
}
