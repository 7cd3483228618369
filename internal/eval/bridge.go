package eval

import (
	"fmt"
	"strings"

	"opsh/internal/diag"
	"opsh/internal/kernelerr"
	"opsh/internal/store"
	"opsh/internal/token"
)

// noResultMarker is published when a handler ran successfully but never set
// its result-holder variable: a warning, not a failure.
const noResultMarker = "<no-result>"

// FunctionRuntime is the boundary to the user-function runtime: defining
// and invoking script-level functions by name. The evaluator only ever
// calls it through this interface, the same way it only ever sees the
// variable store through store.Store — the runtime's own definition
// mechanics are an external collaborator (see internal/collab).
type FunctionRuntime interface {
	// Call invokes the function named name with args already built as
	// Tokens (operator symbol, each operand, result-holder name, in that
	// order). Implementations validate arity and report HandlerNotFound /
	// HandlerParamMismatch via kernelerr.HandlerError.
	Call(name string, args []token.Token) error
}

// HandlerBridge turns an operator application into a function call plus a
// read-back of the published result: it never interprets an operator
// itself, only plumbs operands in and a result out.
type HandlerBridge struct {
	runtime FunctionRuntime
	vars    *store.Store
	sink    diag.Sink
	counter int
}

// NewHandlerBridge builds a bridge over runtime, reading/writing result
// holders in vars and reporting failures to sink.
func NewHandlerBridge(runtime FunctionRuntime, vars *store.Store, sink diag.Sink) *HandlerBridge {
	if sink == nil {
		sink = diag.Discard{}
	}
	return &HandlerBridge{runtime: runtime, vars: vars, sink: sink}
}

// Invoke calls handlerName with opSymbol and args, and returns the string
// published to the synthesized result-holder variable. A handler that runs
// but never sets its result holder is not an error — it yields
// noResultMarker and a reported HandlerNoResult diagnostic.
func (b *HandlerBridge) Invoke(handlerName, opSymbol string, args []string) (string, error) {
	resultHolder := b.nextResultHolder()

	callArgs := make([]token.Token, 0, len(args)+2)
	callArgs = append(callArgs, token.Token{Kind: token.String, Text: quoteString(opSymbol)})
	for _, a := range args {
		callArgs = append(callArgs, token.Token{Kind: token.String, Text: quoteString(a)})
	}
	callArgs = append(callArgs, token.Token{Kind: token.Word, Text: resultHolder})

	if err := b.runtime.Call(handlerName, callArgs); err != nil {
		kerr := asHandlerError(err, handlerName)
		b.sink.Report(kerr)
		return noResultMarker, kerr
	}

	value, ok := b.vars.Get(resultHolder)
	if !ok {
		kerr := kernelerr.HandlerError(kernelerr.HandlerNoResult,
			"handler %q produced no result for operator %q", handlerName, opSymbol)
		b.sink.Report(kerr)
		return noResultMarker, nil
	}
	return value, nil
}

func (b *HandlerBridge) nextResultHolder() string {
	b.counter++
	return fmt.Sprintf("__opsh_result_%d", b.counter)
}

func asHandlerError(err error, handlerName string) *kernelerr.Error {
	if kerr, ok := err.(*kernelerr.Error); ok {
		return kerr
	}
	return kernelerr.HandlerError(kernelerr.HandlerNotFound, "handler %q: %v", handlerName, err)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}
