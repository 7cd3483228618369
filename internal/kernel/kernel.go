// Package kernel bundles the registry, variable store, and diagnostic sink
// into a single context value threaded explicitly through every
// operation, and exposes ProcessLine: the core's half of the per-line
// dispatch loop the surrounding shell drives.
//
// There is no process-wide singleton; every test and every embedder
// constructs its own Kernel with New.
package kernel

import (
	"opsh/internal/diag"
	"opsh/internal/eval"
	"opsh/internal/expand"
	"opsh/internal/kernelerr"
	"opsh/internal/lexer"
	"opsh/internal/operator"
	"opsh/internal/store"
	"opsh/internal/token"
)

// LastOpResultVar is the well-known scope variable the dispatcher
// maintains after every standalone expression (never written by the
// evaluator itself).
const LastOpResultVar = "LAST_OP_RESULT"

// Kernel is the core's execution context: registry, store, tokenizer,
// expander, and evaluator, all wired to the same diagnostic sink.
type Kernel struct {
	Registry *operator.Registry
	Vars     *store.Store
	Sink     diag.Sink

	tokenizer *lexer.Tokenizer
	expander  *expand.Expander
	bridge    *eval.HandlerBridge
	evaluator *eval.Evaluator
}

// resultWriter is implemented by a FunctionRuntime whose fallback path
// (e.g. internal/collab.FunctionRuntimeAdapter's external-command
// dispatch) needs to publish a value into the store after the fact. The
// runtime is constructed before the Kernel that owns the store it
// needs, so New wires this in once vars exists rather than requiring
// every FunctionRuntime to take a *store.Store up front.
type resultWriter interface {
	SetResultWriter(set func(name, value string) error)
}

// New builds a Kernel. runtime is the user-function runtime handlers are
// dispatched to; sink receives every diagnostic (a nil sink discards).
func New(runtime eval.FunctionRuntime, sink diag.Sink) *Kernel {
	if sink == nil {
		sink = diag.Discard{}
	}
	registry := operator.New()
	vars := store.New()
	expander := expand.New(vars)
	if rw, ok := runtime.(resultWriter); ok {
		rw.SetResultWriter(func(name, value string) error {
			return vars.Set(name, value, false)
		})
	}
	bridge := eval.NewHandlerBridge(runtime, vars, sink)
	evaluator := eval.New(registry, vars, expander, bridge, sink)

	return &Kernel{
		Registry:  registry,
		Vars:      vars,
		Sink:      sink,
		tokenizer: lexer.New(registry),
		expander:  expander,
		bridge:    bridge,
		evaluator: evaluator,
	}
}

// LineKind classifies how ProcessLine handled a line, for callers that
// want to branch on it (e.g. a REPL echoing differently for an
// assignment than for a standalone expression).
type LineKind int

const (
	LineEmpty LineKind = iota
	LineDefOperator
	LineAssignment
	LineExpression
)

// LineResult is what ProcessLine reports back to the surrounding shell.
type LineResult struct {
	Kind  LineKind
	Value string
	Err   error
}

// ProcessLine tokenizes raw_line, classifies it, and for the cases the
// core owns (defoperator, a bare "name = expr" assignment, or a
// standalone expression) runs the corresponding operation. Block/control
// structures and external command dispatch are not recognized here: a
// line that is neither a defoperator statement nor an assignment is
// evaluated as a standalone expression and reported as LineExpression.
func (k *Kernel) ProcessLine(rawLine string, lineNo int) LineResult {
	tokens := k.tokenizer.Tokenize(rawLine, lineNo)
	k.reportLexErrors(tokens)
	if tokens[0].Kind == token.Eof {
		return LineResult{Kind: LineEmpty}
	}

	if tokens[0].Kind == token.Word && tokens[0].Text == "defoperator" {
		return k.processDefOperator(tokens[1:])
	}

	if len(tokens) >= 2 && tokens[0].Kind == token.Word && tokens[1].Kind == token.Assign {
		return k.processAssignment(tokens[0].Text, tokens[2:])
	}

	return k.processExpression(tokens)
}

// reportLexErrors surfaces every Error-kind token the tokenizer produced
// as its own LexError diagnostic. The Tokenizer itself has no Sink (it
// never aborts a scan to report one), so this is the one place an
// unrecognized character actually reaches the diagnostic channel instead
// of silently falling into the evaluator's UnexpectedTokenOperand or
// TrailingTokens handling.
func (k *Kernel) reportLexErrors(tokens []token.Token) {
	for _, tok := range tokens {
		if tok.Kind != token.Error {
			continue
		}
		k.Sink.Report(kernelerr.LexError(tok.Line, tok.Column, "unrecognized character %q", tok.Text))
	}
}

func (k *Kernel) processDefOperator(tokens []token.Token) LineResult {
	def, err := operator.ParseDefOperator(tokens)
	if err != nil {
		k.Sink.Report(asKernelErr(err))
		return LineResult{Kind: LineDefOperator, Err: err}
	}
	prev, err := k.Registry.Register(def)
	if err != nil {
		k.Sink.Report(asKernelErr(err))
		return LineResult{Kind: LineDefOperator, Err: err}
	}
	if prev != nil {
		k.Sink.Report(kernelerr.RegistryError(kernelerr.OperatorRedefined,
			"operator %q redefined: precedence %d -> %d, handler %q -> %q",
			def.Symbol, prev.Precedence, def.Precedence, prev.HandlerName, def.HandlerName))
	}
	return LineResult{Kind: LineDefOperator, Value: def.Symbol}
}

func (k *Kernel) processAssignment(name string, rhs []token.Token) LineResult {
	value, err := k.evaluator.Evaluate(rhs)
	if err != nil {
		return LineResult{Kind: LineAssignment, Value: value, Err: err}
	}
	if err := k.Vars.Set(name, value, false); err != nil {
		k.Sink.Report(asKernelErr(err))
		return LineResult{Kind: LineAssignment, Value: value, Err: err}
	}
	return LineResult{Kind: LineAssignment, Value: value}
}

func (k *Kernel) processExpression(tokens []token.Token) LineResult {
	value, err := k.evaluator.Evaluate(tokens)
	// LAST_OP_RESULT is written for every standalone expression regardless
	// of success, so a failing expression's marker string is observable by
	// whatever reads LAST_OP_RESULT next.
	if setErr := k.Vars.Set(LastOpResultVar, value, false); setErr != nil {
		k.Sink.Report(asKernelErr(setErr))
	}
	return LineResult{Kind: LineExpression, Value: value, Err: err}
}

func asKernelErr(err error) *kernelerr.Error {
	if kerr, ok := err.(*kernelerr.Error); ok {
		return kerr
	}
	return kernelerr.New(kernelerr.ExprParseErrorKind, kernelerr.UnexpectedTokenOperand, 0, 0, err.Error())
}
