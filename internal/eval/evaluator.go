// Package eval implements the ExpressionEvaluator and HandlerBridge: a
// precedence-climbing parser that calls back into script-defined handlers
// for every operator application instead of building or walking an AST.
package eval

import (
	"fmt"
	"strings"

	"opsh/internal/diag"
	"opsh/internal/expand"
	"opsh/internal/kernelerr"
	"opsh/internal/operator"
	"opsh/internal/store"
	"opsh/internal/token"
)

// maxRecursionDepth caps parse_expression nesting; deeper input fails with
// RecursionLimit rather than overflowing the Go call stack.
const maxRecursionDepth = 64

// Evaluator runs the precedence-climbing algorithm over an already
// tokenized line. It holds no per-call state; Evaluate constructs a fresh
// cursor for each token slice it is given.
type Evaluator struct {
	registry *operator.Registry
	vars     *store.Store
	expander *expand.Expander
	bridge   *HandlerBridge
	sink     diag.Sink
}

// New builds an Evaluator wired to the given registry, variable store,
// expander, and handler bridge.
func New(registry *operator.Registry, vars *store.Store, expander *expand.Expander, bridge *HandlerBridge, sink diag.Sink) *Evaluator {
	if sink == nil {
		sink = diag.Discard{}
	}
	return &Evaluator{registry: registry, vars: vars, expander: expander, bridge: bridge, sink: sink}
}

// Evaluate parses and runs tokens as a single expression, returning the
// final value as a string. An empty expression (immediate Eof) succeeds
// with an empty result. Trailing tokens after a structurally complete
// expression are tolerated: a TrailingTokens diagnostic is reported but
// the parsed value is still returned as a success.
func (e *Evaluator) Evaluate(tokens []token.Token) (string, error) {
	p := &cursor{eval: e, tokens: tokens}
	if p.peek().Kind == token.Eof {
		return "", nil
	}
	val, err := p.parseExpression(0)
	if err != nil {
		return errorMarker(err), err
	}
	if rest := p.peek(); rest.Kind != token.Eof {
		e.sink.Report(kernelerr.ExprParseError(kernelerr.TrailingTokens, rest.Line, rest.Column,
			"trailing tokens after expression, starting at %q", rest.Text))
	}
	return val, nil
}

// cursor is the mutable parse state for one Evaluate call.
//
// lastOperandWasVar / lastOperandVarName track whether the most recently
// produced operand value came straight from a simple (undotted, unindexed)
// Variable token, and if so its clean name — the l-value check the
// postfix ++/-- path needs (the original source rejects anything but a
// bare preceding Variable token; see DESIGN.md).
type cursor struct {
	eval   *Evaluator
	tokens []token.Token
	pos    int
	depth  int

	lastOperandWasVar  bool
	lastOperandVarName string
}

func (p *cursor) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.Eof}
	}
	return p.tokens[p.pos]
}

func (p *cursor) advance() token.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *cursor) fail(code kernelerr.Code, format string, args ...interface{}) error {
	tok := p.peek()
	kerr := kernelerr.ExprParseError(code, tok.Line, tok.Column, format, args...)
	p.eval.sink.Report(kerr)
	return kerr
}

// parseExpression implements parse_expression(min_prec): a primary via
// parseOperand, then a loop consuming operators whose role and precedence
// let them continue the expression.
func (p *cursor) parseExpression(minPrec int) (string, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxRecursionDepth {
		return "", p.fail(kernelerr.RecursionLimit, "expression nesting exceeds %d levels", maxRecursionDepth)
	}

	lhs, err := p.parseOperand()
	if err != nil {
		return "", err
	}
	isVar, varName := p.lastOperandWasVar, p.lastOperandVarName

loop:
	for {
		tok := p.peek()
		if tok.Kind != token.Operator {
			break
		}
		def, ok := p.eval.registry.Lookup(tok.Text)
		if !ok {
			break
		}
		if def.Precedence < minPrec {
			break
		}
		if def.Role == operator.TernarySecondary {
			// ':' never continues an expression on its own; it is only
			// ever consumed by the explicit check inside TernaryPrimary
			// handling below. Leave it for that check (or, if none is
			// pending, for the trailing-token tolerance at the top level).
			break loop
		}

		switch def.Role {
		case operator.BinaryInfix:
			if def.Associativity != operator.Right && def.Precedence <= minPrec {
				return lhs, nil
			}
			p.advance()
			nextMin := def.Precedence
			if def.Associativity != operator.Right {
				nextMin = def.Precedence + 1
			}
			rhs, err := p.parseExpression(nextMin)
			if err != nil {
				return "", err
			}
			lhs, err = p.eval.bridge.Invoke(def.HandlerName, tok.Text, []string{lhs, rhs})
			if err != nil {
				return "", err
			}
			isVar = false

		case operator.UnaryPostfix:
			p.advance()
			if tok.Text == "++" || tok.Text == "--" {
				if !isVar {
					return "", p.failAt(tok, kernelerr.PostfixLHSNotVariable,
						"operand of postfix %q must be a simple variable", tok.Text)
				}
				lhs, err = p.eval.bridge.Invoke(def.HandlerName, tok.Text, []string{varName})
			} else {
				lhs, err = p.eval.bridge.Invoke(def.HandlerName, tok.Text, []string{lhs})
			}
			if err != nil {
				return "", err
			}
			isVar = false

		case operator.TernaryPrimary:
			p.advance()
			trueVal, err := p.parseExpression(0)
			if err != nil {
				return "", err
			}
			colon := p.peek()
			if !(colon.Kind == token.Operator && colon.Text == ":") {
				return "", p.fail(kernelerr.MissingColon, "expected ':' in ternary expression")
			}
			p.advance()
			falseVal, err := p.parseExpression(0)
			if err != nil {
				return "", err
			}
			lhs, err = p.eval.bridge.Invoke(def.HandlerName, tok.Text, []string{lhs, trueVal, falseVal})
			if err != nil {
				return "", err
			}
			isVar = false

		default:
			return "", p.failAt(tok, kernelerr.UnhandledOperatorInLoop,
				"operator %q (role %s) cannot continue an expression", tok.Text, def.Role)
		}
	}
	p.lastOperandWasVar = isVar
	p.lastOperandVarName = varName
	return lhs, nil
}

func (p *cursor) failAt(tok token.Token, code kernelerr.Code, format string, args ...interface{}) error {
	kerr := kernelerr.ExprParseError(code, tok.Line, tok.Column, format, args...)
	p.eval.sink.Report(kerr)
	return kerr
}

// parseOperand implements parse_operand: a primary value.
func (p *cursor) parseOperand() (string, error) {
	p.lastOperandWasVar = false
	p.lastOperandVarName = ""

	tok := p.peek()
	switch tok.Kind {
	case token.Number, token.Word:
		p.advance()
		return p.eval.expander.Expand(tok.Text), nil

	case token.Variable:
		p.advance()
		name, simple := parseVariableName(tok.Text)
		if simple {
			p.lastOperandWasVar = true
			p.lastOperandVarName = name
		}
		return p.eval.expander.Expand(tok.Text), nil

	case token.String:
		p.advance()
		return p.eval.expander.Expand(unescapeStringBody(tok.Text)), nil

	case token.LParen:
		p.advance()
		val, err := p.parseExpression(0)
		if err != nil {
			return "", err
		}
		if p.peek().Kind != token.RParen {
			return "", p.fail(kernelerr.MissingRParen, "expected ')'")
		}
		p.advance()
		// A parenthesized operand is never a bare Variable token, even if
		// the inner expression was one.
		p.lastOperandWasVar = false
		p.lastOperandVarName = ""
		return val, nil

	case token.Operator:
		def, ok := p.eval.registry.Lookup(tok.Text)
		if !ok || def.Role != operator.UnaryPrefix {
			return "", p.fail(kernelerr.UnexpectedTokenOperand, "unexpected operator %q where an operand was expected", tok.Text)
		}
		p.advance()
		if tok.Text == "++" || tok.Text == "--" {
			varTok := p.peek()
			name, simple := parseVariableName(varTok.Text)
			if varTok.Kind != token.Variable || !simple {
				return "", p.fail(kernelerr.PrefixOperandNotVariable,
					"operand of prefix %q must be a simple variable", tok.Text)
			}
			p.advance()
			return p.eval.bridge.Invoke(def.HandlerName, tok.Text, []string{name})
		}
		operand, err := p.parseExpression(def.Precedence)
		if err != nil {
			return "", err
		}
		p.lastOperandWasVar = false
		p.lastOperandVarName = ""
		return p.eval.bridge.Invoke(def.HandlerName, tok.Text, []string{operand})

	default:
		return "", p.fail(kernelerr.UnexpectedTokenOperand, "unexpected token %s where an operand was expected", tok.Kind)
	}
}

// parseVariableName strips the '$' sigil (and braces, if present) from a
// Variable token's text and reports whether the result is "simple": a bare
// name with no trailing dotted-property chain. Only simple variables are
// legal operands of the prefix/postfix ++/-- handlers — an l-value check
// inherited from the original parser, which only recognizes a bare
// preceding Variable token and silently rejects anything richer.
func parseVariableName(text string) (name string, simple bool) {
	if len(text) == 0 || text[0] != '$' {
		return "", false
	}
	rest := text[1:]
	if strings.HasPrefix(rest, "{") {
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return "", false
		}
		return rest[1:end], rest[end+1:] == ""
	}
	i := 0
	for i < len(rest) && isNameChar(rest[i]) {
		i++
	}
	return rest[:i], rest[i:] == ""
}

func isNameChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}

// unescapeStringBody strips a String token's surrounding quotes and
// resolves its backslash escapes, ahead of expansion.
func unescapeStringBody(text string) string {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			i++
			b.WriteByte(text[i])
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

func errorMarker(err error) string {
	return fmt.Sprintf("<error: %v>", err)
}
