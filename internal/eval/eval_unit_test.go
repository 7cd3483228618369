// ==============================================================================================
// FILE: eval/eval_unit_test.go
// PURPOSE: Unit tests for the ExpressionEvaluator's precedence-climbing
//          behavior, driven end to end through the real Tokenizer and a
//          stub FunctionRuntime that implements the handlers by name.
// ==============================================================================================

package eval

import (
	"strconv"
	"testing"

	"opsh/internal/diag"
	"opsh/internal/expand"
	"opsh/internal/kernelerr"
	"opsh/internal/lexer"
	"opsh/internal/operator"
	"opsh/internal/store"
	"opsh/internal/token"
)

// stubRuntime implements FunctionRuntime by name, covering exactly the
// handlers the end-to-end scenarios register.
type stubRuntime struct {
	vars *store.Store
}

func (r *stubRuntime) Call(name string, args []token.Token) error {
	if len(args) < 2 {
		return kernelerr.HandlerError(kernelerr.HandlerParamMismatch, "handler %q: too few args", name)
	}
	resultHolder := args[len(args)-1].Text
	operands := args[1 : len(args)-1]
	vals := make([]string, len(operands))
	for i, a := range operands {
		vals[i] = unescapeStringBody(a.Text)
	}

	switch name {
	case "add":
		a, _ := strconv.Atoi(vals[0])
		b, _ := strconv.Atoi(vals[1])
		return r.vars.Set(resultHolder, strconv.Itoa(a+b), false)
	case "sub":
		a, _ := strconv.Atoi(vals[0])
		b, _ := strconv.Atoi(vals[1])
		return r.vars.Set(resultHolder, strconv.Itoa(a-b), false)
	case "mul":
		a, _ := strconv.Atoi(vals[0])
		b, _ := strconv.Atoi(vals[1])
		return r.vars.Set(resultHolder, strconv.Itoa(a*b), false)
	case "tern":
		if vals[0] == "1" {
			return r.vars.Set(resultHolder, vals[1], false)
		}
		return r.vars.Set(resultHolder, vals[2], false)
	case "noop":
		return r.vars.Set(resultHolder, "", false)
	case "post_inc":
		cur, _ := r.vars.Get(vals[0])
		n, _ := strconv.Atoi(cur)
		if err := r.vars.Set(vals[0], strconv.Itoa(n+1), false); err != nil {
			return err
		}
		return r.vars.Set(resultHolder, cur, false)
	case "pre_neg":
		n, _ := strconv.Atoi(vals[0])
		return r.vars.Set(resultHolder, strconv.Itoa(-n), false)
	default:
		return kernelerr.HandlerError(kernelerr.HandlerNotFound, "no such handler %q", name)
	}
}

// harness bundles the pieces evalLine needs, mirroring how kernel.Kernel
// will wire them in production.
type harness struct {
	registry *operator.Registry
	vars     *store.Store
	tok      *lexer.Tokenizer
	eval     *Evaluator
}

func newHarness() *harness {
	reg := operator.New()
	vars := store.New()
	rt := &stubRuntime{vars: vars}
	bridge := NewHandlerBridge(rt, vars, diag.Discard{})
	exp := expand.New(vars)
	return &harness{
		registry: reg,
		vars:     vars,
		tok:      lexer.New(reg),
		eval:     New(reg, vars, exp, bridge, diag.Discard{}),
	}
}

func (h *harness) register(t *testing.T, def operator.Definition) {
	t.Helper()
	if _, err := h.registry.Register(def); err != nil {
		t.Fatalf("Register(%+v): %v", def, err)
	}
}

func (h *harness) evalLine(t *testing.T, line string) string {
	t.Helper()
	tokens := h.tok.Tokenize(line, 1)
	val, err := h.eval.Evaluate(tokens)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", line, err)
	}
	return val
}

func TestUnit_IntegerAddition(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "+", Role: operator.BinaryInfix, Precedence: 10, Associativity: operator.Left, HandlerName: "add"})

	got := h.evalLine(t, "2 + 3")
	if got != "5" {
		t.Errorf("2 + 3 = %q, want 5", got)
	}
}

func TestUnit_SubtractionIsLeftAssociative(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "-", Role: operator.BinaryInfix, Precedence: 10, Associativity: operator.Left, HandlerName: "sub"})

	got := h.evalLine(t, "10 - 3 - 2")
	if got != "5" {
		t.Errorf("10 - 3 - 2 = %q, want 5 (i.e. (10-3)-2, not 9)", got)
	}
}

func TestUnit_MixedPrecedence(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "+", Role: operator.BinaryInfix, Precedence: 10, Associativity: operator.Left, HandlerName: "add"})
	h.register(t, operator.Definition{Symbol: "*", Role: operator.BinaryInfix, Precedence: 20, Associativity: operator.Left, HandlerName: "mul"})

	got := h.evalLine(t, "2 + 3 * 4")
	if got != "14" {
		t.Errorf("2 + 3 * 4 = %q, want 14", got)
	}
}

func TestUnit_Parenthesization(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "+", Role: operator.BinaryInfix, Precedence: 10, Associativity: operator.Left, HandlerName: "add"})
	h.register(t, operator.Definition{Symbol: "*", Role: operator.BinaryInfix, Precedence: 20, Associativity: operator.Left, HandlerName: "mul"})

	got := h.evalLine(t, "(2 + 3) * 4")
	if got != "20" {
		t.Errorf("(2 + 3) * 4 = %q, want 20", got)
	}
}

func TestUnit_Ternary(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "?", Role: operator.TernaryPrimary, Precedence: 5, Associativity: operator.Left, HandlerName: "tern"})
	h.register(t, operator.Definition{Symbol: ":", Role: operator.TernarySecondary, Precedence: 5, Associativity: operator.Left, HandlerName: "noop"})

	if got := h.evalLine(t, `1 ? "yes" : "no"`); got != "yes" {
		t.Errorf(`1 ? "yes" : "no" = %q, want yes`, got)
	}
	if got := h.evalLine(t, `0 ? "yes" : "no"`); got != "no" {
		t.Errorf(`0 ? "yes" : "no" = %q, want no`, got)
	}
}

func TestUnit_PostfixMutation(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "++", Role: operator.UnaryPostfix, Precedence: 30, Associativity: operator.None, HandlerName: "post_inc"})
	if err := h.vars.Set("x", "4", false); err != nil {
		t.Fatal(err)
	}

	got := h.evalLine(t, "$x++")
	if got != "4" {
		t.Errorf("$x++ result = %q, want 4 (the prior value)", got)
	}
	newX, ok := h.vars.Get("x")
	if !ok || newX != "5" {
		t.Errorf("x after $x++ = %q, ok=%v; want 5, true", newX, ok)
	}
}

func TestUnit_PrefixUnary(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "neg", Role: operator.UnaryPrefix, Precedence: 25, Associativity: operator.Left, HandlerName: "pre_neg"})
	h.register(t, operator.Definition{Symbol: "+", Role: operator.BinaryInfix, Precedence: 10, Associativity: operator.Left, HandlerName: "add"})

	got := h.evalLine(t, "1 + neg 3")
	if got != "-2" {
		t.Errorf("1 + neg 3 = %q, want -2", got)
	}
}

func TestUnit_PostfixRejectsNonVariableOperand(t *testing.T) {
	h := newHarness()
	h.register(t, operator.Definition{Symbol: "+", Role: operator.BinaryInfix, Precedence: 10, Associativity: operator.Left, HandlerName: "add"})
	h.register(t, operator.Definition{Symbol: "++", Role: operator.UnaryPostfix, Precedence: 30, Associativity: operator.None, HandlerName: "post_inc"})

	tokens := h.tok.Tokenize("(1 + 2)++", 1)
	if _, err := h.eval.Evaluate(tokens); err == nil {
		t.Fatal("expected PostfixLHSNotVariable error for (1+2)++, got nil")
	} else if kerr, ok := err.(*kernelerr.Error); !ok || kerr.Code != kernelerr.PostfixLHSNotVariable {
		t.Errorf("got error %v, want PostfixLHSNotVariable", err)
	}
}
