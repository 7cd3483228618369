// ==============================================================================================
// FILE: collab/collab_unit_test.go
// PURPOSE: Unit tests for FunctionRuntimeAdapter's handler-then-fallback
//          dispatch and its conformance to eval.FunctionRuntime.
// ==============================================================================================

package collab

import (
	"errors"
	"testing"

	"opsh/internal/eval"
	"opsh/internal/kernelerr"
	"opsh/internal/token"
)

var _ eval.FunctionRuntime = (*FunctionRuntimeAdapter)(nil)

type stubCommandRunner struct {
	calledName string
	calledArgs []string
	stdout     string
	err        error
}

func (s *stubCommandRunner) Run(name string, args []string) (string, error) {
	s.calledName = name
	s.calledArgs = args
	return s.stdout, s.err
}

// stubStore is a minimal stand-in for *store.Store's Set, just enough to
// assert runViaFallback published the right name/value pair.
type stubStore struct {
	name  string
	value string
}

func (s *stubStore) set(name, value string) error {
	s.name, s.value = name, value
	return nil
}

func TestUnit_CallPrefersRegisteredHandler(t *testing.T) {
	runner := &stubCommandRunner{}
	a := NewFunctionRuntimeAdapter(runner)
	called := false
	a.Register("add", func(args []token.Token) error {
		called = true
		return nil
	})

	if err := a.Call("add", nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !called {
		t.Error("registered handler was not invoked")
	}
	if runner.calledName != "" {
		t.Error("fallback should not have run when a handler is registered")
	}
}

func TestUnit_CallFallsBackToCommandRunner(t *testing.T) {
	runner := &stubCommandRunner{}
	a := NewFunctionRuntimeAdapter(runner)

	args := []token.Token{
		{Kind: token.String, Text: `"+"`},
		{Kind: token.String, Text: `"1"`},
		{Kind: token.Word, Text: "__opsh_result_0"},
	}
	if err := a.Call("external-tool", args); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if runner.calledName != "external-tool" {
		t.Errorf("fallback ran for %q, want %q", runner.calledName, "external-tool")
	}
	if len(runner.calledArgs) != 2 {
		t.Errorf("fallback got %d args, want 2", len(runner.calledArgs))
	}
	if runner.calledArgs[0] != "+" || runner.calledArgs[1] != "1" {
		t.Errorf("calledArgs = %v, want unquoted [+ 1]", runner.calledArgs)
	}
}

func TestUnit_CallFallsBackAndPublishesResult(t *testing.T) {
	runner := &stubCommandRunner{stdout: "42"}
	a := NewFunctionRuntimeAdapter(runner)
	store := &stubStore{}
	a.SetResultWriter(store.set)

	args := []token.Token{
		{Kind: token.String, Text: `"+"`},
		{Kind: token.String, Text: `"1"`},
		{Kind: token.Word, Text: "__opsh_result_0"},
	}
	if err := a.Call("external-tool", args); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if store.name != "__opsh_result_0" {
		t.Errorf("result written to %q, want __opsh_result_0", store.name)
	}
	if store.value != "42" {
		t.Errorf("result value = %q, want 42", store.value)
	}
}

func TestUnit_CallFallsBackWithNoResultWriterStillSucceeds(t *testing.T) {
	runner := &stubCommandRunner{stdout: "42"}
	a := NewFunctionRuntimeAdapter(runner)

	args := []token.Token{{Kind: token.Word, Text: "__opsh_result_0"}}
	if err := a.Call("external-tool", args); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestUnit_CallWithNoFallbackReportsHandlerNotFound(t *testing.T) {
	a := NewFunctionRuntimeAdapter(nil)
	err := a.Call("missing", nil)
	kerr, ok := err.(*kernelerr.Error)
	if !ok {
		t.Fatalf("got %T, want *kernelerr.Error", err)
	}
	if kerr.Code != kernelerr.HandlerNotFound {
		t.Errorf("Code = %v, want HandlerNotFound", kerr.Code)
	}
}

func TestUnit_CallPropagatesFallbackError(t *testing.T) {
	runner := &stubCommandRunner{err: errors.New("boom")}
	a := NewFunctionRuntimeAdapter(runner)
	args := []token.Token{{Kind: token.Word, Text: "__opsh_result_0"}}
	if err := a.Call("x", args); err == nil {
		t.Fatal("expected an error from the fallback")
	}
}

func TestUnit_CallWithNoArgsReportsParamMismatch(t *testing.T) {
	runner := &stubCommandRunner{}
	a := NewFunctionRuntimeAdapter(runner)
	err := a.Call("x", nil)
	kerr, ok := err.(*kernelerr.Error)
	if !ok {
		t.Fatalf("got %T, want *kernelerr.Error", err)
	}
	if kerr.Code != kernelerr.HandlerParamMismatch {
		t.Errorf("Code = %v, want HandlerParamMismatch", kerr.Code)
	}
	if runner.calledName != "" {
		t.Error("fallback should not run when there is no result-holder token")
	}
}
