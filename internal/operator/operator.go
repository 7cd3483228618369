// Package operator implements the runtime operator table: scripts register
// a symbol, its grammatical role, precedence, associativity, and the
// script-level handler that implements it, and the kernel's tokenizer and
// evaluator learn to recognize and dispatch it.
//
// This generalizes the compile-time parser.precedences map and
// prefixParseFns/infixParseFns registration pattern (see parser/parser.go)
// from a fixed, token-kind-keyed table to a runtime-mutable, symbol-keyed
// one.
package operator

import (
	"sort"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"opsh/internal/kernelerr"
)

// Role is the grammatical position an operator can occupy.
type Role int

const (
	UnaryPrefix Role = iota
	UnaryPostfix
	BinaryInfix
	TernaryPrimary
	TernarySecondary
)

func (r Role) String() string {
	switch r {
	case UnaryPrefix:
		return "UNARY_PREFIX"
	case UnaryPostfix:
		return "UNARY_POSTFIX"
	case BinaryInfix:
		return "BINARY_INFIX"
	case TernaryPrimary:
		return "TERNARY_PRIMARY"
	case TernarySecondary:
		return "TERNARY_SECONDARY"
	default:
		return "UNKNOWN_ROLE"
	}
}

// ParseRole maps the defoperator keyword form to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "UNARY_PREFIX":
		return UnaryPrefix, true
	case "UNARY_POSTFIX":
		return UnaryPostfix, true
	case "BINARY_INFIX":
		return BinaryInfix, true
	case "TERNARY_PRIMARY":
		return TernaryPrimary, true
	case "TERNARY_SECONDARY":
		return TernarySecondary, true
	default:
		return 0, false
	}
}

// Associativity controls how a chain of same-precedence BinaryInfix
// operators groups. Default for a newly registered binary operator when
// unspecified is Left.
type Associativity int

const (
	Left Associativity = iota
	Right
	None
)

func (a Associativity) String() string {
	switch a {
	case Left:
		return "L"
	case Right:
		return "R"
	case None:
		return "N"
	default:
		return "?"
	}
}

// ParseAssociativity maps the defoperator single-letter form to an
// Associativity.
func ParseAssociativity(s string) (Associativity, bool) {
	switch s {
	case "L":
		return Left, true
	case "R":
		return Right, true
	case "N":
		return None, true
	default:
		return 0, false
	}
}

const maxSymbolLen = 16
const maxHandlerNameLen = 255

// Definition is one entry of the operator table, keyed by Symbol.
type Definition struct {
	Symbol        string
	Role          Role
	Precedence    int
	Associativity Associativity
	HandlerName   string
}

// Registry is the runtime operator table. It is never garbage-collected:
// definitions live from registration until process exit. The zero value is
// not usable; construct with New.
type Registry struct {
	bySymbol map[string]*Definition
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{bySymbol: make(map[string]*Definition)}
}

// Register adds or overwrites a Definition. Re-registration of an existing
// symbol succeeds and returns the previous Definition (nil if this is a
// fresh symbol) so a caller can log what was replaced — the original
// bsh.c logs the prior precedence/handler on redefinition; see DESIGN.md.
func (r *Registry) Register(def Definition) (*Definition, error) {
	var errs *multierror.Error

	symbol := def.Symbol
	if symbol == "" {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidSymbol, "empty operator symbol"))
	} else if len(symbol) > maxSymbolLen {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidSymbol,
			"operator symbol %q exceeds %d characters", symbol, maxSymbolLen))
	}
	if len(def.HandlerName) > maxHandlerNameLen {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidHandlerName,
			"handler name %q exceeds %d characters", def.HandlerName, maxHandlerNameLen))
	}
	// Associativity's zero value is Left, the documented default for an
	// unspecified associativity, so callers that never set the field get
	// the right behavior for free.

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	copyDef := def
	prev, existed := r.bySymbol[symbol]
	r.bySymbol[symbol] = &copyDef
	if existed {
		return prev, nil
	}
	return nil, nil
}

// Lookup returns the Definition registered under symbol, if any.
func (r *Registry) Lookup(symbol string) (*Definition, bool) {
	d, ok := r.bySymbol[symbol]
	return d, ok
}

// MatchLongest scans all registered symbols and returns the longest one
// that is a prefix of input. Ties are not expected since symbols are
// unique; were they to occur, any deterministic choice is acceptable, and
// this implementation's choice is deterministic within a run (the registry
// itself never mutates mid-tokenization of a single line).
func (r *Registry) MatchLongest(inputPrefix string) (string, int, bool) {
	bestSymbol := ""
	bestLen := 0
	for symbol := range r.bySymbol {
		if len(symbol) <= bestLen {
			continue
		}
		if strings.HasPrefix(inputPrefix, symbol) {
			bestSymbol = symbol
			bestLen = len(symbol)
		}
	}
	if bestLen == 0 {
		return "", 0, false
	}
	return bestSymbol, bestLen, true
}

// Symbols returns every registered symbol, sorted longest-first. Exposed
// for diagnostics.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.bySymbol))
	for s := range r.bySymbol {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
