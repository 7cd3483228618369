package operator

import (
	multierror "github.com/hashicorp/go-multierror"

	"opsh/internal/kernelerr"
	"opsh/internal/token"
)

// ParseDefOperator parses the exclusive script-visible form for extending
// the operator table:
//
//	defoperator <symbol> TYPE <role> [PRECEDENCE <n>] [ASSOC <L|R|N>] HANDLER <name>
//
// tokens must already have the leading "defoperator" Word token removed —
// the caller (kernel.ProcessLine) classifies the line as a defoperator
// statement before handing the remainder here. <symbol> and <name> may be
// a String or Word token; all other orderings are rejected.
func ParseDefOperator(tokens []token.Token) (Definition, error) {
	var errs *multierror.Error
	var def Definition
	def.Associativity = Left

	pos := 0
	next := func() (token.Token, bool) {
		if pos >= len(tokens) || tokens[pos].Kind == token.Eof {
			return token.Token{}, false
		}
		t := tokens[pos]
		pos++
		return t, true
	}

	symbolTok, ok := next()
	if !ok || (symbolTok.Kind != token.String && symbolTok.Kind != token.Word) {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
			"defoperator: expected symbol as String or Word"))
		return def, errs.ErrorOrNil()
	}
	def.Symbol = unquoteIfString(symbolTok)

	typeKw, ok := next()
	if !ok || typeKw.Kind != token.Word || typeKw.Text != "TYPE" {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
			"defoperator: expected TYPE keyword"))
		return def, errs.ErrorOrNil()
	}

	roleTok, ok := next()
	if !ok || roleTok.Kind != token.Word {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
			"defoperator: expected role after TYPE"))
		return def, errs.ErrorOrNil()
	}
	role, ok := ParseRole(roleTok.Text)
	if !ok {
		errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidRole,
			"defoperator: unknown role %q", roleTok.Text))
	}
	def.Role = role

	// Optional PRECEDENCE clause, then optional ASSOC clause, each at most
	// once and in that order, then the mandatory HANDLER clause.
	stage := 0
	for {
		kw, ok := next()
		if !ok {
			errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
				"defoperator: missing HANDLER clause"))
			return def, errs.ErrorOrNil()
		}
		if kw.Kind != token.Word {
			errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
				"defoperator: expected keyword, got %s", kw.Kind))
			return def, errs.ErrorOrNil()
		}
		switch kw.Text {
		case "PRECEDENCE":
			if stage > 0 {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
					"defoperator: PRECEDENCE must come before ASSOC and appear at most once"))
				return def, errs.ErrorOrNil()
			}
			stage = 1
			valTok, ok := next()
			if !ok || valTok.Kind != token.Number {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidPrecedence,
					"defoperator: expected integer after PRECEDENCE"))
				continue
			}
			n, err := parseIntLiteral(valTok.Text)
			if err != nil {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidPrecedence,
					"defoperator: %v", err))
				continue
			}
			def.Precedence = n
		case "ASSOC":
			if stage > 1 {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
					"defoperator: ASSOC may appear at most once"))
				return def, errs.ErrorOrNil()
			}
			stage = 2
			valTok, ok := next()
			if !ok || valTok.Kind != token.Word {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidAssoc,
					"defoperator: expected L, R, or N after ASSOC"))
				continue
			}
			assoc, ok := ParseAssociativity(valTok.Text)
			if !ok {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidAssoc,
					"defoperator: unknown associativity %q", valTok.Text))
				continue
			}
			def.Associativity = assoc
		case "HANDLER":
			nameTok, ok := next()
			if !ok || (nameTok.Kind != token.String && nameTok.Kind != token.Word) {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.InvalidHandlerName,
					"defoperator: expected handler name as String or Word"))
				return def, errs.ErrorOrNil()
			}
			def.HandlerName = unquoteIfString(nameTok)
			if _, ok := next(); ok {
				errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
					"defoperator: unexpected tokens after HANDLER clause"))
			}
			return def, errs.ErrorOrNil()
		default:
			errs = multierror.Append(errs, kernelerr.RegistryError(kernelerr.MalformedDefOperator,
				"defoperator: unexpected keyword %q", kw.Text))
			return def, errs.ErrorOrNil()
		}
	}
}

func unquoteIfString(t token.Token) string {
	if t.Kind == token.String && len(t.Text) >= 2 {
		return t.Text[1 : len(t.Text)-1]
	}
	return t.Text
}

func parseIntLiteral(s string) (int, error) {
	n := 0
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, kernelerr.RegistryError(kernelerr.InvalidPrecedence, "empty precedence literal")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, kernelerr.RegistryError(kernelerr.InvalidPrecedence, "non-numeric precedence %q", s)
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
