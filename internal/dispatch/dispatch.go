// Package dispatch recombines the tokenizer's literal reading of a
// hyphenated word into the single command name an external command
// runner expects, and splits a raw command string into argv the same
// way a shell would.
//
// The tokenizer (see internal/lexer) never scans "build-cache" as one
// Word: when a "-" operator is registered it scans as three tokens,
// Word("build") followed by an Operator("-") followed by Word("cache"),
// because a registered subtraction operator must keep working inside
// ordinary expressions.
// Recombining those three tokens back into a single command name is
// this package's job, not the tokenizer's — the core stays ignorant of
// "this line is actually a command invocation."
package dispatch

import (
	"strings"

	"github.com/google/shlex"

	"opsh/internal/kernelerr"
	"opsh/internal/token"
)

// RecombineCommandName joins a Word, "-" Operator, Word, "-" Operator,
// Word... run starting at tokens[0] into a single hyphenated name, and
// reports how many tokens it consumed. It does not consume anything if
// tokens[0] is not a Word.
func RecombineCommandName(tokens []token.Token) (name string, consumed int) {
	if len(tokens) == 0 || tokens[0].Kind != token.Word {
		return "", 0
	}
	var b strings.Builder
	b.WriteString(tokens[0].Text)
	consumed = 1
	for consumed+1 < len(tokens) &&
		tokens[consumed].Kind == token.Operator && tokens[consumed].Text == "-" &&
		tokens[consumed+1].Kind == token.Word {
		b.WriteByte('-')
		b.WriteString(tokens[consumed+1].Text)
		consumed += 2
	}
	return b.String(), consumed
}

// SplitArgs splits a raw command-line string into argv using shell
// quoting and escaping rules, the same way the original shell-prog
// environment variable is split into a program plus its fixed
// arguments before exec.
func SplitArgs(raw string) ([]string, error) {
	parts, err := shlex.Split(raw)
	if err != nil {
		return nil, kernelerr.DispatchError(kernelerr.InvalidCommandLine, "dispatch: shlex.Split(%q): %v", raw, err)
	}
	return parts, nil
}
