package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opsh/internal/lexer"
	"opsh/internal/operator"
	"opsh/internal/token"
)

var (
	tokenizeExpr     string
	tokenizeShowPos  bool
	tokenizeOnlyErrs bool
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [file]",
	Short: "Tokenize a line and print its token sequence",
	Long: `Tokenize one line of input and print the resulting tokens, one per
line, in the form [KIND] "text" (the final token as [Eof]); --show-pos
appends @line:column to each.

Examples:
  opsh tokenize -e '$x + 1 * (2 - 3)'
  opsh tokenize --show-pos script.opsh`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenize,
}

func init() {
	rootCmd.AddCommand(tokenizeCmd)

	tokenizeCmd.Flags().StringVarP(&tokenizeExpr, "eval", "e", "", "tokenize this line instead of reading a file")
	tokenizeCmd.Flags().BoolVar(&tokenizeShowPos, "show-pos", false, "show each token's line:column")
	tokenizeCmd.Flags().BoolVar(&tokenizeOnlyErrs, "only-errors", false, "print only Error tokens")
}

func runTokenize(_ *cobra.Command, args []string) error {
	input, _, err := readSource(tokenizeExpr, args)
	if err != nil {
		return err
	}

	tok := lexer.New(operator.New())
	tokens := tok.Tokenize(input, 1)

	errCount := 0
	for _, t := range tokens {
		if t.Kind == token.Error {
			errCount++
		}
		if tokenizeOnlyErrs && t.Kind != token.Error {
			continue
		}
		printToken(t)
	}

	if tokenizeOnlyErrs && errCount > 0 {
		return fmt.Errorf("found %d error token(s)", errCount)
	}
	return nil
}

func printToken(t token.Token) {
	var out string
	switch t.Kind {
	case token.Eof:
		out = "[Eof]"
	default:
		out = fmt.Sprintf("[%s] %q", t.Kind, t.Text)
	}
	if tokenizeShowPos {
		out += fmt.Sprintf(" @%d:%d", t.Line, t.Column)
	}
	fmt.Println(out)
}

func readSource(inlineExpr string, args []string) (input, filename string, err error) {
	if inlineExpr != "" {
		return inlineExpr, "<eval>", nil
	}
	if len(args) == 1 {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(content), args[0], nil
	}
	return "", "", fmt.Errorf("either provide a file path or use -e for inline input")
}
