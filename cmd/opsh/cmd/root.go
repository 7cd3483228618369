package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set by build flags.
var Version = "0.1.0-dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "opsh",
	Short: "opsh tokenizes and evaluates expressions for the extensible operator kernel",
	Long: `opsh is a thin command-line front end over the operator kernel: a
dynamic tokenizer, a runtime-extensible operator table, and a
precedence-climbing expression evaluator that dispatches operator
applications to script-defined handlers.

"tokenize" and "eval" expose the kernel's core operations directly for
scripting and debugging; "repl" wraps the same pipeline in a persistent
interactive session. Block/control-flow structure is not a concern of
any of them — that's left to whatever embeds pkg/opsh.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
