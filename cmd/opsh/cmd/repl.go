package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"opsh/pkg/opsh"
)

const (
	replPrompt = ">> "
	replBanner = `opsh — interactive operator shell
Type .help for session commands, .exit to quit.
`
)

// ANSI color codes for REPL output.
const (
	replReset  = "\033[0m"
	replRed    = "\033[31m"
	replGreen  = "\033[32m"
	replYellow = "\033[33m"
	replCyan   = "\033[36m"
	replGray   = "\033[37m"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive read-eval-print loop over the operator kernel",
	Long: `Start a line-oriented session backed by pkg/opsh.Runtime: each line
is run through ProcessLine exactly as opsh eval would run it, but the
variable scope and operator registry persist across lines for the life
of the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		runREPL(cmd.InOrStdin(), cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// runREPL drives the session loop: read a line, hand it to rt, print
// its result or error, repeat. Handler calls with no in-process
// registration fall back to execCommandRunner, the same external
// dispatch opsh eval uses.
func runREPL(in io.Reader, out io.Writer) {
	rt := opsh.New(
		opsh.WithCommandRunner(execCommandRunner{}),
		opsh.WithLogger(logrus.StandardLogger()),
	)

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, replBanner)

	for {
		fmt.Fprint(out, replCyan+replPrompt+replReset)
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			switch line {
			case ".exit":
				fmt.Fprintln(out, replYellow+"Goodbye!"+replReset)
				return
			case ".clear":
				rt = opsh.New(
					opsh.WithCommandRunner(execCommandRunner{}),
					opsh.WithLogger(logrus.StandardLogger()),
				)
				fmt.Fprintln(out, replGreen+"Variable scope and operator registry reset."+replReset)
			case ".help":
				printREPLHelp(out)
			default:
				fmt.Fprintf(out, replRed+"Unknown command: %s. Type .help for info.\n"+replReset, line)
			}
			continue
		}

		value, err := rt.EvalLine(line)
		if err != nil {
			fmt.Fprintf(out, replRed+"error: %v\n"+replReset, err)
			continue
		}
		if value != "" {
			fmt.Fprintln(out, value)
		}
	}
}

func printREPLHelp(out io.Writer) {
	fmt.Fprintln(out, replGray+"Session commands:")
	fmt.Fprintln(out, "  .exit   quit the session")
	fmt.Fprintln(out, "  .clear  reset variables and operator definitions")
	fmt.Fprintln(out, "  .help   show this message"+replReset)
}
