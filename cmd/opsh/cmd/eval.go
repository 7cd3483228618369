package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"opsh/internal/collab"
	"opsh/internal/diag"
	"opsh/internal/kernel"
	"opsh/internal/opspack"
)

var (
	evalExpr string
	packPath string
)

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate lines of input against the operator kernel",
	Long: `Run each line of input through the kernel's ProcessLine: defoperator
lines register operators, "name = expr" lines assign, and anything else
is evaluated as a standalone expression. Operator handlers with no
in-process binding are dispatched as external commands named after the
handler, the operator symbol and operands passed as arguments, and the
command's trimmed stdout taken as the result.

Examples:
  opsh eval -e '$x + 1'
  opsh eval --pack ops.yaml script.opsh`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate this line instead of reading a file")
	evalCmd.Flags().StringVar(&packPath, "pack", "", "load a YAML operator pack before evaluating")
}

// execCommandRunner implements collab.CommandRunner by shelling out to a
// command named after the handler, the same "clear, then exec.Command,
// capture output" shape as shell.Cmd.Run — except opsh captures stdout
// instead of handing the terminal to the child process, since a handler
// call's result is a string value, not an interactive session.
type execCommandRunner struct{}

func (execCommandRunner) Run(name string, args []string) (string, error) {
	cmd := exec.Command(name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("exec %s: %w", name, err)
	}
	return strings.TrimRight(out.String(), "\n"), nil
}

func runEval(_ *cobra.Command, args []string) error {
	input, _, err := readSource(evalExpr, args)
	if err != nil {
		return err
	}

	sink := diag.NewLogrus(nil)
	adapter := collab.NewFunctionRuntimeAdapter(execCommandRunner{})
	k := kernel.New(adapter, sink)

	if packPath != "" {
		data, err := os.ReadFile(packPath)
		if err != nil {
			return fmt.Errorf("failed to read pack %s: %w", packPath, err)
		}
		if _, err := opspack.Load(k.Registry, data); err != nil {
			return fmt.Errorf("failed to load pack %s: %w", packPath, err)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		res := k.ProcessLine(scanner.Text(), lineNo)
		if res.Err != nil {
			exitWithError("line %d: %v", lineNo, res.Err)
		}
		if verbose {
			fmt.Printf("%d: %s\n", lineNo, res.Value)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if v, ok := k.Vars.Get(kernel.LastOpResultVar); ok {
		fmt.Println(v)
	}
	return nil
}
