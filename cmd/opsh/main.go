// Command opsh is a thin CLI front end over the operator kernel,
// exposing its tokenize and eval operations for scripting and
// debugging.
package main

import (
	"fmt"
	"os"

	"opsh/cmd/opsh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
