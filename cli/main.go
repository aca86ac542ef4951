// ABOUTME: Entry point for the fitcheck CLI
// ABOUTME: Command-line companion to the FitCheck relay for listings, try-on and scripting

package main

import (
	"fmt"
	"os"

	"github.com/fitcheck/fitcheck/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
