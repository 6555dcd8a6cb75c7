// Package main is the entry point for the strata CLI.
package main

import (
	"fmt"
	"os"

	"github.com/satishbabariya/strata/cli/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
