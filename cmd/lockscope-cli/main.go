// Package main provides the entry point for lockscope-cli.
//
// lockscope-cli is the command-line management tool for a running
// LockScope agent.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/lockscope-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
