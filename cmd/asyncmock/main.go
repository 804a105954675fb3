// Command asyncmock runs, validates and lists mocking scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/asyncmock/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
