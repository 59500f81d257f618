// Command cadbridge serves the action bridge and drives it from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cadbridge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
