// Package main provides the entry point for the weaver CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/weaver/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own errors through the output formatter;
		// anything else (flag parsing, bad arguments) is printed here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
