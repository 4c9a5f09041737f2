// Package main is the entry point for the wasitest CLI.
package main

import (
	"os"

	"github.com/roach88/wasitest/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
