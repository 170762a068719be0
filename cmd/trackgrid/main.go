// Package main is the entry point for the trackgrid CLI tool.
package main

import (
	"os"

	"github.com/trackgrid/trackgrid/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
