// Package main provides the sqlsplit command.
package main

import (
	"os"

	"github.com/leapstack-labs/sqlsplit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
