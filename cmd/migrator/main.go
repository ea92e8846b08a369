// Package main is the entry point for migrator.
package main

import (
	"fmt"
	"os"

	"github.com/jeenops/db-migrator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
