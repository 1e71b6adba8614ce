// Package main is the entry point for the Issuegate CLI.
package main

import (
	"os"

	"github.com/issuegate/issuegate/cmd/issuegate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
