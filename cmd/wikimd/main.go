// Package main is the entry point for the wikimd CLI.
package main

import (
	"os"

	"wikimd/cmd/wikimd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
