// Package main is the entry point for the radctl CLI tool.
package main

import (
	"os"

	"github.com/ishan121028/RadiologyAI/cmd/radctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
