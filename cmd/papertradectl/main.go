// Package main is the papertrade administration tool.
package main

import (
	"os"

	"github.com/aristath/papertrade/cmd/papertradectl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
