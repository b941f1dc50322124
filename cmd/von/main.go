// Package main provides the entry point for the von CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/von/cmd/von/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
