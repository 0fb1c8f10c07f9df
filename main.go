// Package main is the entry point for the shipcrate CLI application.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/eykd/shipcrate/cmd"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrStepFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
