// Package main provides the CLI for LeapMix.
package main

import (
	"os"

	"github.com/leapstack-labs/leapmix/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
