// Command cqpeval evaluates corpus query plans over annotated corpora
// loaded from YAML fixtures.
package main

import (
	"os"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
