// fuzzswarm is a fuzzing driver for Go's native fuzzing engine: it
// scaffolds fuzz targets in a module, builds their instrumented test
// binary, and runs N fuzzing workers in parallel until the first one
// finds a crash.
package main

import (
	"os"

	"fuzzswarm/internal/console"
)

// version is set at build time:
//
//	go build -ldflags "-X main.version=v1.2.3" ./cmd/fuzzswarm
var version = "dev"

// exitCode carries a worker's exit status out through main. Commands
// set it instead of calling os.Exit so deferred cleanup still runs.
var exitCode int

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		console.Errorf("%v", err)
		if exitCode == 0 {
			return 1
		}
	}
	return exitCode
}
