package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fuzzswarm",
	Short: "Parallel fuzzing driver for Go's native fuzzing engine",
	Long: `fuzzswarm scaffolds fuzz targets in a Go module, builds their
instrumented test binary, and runs a pool of fuzzing workers in
parallel, multiplexing their output until the first worker exits.

Typical workflow:

  fuzzswarm init                 # scaffold fuzz/ in the current module
  fuzzswarm add parse_header     # add another target
  fuzzswarm run -j 8 parse_header`,

	// Errors are printed once by run(); cobra must not print them again
	// or dump usage on a runtime failure.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(
		initCmd,
		addCmd,
		listCmd,
		runCmd,
		versionCmd,
	)
}
