package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"fuzzswarm/internal/console"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fuzzswarm version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		console.Plainf("fuzzswarm %s (%s, %s/%s)", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
