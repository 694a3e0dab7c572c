package main

import (
	"github.com/spf13/cobra"

	"fuzzswarm/internal/console"
	"fuzzswarm/internal/project"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List fuzz targets declared in the manifest",
	Long: `List prints one target name per line, sorted, with no decoration,
so the output can be consumed by scripts:

  fuzzswarm list | xargs -n1 fuzzswarm run --build-only`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	proj, err := project.Find(".")
	if err != nil {
		return err
	}
	manifest, err := proj.Manifest()
	if err != nil {
		return err
	}

	for _, name := range manifest.TargetNames() {
		console.Plainf("%s", name)
	}
	return nil
}
