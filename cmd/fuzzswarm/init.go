package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"fuzzswarm/internal/console"
	"fuzzswarm/internal/project"
)

var initTarget string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold fuzzing support in the current Go module",
	Long: `Init creates the fuzz/ directory in the nearest enclosing Go module:
the fuzz.toml manifest, a .gitignore for build products, and one
initial fuzz target ready to be filled in.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initTarget, "target", "fuzz_target_1", "name of the initial fuzz target")
}

func runInit(cmd *cobra.Command, args []string) error {
	proj, err := project.Find(".")
	if err != nil {
		return err
	}

	created, err := proj.Init(initTarget)
	if err != nil {
		return err
	}

	for _, path := range created {
		console.Successf("created %s", relToRoot(proj, path))
	}
	console.Notef("edit %s, then: fuzzswarm run %s", relToRoot(proj, proj.TargetPath(initTarget)), initTarget)
	return nil
}

// relToRoot shortens a path to be relative to the module root where
// possible, keeping output readable from any working directory.
func relToRoot(p *project.Project, path string) string {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return path
	}
	return rel
}
