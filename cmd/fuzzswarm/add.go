package main

import (
	"github.com/spf13/cobra"

	"fuzzswarm/internal/console"
	"fuzzswarm/internal/project"
)

var addCmd = &cobra.Command{
	Use:   "add <target>",
	Short: "Add a new fuzz target to an initialized module",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	target := args[0]

	proj, err := project.Find(".")
	if err != nil {
		return err
	}
	manifest, err := proj.Manifest()
	if err != nil {
		return err
	}

	targetFile, err := proj.AddTarget(manifest, target)
	if err != nil {
		return err
	}

	console.Successf("created %s", relToRoot(proj, targetFile))
	console.Notef("edit %s, then: fuzzswarm run %s", relToRoot(proj, targetFile), target)
	return nil
}
