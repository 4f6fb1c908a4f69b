package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/persistence-kit/pkrelease/internal/config"
	"github.com/persistence-kit/pkrelease/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show pkrelease version information.

Displays:
  - pkrelease version, commit, and build date
  - The configured python interpreter and its build and twine modules`,
		RunE: runVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	python := config.DefaultPython
	if resolvedConfig != nil {
		python = resolvedConfig.Python.Value
	}

	py := version.DetectPython(cmd.Context(), python)
	fmt.Fprintln(cmd.OutOrStdout(), version.FullVersionString(version.Get(), py))
	return nil
}
