package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
	"github.com/persistence-kit/pkrelease/internal/release"
)

// Run command flags.
var (
	runManifestFlag      string
	runDistFlag          string
	runPythonFlag        string
	runSkipBootstrapFlag bool
	runDryRunFlag        bool
	runOutputFlag        string
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <version> [preview|production]",
		Short: "Build, check and upload a release",
		Long: `Build, check and upload one release of the package.

The manifest version is set to <version> for the duration of the run and
restored afterwards, whether the run succeeds, fails or is interrupted.

Steps, in order:
  clean      remove the output directory
  bootstrap  install or upgrade build and twine
  build      build the sdist and wheel
  check      validate the artifacts with twine
  upload     upload the artifacts to the index

The index defaults to preview (TestPyPI). The upload token is read from
PYPI_TOKEN unless tokenEnv is configured.

Examples:
  # Upload a pre-release to TestPyPI
  pkrelease run 0.1.1.dev1

  # Upload to PyPI
  pkrelease run 0.2.0 production

  # Show the manifest change and the planned commands
  pkrelease run 0.2.0 production --dry-run`,
		Args: cobra.ArbitraryArgs,
		RunE: runRelease,
	}

	cmd.Flags().StringVar(&runManifestFlag, "manifest", "", "Project manifest (env: PKRELEASE_MANIFEST)")
	cmd.Flags().StringVar(&runDistFlag, "dist", "", "Build output directory (env: PKRELEASE_DIST_DIR)")
	cmd.Flags().StringVar(&runPythonFlag, "python", "", "Python interpreter (env: PKRELEASE_PYTHON)")
	cmd.Flags().BoolVar(&runSkipBootstrapFlag, "skip-bootstrap", false, "Do not install or upgrade build and twine")
	cmd.Flags().BoolVar(&runDryRunFlag, "dry-run", false, "Preview the manifest change and steps without writing or running anything")
	cmd.Flags().StringVarP(&runOutputFlag, "output", "o", "text", "Summary format: "+strings.Join(output.ValidFormats(), ", "))

	return cmd
}

func runRelease(cmd *cobra.Command, args []string) error {
	format, ok := output.ParseOutputFormat(runOutputFlag)
	if !ok {
		return reportError(cmd, &oerrors.DetailError{
			Kind:    "usage error",
			Message: fmt.Sprintf("unknown output format %q", runOutputFlag),
			Hint:    "Valid formats: " + strings.Join(output.ValidFormats(), ", "),
			Cause:   oerrors.ErrUsage,
		})
	}

	resolved, err := resolveRunConfig(runManifestFlag, runDistFlag, runPythonFlag)
	if err != nil {
		return reportError(cmd, err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return reportError(cmd, fmt.Errorf("determining working directory: %w", err))
	}

	executor := release.NewProcessExecutor(workDir)
	if verboseFlag {
		executor.Stream = cmd.ErrOrStderr()
	}

	summary, err := release.Run(cmd.Context(), release.Options{
		Args:              args,
		WorkDir:           workDir,
		Manifest:          resolved.Manifest.Value,
		DistDir:           resolved.DistDir.Value,
		Python:            resolved.Python.Value,
		BootstrapPackages: resolved.BootstrapPackages,
		TokenEnv:          resolved.TokenEnv.Value,
		Endpoints: release.Endpoints{
			Preview:    resolved.PreviewURL.Value,
			Production: resolved.ProductionURL.Value,
		},
		SkipBootstrap: runSkipBootstrapFlag,
		DryRun:        runDryRunFlag,
		Executor:      executor,
	})

	if summary != nil {
		if werr := writeSummary(cmd.OutOrStdout(), summary, format, runDryRunFlag || verboseFlag, workDir); werr != nil {
			output.Warn("could not write release summary", "error", werr)
		}
	}
	return reportError(cmd, err)
}

// writeSummary prints the release summary. Text output includes the
// manifest diff when showDiff is set.
func writeSummary(w io.Writer, s *release.Summary, format output.OutputFormat, showDiff bool, workDir string) error {
	if format != output.FormatText {
		return output.WriteStructured(w, s, format)
	}

	fmt.Fprintf(w, "%s %s to %s %s\n",
		output.StyleAction.Render("Release"),
		output.StyleNoun.Render(s.Version),
		output.StyleNoun.Render(s.Index.String()),
		output.StyleDim.Render("("+s.Endpoint+")"),
	)
	if s.PreviousVersion != "" {
		fmt.Fprintf(w, "%s %s: %s -> %s\n",
			output.StyleDim.Render("manifest"),
			output.StyleNoun.Render(s.Manifest),
			s.PreviousVersion, s.Version)
	}
	if showDiff && s.ManifestDiff != "" {
		fmt.Fprintln(w, output.IndentDiff(s.ManifestDiff, "  "))
	}

	for _, step := range s.Steps {
		detail := step.Elapsed
		if s.DryRun {
			detail = step.Command
		} else if step.Status == output.StatusFailed && step.ExitCode != 0 {
			detail = fmt.Sprintf("exit %d", step.ExitCode)
		}
		fmt.Fprintln(w, output.FormatStepLine(string(step.Step), step.Status, detail))
	}

	if len(s.Artifacts) > 0 {
		fmt.Fprintln(w, output.RenderArtifactTable(artifactInfos(workDir, s.Artifacts, s.Digests)))
	}

	switch {
	case s.Succeeded:
		fmt.Fprintln(w, output.FormatCheckmark(fmt.Sprintf("Uploaded %d artifact(s) to %s", len(s.Artifacts), s.Index)))
	case s.DryRun:
		fmt.Fprintln(w, output.StyleSummary.Render("Dry run: nothing was written or run"))
	}
	if !s.Restored {
		fmt.Fprintln(w, output.StyleSummary.Render("Manifest was NOT restored: "+s.Manifest))
	}
	return nil
}

func artifactInfos(workDir string, paths []string, digests map[string]string) []output.ArtifactInfo {
	infos := make([]output.ArtifactInfo, 0, len(paths))
	for _, p := range paths {
		info := output.ArtifactInfo{Path: p, Digest: digests[p]}
		if fi, err := os.Stat(filepath.Join(workDir, p)); err == nil {
			info.Size = fi.Size()
		}
		infos = append(infos, info)
	}
	return infos
}
