package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
	"github.com/persistence-kit/pkrelease/internal/release"
)

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *oerrors.ExitError {
	return &oerrors.ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *oerrors.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, oerrors.ErrUsage), errors.Is(err, oerrors.ErrInvalidIndex):
		return ExitUsageError
	case errors.Is(err, oerrors.ErrMissingCredential):
		return ExitCredentialError
	case errors.Is(err, oerrors.ErrPipelineStep):
		// Checked before ErrManifest: a joined restore failure never
		// replaces the step that failed first.
		return ExitPipelineError
	case errors.Is(err, oerrors.ErrManifest):
		return ExitManifestError
	default:
		return ExitGeneralError
	}
}

// reportError writes the one-line diagnostic, its hint and any captured step
// output to stderr, and returns an ExitError marked as printed.
func reportError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	printDiagnostic(cmd.ErrOrStderr(), err)
	return &oerrors.ExitError{Err: err, Code: ExitCodeFromError(err), Printed: true}
}

func printDiagnostic(w io.Writer, err error) {
	fmt.Fprintln(w, "Error: "+err.Error())

	if hint := hintFor(err); hint != "" {
		fmt.Fprintln(w, output.StyleDim.Render("Hint: "+hint))
	}

	var stepErr *release.PipelineStepError
	if errors.As(err, &stepErr) && stepErr.Output != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, output.StyleDim.Render("Last output of "+string(stepErr.Step)+":"))
		fmt.Fprintln(w, output.IndentDiff(stepErr.Output, "  "))
	}
}

func hintFor(err error) string {
	if hint := oerrors.HintOf(err); hint != "" {
		return hint
	}

	var (
		usageErr *release.UsageError
		indexErr *release.InvalidIndexError
		patchErr *release.ManifestPatchError
	)
	switch {
	case errors.As(err, &usageErr), errors.As(err, &indexErr):
		return release.UsageText
	case errors.As(err, &patchErr):
		return `the manifest needs exactly one version = "..." line in [project] or [tool.poetry]`
	case errors.Is(err, oerrors.ErrConfig):
		return "Run 'pkrelease config vet' for details."
	}
	return ""
}
