package release

import (
	"fmt"
	"strconv"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
)

// UsageText is the one-line usage hint shown with a UsageError.
const UsageText = "usage: pkrelease run <version> [preview|production]"

// UsageError indicates the wrong number or shape of positional arguments.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage error: %s (%s)", e.Reason, UsageText)
}

func (e *UsageError) Unwrap() error { return oerrors.ErrUsage }

// InvalidIndexError indicates a target index outside the recognized set.
type InvalidIndexError struct {
	Value string
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid index: %q is not one of %s or %s", e.Value, IndexPreview, IndexProduction)
}

func (e *InvalidIndexError) Unwrap() error { return oerrors.ErrInvalidIndex }

// MissingCredentialError indicates the upload token is absent or empty.
type MissingCredentialError struct {
	Index  TargetIndex
	EnvVar string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential: %s is not set; create a %s token at %s",
		e.EnvVar, e.Index, e.Index.TokenURL())
}

func (e *MissingCredentialError) Unwrap() error { return oerrors.ErrMissingCredential }

// ManifestReadError indicates the manifest could not be read into a snapshot.
type ManifestReadError struct {
	Path string
	Err  error
}

func (e *ManifestReadError) Error() string {
	return fmt.Sprintf("manifest read error: %s: %v", e.Path, e.Err)
}

func (e *ManifestReadError) Unwrap() []error { return []error{oerrors.ErrManifest, e.Err} }

// ManifestWriteError indicates the patched or restored manifest could not be written.
type ManifestWriteError struct {
	Path string
	Op   string // "patch" or "restore"
	Err  error
}

func (e *ManifestWriteError) Error() string {
	return fmt.Sprintf("manifest write error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ManifestWriteError) Unwrap() []error { return []error{oerrors.ErrManifest, e.Err} }

// ManifestPatchError indicates the manifest does not contain exactly one
// substitutable version line. Nothing is written when it occurs.
type ManifestPatchError struct {
	Table   string
	Matches int
	Reason  string
}

func (e *ManifestPatchError) Error() string {
	if e.Reason != "" {
		return "manifest patch error: " + e.Reason
	}
	return fmt.Sprintf("manifest patch error: expected exactly one version line in [%s], found %d",
		e.Table, e.Matches)
}

func (e *ManifestPatchError) Unwrap() error { return oerrors.ErrManifest }

// PipelineStepError indicates an external pipeline step failed. Later steps did not run.
type PipelineStepError struct {
	Step     StepName
	ExitCode int
	Output   string
	Err      error
}

func (e *PipelineStepError) Error() string {
	msg := "pipeline step failed: step=" + string(e.Step)
	if e.ExitCode > 0 {
		msg += " exit=" + strconv.Itoa(e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineStepError) Unwrap() []error {
	if e.Err == nil {
		return []error{oerrors.ErrPipelineStep}
	}
	return []error{oerrors.ErrPipelineStep, e.Err}
}
