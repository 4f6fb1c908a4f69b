// Package errors provides sentinel errors and diagnostic types for the release CLI.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for known failure kinds.
var (
	// ErrUsage indicates the command was invoked with the wrong arguments.
	ErrUsage = errors.New("usage error")

	// ErrInvalidIndex indicates an unrecognized target index.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrMissingCredential indicates the upload token is absent from the environment.
	ErrMissingCredential = errors.New("missing credential")

	// ErrManifest indicates the manifest could not be read, patched or written.
	ErrManifest = errors.New("manifest error")

	// ErrPipelineStep indicates an external pipeline step failed.
	ErrPipelineStep = errors.New("pipeline step failed")

	// ErrConfig indicates an invalid configuration file.
	ErrConfig = errors.New("config error")
)

// DetailError captures a failure kind, a one-line message and an optional hint.
type DetailError struct {
	// Kind is the failure category (required).
	Kind string

	// Message is the specific description (required).
	Message string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface. The result is always a single line.
func (e *DetailError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k + "=" + e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil && !isSentinel(e.Cause) {
		b.WriteString(": ")
		b.WriteString(oneLine(e.Cause.Error()))
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// ExitError carries the process exit code for an error.
type ExitError struct {
	Err  error
	Code int

	// Printed is set once the diagnostic has been written to stderr.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}

// HintOf returns the hint of the first DetailError in err's chain, if any.
func HintOf(err error) string {
	var de *DetailError
	if errors.As(err, &de) {
		return de.Hint
	}
	return ""
}

func isSentinel(err error) bool {
	switch err {
	case ErrUsage, ErrInvalidIndex, ErrMissingCredential, ErrManifest, ErrPipelineStep, ErrConfig:
		return true
	}
	return false
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
