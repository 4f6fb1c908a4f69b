// Package cmd provides command implementations for the release CLI.
package cmd

// Exit codes returned by the pkrelease binary.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitUsageError indicates bad arguments or an unknown index.
	ExitUsageError = 2

	// ExitCredentialError indicates the upload token is missing.
	ExitCredentialError = 3

	// ExitManifestError indicates the manifest could not be read, patched or written.
	ExitManifestError = 4

	// ExitPipelineError indicates a clean, bootstrap, build, check or upload step failed.
	ExitPipelineError = 5
)

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitUsageError:
		return "Usage Error"
	case ExitCredentialError:
		return "Credential Error"
	case ExitManifestError:
		return "Manifest Error"
	case ExitPipelineError:
		return "Pipeline Error"
	default:
		return "Unknown"
	}
}
