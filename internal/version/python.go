package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// pythonVersionRegex matches interpreter output like "Python 3.12.4".
var pythonVersionRegex = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:(?:a|b|rc)\d+)?\+?`)

// moduleVersionRegex matches the leading version in "twine version 5.1.1 (...)"
// or "build 1.2.1 (/path/to/build)".
var moduleVersionRegex = regexp.MustCompile(`\d+(?:\.\d+)+\S*`)

// ReleaseModules are the python modules the release pipeline invokes.
var ReleaseModules = []string{"build", "twine"}

// ModuleInfo describes one python module used by the pipeline.
type ModuleInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Found   bool   `json:"found"`
}

// PythonInfo describes the interpreter the pipeline will run.
type PythonInfo struct {
	// Interpreter is the configured command name.
	Interpreter string `json:"interpreter"`

	// Path is where the interpreter was found in PATH.
	Path string `json:"path,omitempty"`

	// Version is the interpreter version.
	Version string `json:"version,omitempty"`

	// Found indicates if the interpreter was found.
	Found bool `json:"found"`

	// Message explains a detection failure.
	Message string `json:"message,omitempty"`

	// Modules reports build and twine availability.
	Modules []ModuleInfo `json:"modules,omitempty"`
}

// DetectPython finds the interpreter and checks the modules the pipeline needs.
func DetectPython(ctx context.Context, interpreter string) PythonInfo {
	info := PythonInfo{Interpreter: interpreter}

	path, err := exec.LookPath(interpreter)
	if err != nil {
		info.Message = interpreter + " not found in PATH"
		return info
	}
	info.Path = path
	info.Found = true

	out, err := runVersion(ctx, path, "--version")
	if err != nil {
		info.Message = "failed to get python version: " + err.Error()
		return info
	}
	version, err := extractPythonVersion(out)
	if err != nil {
		info.Message = err.Error()
		return info
	}
	info.Version = version

	for _, name := range ReleaseModules {
		mod := ModuleInfo{Name: name}
		if out, err := runVersion(ctx, path, "-m", name, "--version"); err == nil {
			mod.Found = true
			mod.Version = moduleVersionRegex.FindString(out)
		}
		info.Modules = append(info.Modules, mod)
	}
	return info
}

// String returns a human-readable interpreter summary.
func (p PythonInfo) String() string {
	if !p.Found {
		return fmt.Sprintf("  Interpreter: %s (not found)", p.Interpreter)
	}

	var b strings.Builder
	version := p.Version
	if version == "" {
		version = p.Message
	}
	fmt.Fprintf(&b, "  Interpreter: %s %s\n  Path:        %s", p.Interpreter, version, p.Path)
	for _, m := range p.Modules {
		status := "not installed"
		if m.Found {
			status = m.Version
		}
		fmt.Fprintf(&b, "\n  %-12s %s", m.Name+":", status)
	}
	return b.String()
}

func runVersion(ctx context.Context, path string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// extractPythonVersion extracts the version from `python --version` output.
// Python 2 printed to stderr, which is captured with stdout.
func extractPythonVersion(output string) (string, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "Python") {
			continue
		}
		if match := pythonVersionRegex.FindString(line); match != "" {
			return match, nil
		}
	}
	return "", &versionParseError{output: output}
}

// versionParseError indicates failure to parse interpreter version output.
type versionParseError struct {
	output string
}

func (e *versionParseError) Error() string {
	return "failed to parse python version from output: " + strings.TrimSpace(e.output)
}
