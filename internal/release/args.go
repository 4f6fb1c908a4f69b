package release

import (
	"fmt"
	"regexp"
	"strings"
)

// Args are the validated positional arguments of a release run.
type Args struct {
	Version string
	Index   TargetIndex
}

// ParseArgs validates the positional arguments: a version and an optional
// target index defaulting to preview.
func ParseArgs(args []string) (Args, error) {
	if len(args) == 0 || len(args) > 2 {
		return Args{}, &UsageError{Reason: fmt.Sprintf("expected 1 or 2 arguments, got %d", len(args))}
	}

	version := strings.TrimSpace(args[0])
	if version == "" {
		return Args{}, &UsageError{Reason: "version must not be empty"}
	}
	if strings.ContainsAny(version, "\"\\\n\r") {
		return Args{}, &UsageError{Reason: fmt.Sprintf("version %q contains characters not allowed in a TOML string", version)}
	}

	index := DefaultIndex
	if len(args) == 2 {
		parsed, err := ParseTargetIndex(args[1])
		if err != nil {
			return Args{}, err
		}
		index = parsed
	}

	return Args{Version: version, Index: index}, nil
}

// pep440Regex is the canonical public version pattern from PEP 440, appendix B.
var pep440Regex = regexp.MustCompile(
	`^([1-9][0-9]*!)?(0|[1-9][0-9]*)(\.(0|[1-9][0-9]*))*((a|b|rc)(0|[1-9][0-9]*))?(\.post(0|[1-9][0-9]*))?(\.dev(0|[1-9][0-9]*))?$`)

// IsCanonicalVersion reports whether v is a canonical PEP 440 public version.
// Non-canonical versions are not rejected; the index is the authority.
func IsCanonicalVersion(v string) bool {
	return pep440Regex.MatchString(v)
}
