package release

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DigestArtifacts computes "sha256:<hex>" for each artifact, keyed by its
// path relative to workDir. Indexes publish the same digest per file.
func DigestArtifacts(workDir string, artifacts []string) (map[string]string, error) {
	digests := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		d, err := digestFile(filepath.Join(workDir, a))
		if err != nil {
			return nil, fmt.Errorf("digesting %s: %w", a, err)
		}
		digests[a] = d
	}
	return digests, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}
