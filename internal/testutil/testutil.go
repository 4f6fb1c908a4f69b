// Package testutil provides test helpers for CLI tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// PyProject is a representative manifest used across tests.
const PyProject = `[build-system]
requires = ["setuptools>=68", "wheel"]
build-backend = "setuptools.build_meta"

[project]
name = "persistence-kit"
version = "0.1.0"  # bumped by the release tool
description = "Repository abstractions for dataclass entities"
requires-python = ">=3.10"
dependencies = [
    "sqlalchemy>=2.0",
]

[project.optional-dependencies]
mongo = ["pymongo>=4.6"]

[tool.setuptools.packages.find]
include = ["persistence_kit*"]

[tool.bumpver]
version = "0.1.0"
`

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile returns the content of path as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// Project creates a temporary project root containing PyProject as
// pyproject.toml and returns the root and the manifest path.
func Project(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return dir, WriteFile(t, dir, "pyproject.toml", PyProject)
}
