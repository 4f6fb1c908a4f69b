package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_MissingFileReturnsDefaults(t *testing.T) {
	cfg, found, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Equal(t, DefaultDistDir, cfg.DistDir)
	assert.Equal(t, DefaultPython, cfg.Python)
	assert.Equal(t, DefaultTokenEnv, cfg.TokenEnv)
	assert.Equal(t, []string{"build", "twine"}, cfg.BootstrapPackages)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
python: python3.12
distDir: build/dist
tokenEnv: TEST_PYPI_TOKEN
bootstrapPackages: [build, twine, wheel]
endpoints:
  preview: https://pypi.internal.example/legacy/
log:
  timestamps: false
`)

	cfg, found, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "python3.12", cfg.Python)
	assert.Equal(t, "build/dist", cfg.DistDir)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Equal(t, "TEST_PYPI_TOKEN", cfg.TokenEnv)
	assert.Equal(t, []string{"build", "twine", "wheel"}, cfg.BootstrapPackages)
	assert.Equal(t, "https://pypi.internal.example/legacy/", cfg.Endpoints.Preview)
	assert.Empty(t, cfg.Endpoints.Production)
	require.NotNil(t, cfg.Log.Timestamps)
	assert.False(t, *cfg.Log.Timestamps)
}

func TestLoader_MalformedFile(t *testing.T) {
	path := writeConfig(t, "python: [unterminated\n")

	_, _, err := NewLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
