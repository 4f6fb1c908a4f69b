// Package config provides configuration loading and management.
package config

// EndpointsConfig overrides the upload URL per index.
type EndpointsConfig struct {
	// Preview replaces the TestPyPI upload URL.
	// Env: PKRELEASE_PREVIEW_URL
	Preview string `json:"preview,omitempty" yaml:"preview,omitempty" mapstructure:"preview"`

	// Production replaces the PyPI upload URL.
	// Env: PKRELEASE_PRODUCTION_URL
	Production string `json:"production,omitempty" yaml:"production,omitempty" mapstructure:"production"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `json:"timestamps,omitempty" yaml:"timestamps,omitempty" mapstructure:"timestamps"`
}

// Config represents the release tool configuration, loaded from
// ~/.pkrelease/config.yaml and validated against the embedded CUE schema.
type Config struct {
	// Manifest is the project manifest, relative to the working directory.
	// Env: PKRELEASE_MANIFEST, Default: pyproject.toml
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty" mapstructure:"manifest"`

	// DistDir is the build output directory, relative to the working directory.
	// Env: PKRELEASE_DIST_DIR, Default: dist
	DistDir string `json:"distDir,omitempty" yaml:"distDir,omitempty" mapstructure:"distDir"`

	// Python is the interpreter used for pip, build and twine.
	// Env: PKRELEASE_PYTHON, Default: python
	Python string `json:"python,omitempty" yaml:"python,omitempty" mapstructure:"python"`

	// TokenEnv names the variable holding the upload token.
	// Env: PKRELEASE_TOKEN_ENV, Default: PYPI_TOKEN
	TokenEnv string `json:"tokenEnv,omitempty" yaml:"tokenEnv,omitempty" mapstructure:"tokenEnv"`

	// BootstrapPackages are installed or upgraded before building.
	BootstrapPackages []string `json:"bootstrapPackages,omitempty" yaml:"bootstrapPackages,omitempty" mapstructure:"bootstrapPackages"`

	// Endpoints overrides the upload URLs.
	Endpoints EndpointsConfig `json:"endpoints,omitempty" yaml:"endpoints,omitempty" mapstructure:"endpoints"`

	// Log contains logging-related settings.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log"`
}

// Built-in defaults.
const (
	DefaultManifest = "pyproject.toml"
	DefaultDistDir  = "dist"
	DefaultPython   = "python"
	DefaultTokenEnv = "PYPI_TOKEN"
)

// DefaultConfig returns a Config with all default values populated.
// Used by `pkrelease config init` to generate the initial config file.
func DefaultConfig() *Config {
	return &Config{
		Manifest:          DefaultManifest,
		DistDir:           DefaultDistDir,
		Python:            DefaultPython,
		TokenEnv:          DefaultTokenEnv,
		BootstrapPackages: []string{"build", "twine"},
	}
}
