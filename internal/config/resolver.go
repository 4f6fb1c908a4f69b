package config

import (
	"fmt"
	"os"
	"strings"

	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// Environment variables recognized by the resolver.
const (
	EnvConfig        = "PKRELEASE_CONFIG"
	EnvManifest      = "PKRELEASE_MANIFEST"
	EnvDistDir       = "PKRELEASE_DIST_DIR"
	EnvPython        = "PKRELEASE_PYTHON"
	EnvTokenEnv      = "PKRELEASE_TOKEN_ENV"
	EnvPreviewURL    = "PKRELEASE_PREVIEW_URL"
	EnvProductionURL = "PKRELEASE_PRODUCTION_URL"
)

// ResolvedValue is a configuration value with its provenance.
type ResolvedValue struct {
	Key      string
	Value    string
	Source   ConfigSource
	Shadowed map[ConfigSource]string
}

// ResolvedConfig holds every value the release command consumes.
type ResolvedConfig struct {
	ConfigPath    ResolvedValue
	Manifest      ResolvedValue
	DistDir       ResolvedValue
	Python        ResolvedValue
	TokenEnv      ResolvedValue
	PreviewURL    ResolvedValue
	ProductionURL ResolvedValue

	// BootstrapPackages come from the config file only.
	BootstrapPackages []string

	// ConfigFound reports whether the config file existed.
	ConfigFound bool

	// Config is the loaded file merged with defaults.
	Config *Config
}

// Values lists the resolved values in display order.
func (r *ResolvedConfig) Values() []ResolvedValue {
	return []ResolvedValue{
		r.ConfigPath, r.Manifest, r.DistDir, r.Python, r.TokenEnv, r.PreviewURL, r.ProductionURL,
	}
}

// resolve applies precedence flag > env > config > default.
func resolve(key, flagValue, envVar, configValue, defaultValue string) ResolvedValue {
	result := ResolvedValue{Key: key, Shadowed: make(map[ConfigSource]string)}

	envValue := ""
	if envVar != "" {
		envValue = strings.TrimSpace(os.Getenv(envVar))
	}

	candidates := []struct {
		source ConfigSource
		value  string
	}{
		{SourceFlag, flagValue},
		{SourceEnv, envValue},
		{SourceConfig, configValue},
		{SourceDefault, defaultValue},
	}

	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if result.Source == "" {
			result.Value = c.value
			result.Source = c.source
			continue
		}
		result.Shadowed[c.source] = c.value
	}
	return result
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) PKRELEASE_CONFIG env, (3) ~/.pkrelease/config.yaml
func ResolveConfigPath(flagValue string) (ResolvedValue, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return ResolvedValue{}, err
	}
	return resolve("config", flagValue, EnvConfig, "", paths.ConfigFile), nil
}

// ResolveAllOptions contains the flag values feeding ResolveAll.
type ResolveAllOptions struct {
	ConfigFlag   string
	ManifestFlag string
	DistDirFlag  string
	PythonFlag   string
}

// ResolveAll resolves the config path, loads the file and applies the
// flag > env > config > default precedence to every value.
func ResolveAll(opts ResolveAllOptions) (*ResolvedConfig, error) {
	configPath, err := ResolveConfigPath(opts.ConfigFlag)
	if err != nil {
		return nil, err
	}

	cfg, found, err := NewLoader().Load(configPath.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", oerrors.ErrConfig, err)
	}
	if found {
		validator, err := NewValidator()
		if err != nil {
			return nil, err
		}
		if err := validator.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", oerrors.ErrConfig, configPath.Value, err)
		}
	}

	// Defaults were merged in by the loader; attribute them correctly.
	def := DefaultConfig()
	fromFile := func(value, defaultValue string) string {
		if found && value != defaultValue {
			return value
		}
		return ""
	}

	return &ResolvedConfig{
		ConfigPath:        configPath,
		Manifest:          resolve("manifest", opts.ManifestFlag, EnvManifest, fromFile(cfg.Manifest, def.Manifest), def.Manifest),
		DistDir:           resolve("distDir", opts.DistDirFlag, EnvDistDir, fromFile(cfg.DistDir, def.DistDir), def.DistDir),
		Python:            resolve("python", opts.PythonFlag, EnvPython, fromFile(cfg.Python, def.Python), def.Python),
		TokenEnv:          resolve("tokenEnv", "", EnvTokenEnv, fromFile(cfg.TokenEnv, def.TokenEnv), def.TokenEnv),
		PreviewURL:        resolve("endpoints.preview", "", EnvPreviewURL, cfg.Endpoints.Preview, ""),
		ProductionURL:     resolve("endpoints.production", "", EnvProductionURL, cfg.Endpoints.Production, ""),
		BootstrapPackages: cfg.BootstrapPackages,
		ConfigFound:       found,
		Config:            cfg,
	}, nil
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
