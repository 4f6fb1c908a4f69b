package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistence-kit/pkrelease/internal/config"
	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
)

var configInitForce bool

const configHeader = `pkrelease configuration.

Every key is optional. Precedence: flag > PKRELEASE_* env > this file > default.

endpoints:
  preview: https://test.pypi.org/legacy/     # PKRELEASE_PREVIEW_URL
  production: https://upload.pypi.org/legacy/ # PKRELEASE_PRODUCTION_URL
log:
  timestamps: true`

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize default configuration",
		Long: `Initialize the pkrelease configuration.

Writes ~/.pkrelease/config.yaml (or the --config path) with the built-in
defaults: manifest, output directory, python interpreter, token variable
and bootstrap packages.

Examples:
  # Initialize configuration
  pkrelease config init

  # Overwrite existing configuration
  pkrelease config init --force`,
		RunE: runConfigInit,
	}

	cmd.Flags().BoolVarP(&configInitForce, "force", "f", false,
		"Overwrite existing configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	pathResult, err := config.ResolveConfigPath(configFlag)
	if err != nil {
		return reportError(cmd, oerrors.Wrap(oerrors.ErrConfig, "could not determine home directory"))
	}
	configPath, err := config.ExpandPath(pathResult.Value)
	if err != nil {
		return reportError(cmd, oerrors.Wrap(oerrors.ErrConfig, "could not expand config path"))
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return reportError(cmd, &oerrors.DetailError{
			Kind:    "config error",
			Message: "configuration already exists",
			Context: map[string]string{"path": configPath},
			Hint:    "Use --force to overwrite existing configuration.",
			Cause:   oerrors.ErrConfig,
		})
	}

	data, err := renderDefaultConfig()
	if err != nil {
		return reportError(cmd, err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return reportError(cmd, fmt.Errorf("%w: creating config directory: %w", oerrors.ErrConfig, err))
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return reportError(cmd, fmt.Errorf("%w: writing config file: %w", oerrors.ErrConfig, err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration initialized at "+configPath)
	fmt.Fprintln(out, "Validate with: pkrelease config vet")
	return nil
}

// renderDefaultConfig encodes the defaults with a commented header.
func renderDefaultConfig() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(config.DefaultConfig()); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	node.HeadComment = configHeader

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	return buf.Bytes(), nil
}
