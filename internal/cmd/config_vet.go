package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/persistence-kit/pkrelease/internal/config"
	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet",
		Short: "Validate configuration",
		Long: `Validate the pkrelease configuration file.

Checks performed:
  1. Config file exists at resolved path
  2. Config file matches the schema (unknown keys are rejected)
  3. The token variable named by tokenEnv is set

The config path is resolved using precedence:
  --config flag > PKRELEASE_CONFIG env > ~/.pkrelease/config.yaml

Examples:
  # Validate default configuration
  pkrelease config vet

  # Validate custom config path
  pkrelease config vet --config ./pkrelease.yaml`,
		RunE: runConfigVet,
	}

	return cmd
}

func runConfigVet(cmd *cobra.Command, _ []string) error {
	pathResult, err := config.ResolveConfigPath(configFlag)
	if err != nil {
		return reportError(cmd, oerrors.Wrap(oerrors.ErrConfig, "could not resolve config path"))
	}
	configPath, err := config.ExpandPath(pathResult.Value)
	if err != nil {
		return reportError(cmd, oerrors.Wrap(oerrors.ErrConfig, "could not expand config path"))
	}

	output.Debug("validating config", "path", configPath, "source", pathResult.Source)

	// Check 1: Config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return reportError(cmd, &oerrors.DetailError{
			Kind:    "config error",
			Message: "configuration file not found",
			Context: map[string]string{"path": configPath},
			Hint:    "Run 'pkrelease config init' to create default configuration.",
			Cause:   oerrors.ErrConfig,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.FormatVetCheck("Config file found", configPath))

	// Check 2: Schema
	validator, err := config.NewValidator()
	if err != nil {
		return reportError(cmd, fmt.Errorf("creating validator: %w", err))
	}
	if err := validator.ValidateFile(configPath); err != nil {
		detail := &oerrors.DetailError{
			Kind:    "config error",
			Message: "configuration does not match the schema",
			Context: map[string]string{"path": configPath},
			Hint:    "Fix the fields listed above.",
			Cause:   oerrors.ErrConfig,
		}
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			w := cmd.ErrOrStderr()
			for _, e := range verrs {
				fmt.Fprintf(w, "  %s\n", e.Error())
			}
		} else {
			detail.Hint = ""
			detail.Cause = fmt.Errorf("%w: %w", oerrors.ErrConfig, err)
		}
		return reportError(cmd, detail)
	}
	fmt.Fprintln(out, output.FormatVetCheck("Schema validation passed", ""))

	// Check 3: Token variable
	resolved, err := config.ResolveAll(config.ResolveAllOptions{ConfigFlag: configPath})
	if err != nil {
		return reportError(cmd, err)
	}
	tokenEnv := resolved.TokenEnv.Value
	if _, ok := os.LookupEnv(tokenEnv); ok {
		fmt.Fprintln(out, output.FormatVetCheck("Token variable set", tokenEnv))
	} else {
		output.Warn("token variable is not set; run will fail until it is", "env", tokenEnv)
	}

	return nil
}
