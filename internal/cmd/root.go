package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/persistence-kit/pkrelease/internal/config"
	oerrors "github.com/persistence-kit/pkrelease/internal/errors"
	"github.com/persistence-kit/pkrelease/internal/output"
)

var (
	// Global flags
	configFlag     string
	verboseFlag    bool
	timestampsFlag bool

	// Resolved configuration (loaded during PersistentPreRunE)
	resolvedConfig *config.ResolvedConfig
)

// NewRootCmd creates the root command for the release CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkrelease",
		Short: "Release the persistence-kit Python package",
		Long: `pkrelease builds, checks and uploads the persistence-kit package to
TestPyPI or PyPI. The manifest version is patched for the duration of the
run and always restored afterwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals(cmd)
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", oerrors.ErrUsage, err)
	})

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (env: PKRELEASE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&timestampsFlag, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initializeGlobals sets up logging from the global flags and config file.
func initializeGlobals(cmd *cobra.Command) error {
	resolved, resolveErr := config.ResolveAll(config.ResolveAllOptions{ConfigFlag: configFlag})
	resolvedConfig = resolved

	logCfg := output.LogConfig{
		Verbose: verboseFlag,
		Writer:  cmd.ErrOrStderr(),
	}

	// Resolve timestamps: flag (if explicitly set) > config > default (nil = true)
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(timestampsFlag)
	} else if resolved != nil && resolved.Config != nil && resolved.Config.Log.Timestamps != nil {
		logCfg.Timestamps = resolved.Config.Log.Timestamps
	}

	output.SetupLogging(logCfg)

	if resolveErr != nil {
		// Don't fail here: config vet reports the problem and run re-resolves.
		output.Debug("config load error", "error", resolveErr)
		return nil
	}
	if resolved != nil {
		config.LogResolvedValues(resolved.Values())
	}
	return nil
}

// GetResolvedConfig returns the configuration resolved for global flags.
func GetResolvedConfig() *config.ResolvedConfig {
	return resolvedConfig
}

// GetConfigPath returns the resolved config path value.
func GetConfigPath() string {
	if resolvedConfig != nil {
		return resolvedConfig.ConfigPath.Value
	}
	return configFlag
}
