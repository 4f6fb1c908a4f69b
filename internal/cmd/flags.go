package cmd

import (
	"github.com/persistence-kit/pkrelease/internal/config"
)

// resolveRunConfig resolves the run command's local flags against
// env, config and defaults.
func resolveRunConfig(manifestFlag, distFlag, pythonFlag string) (*config.ResolvedConfig, error) {
	resolved, err := config.ResolveAll(config.ResolveAllOptions{
		ConfigFlag:   configFlag,
		ManifestFlag: manifestFlag,
		DistDirFlag:  distFlag,
		PythonFlag:   pythonFlag,
	})
	if err != nil {
		return nil, err
	}
	config.LogResolvedValues([]config.ResolvedValue{resolved.Manifest, resolved.DistDir, resolved.Python})
	return resolved, nil
}
