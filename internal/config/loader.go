package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"
)

// Loader reads the config file. Environment and flag overrides are applied
// later by ResolveAll so each value's source can be reported.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader with built-in defaults.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")

	d := DefaultConfig()
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("distDir", d.DistDir)
	v.SetDefault("python", d.Python)
	v.SetDefault("tokenEnv", d.TokenEnv)
	v.SetDefault("bootstrapPackages", d.BootstrapPackages)

	return &Loader{v: v}
}

// Load reads configFile (with ~ expanded). A missing file is not an error:
// the defaults are returned and found is false.
func (l *Loader) Load(configFile string) (cfg *Config, found bool, err error) {
	expanded, err := ExpandPath(configFile)
	if err != nil {
		return nil, false, fmt.Errorf("expanding config path: %w", err)
	}

	if expanded != "" {
		l.v.SetConfigFile(expanded)
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
				return nil, false, fmt.Errorf("reading config file: %w", err)
			}
		} else {
			found = true
		}
	}

	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return nil, false, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &c, found, nil
}
