package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/sebas5384/now-builders/internal/config"
)

// configParams are the flags shared by commands reading a configuration.
type configParams struct {
	configs  []string
	envFiles []string
}

func (p *configParams) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&p.configs, "config", "c", nil, "Path to a configuration file, later files override earlier ones (repeatable)")
	fs.StringSliceVar(&p.envFiles, "env-file", nil, "Path to a .env file loaded before the configuration (repeatable)")
}

// load reads the .env files and the configuration. Variables already set in
// the environment win over the ones from .env files.
func (p *configParams) load() (*config.Root, error) {
	if len(p.envFiles) > 0 {
		if err := godotenv.Load(p.envFiles...); err != nil {
			return nil, fmt.Errorf("env file: %w", err)
		}
	}

	if len(p.configs) == 0 {
		return &config.Root{}, nil
	}
	return config.Load(p.configs...)
}
