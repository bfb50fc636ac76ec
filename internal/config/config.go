// Package config loads CLI configuration from defaults, an optional
// .ipxgraph/config.yaml, a .env file and IPXGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nvandessel/ipxgraph/internal/store"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. IPXGRAPH_HASH_WORKERS.
const EnvPrefix = "IPXGRAPH"

// Config holds the settings shared by all commands. Relative paths are
// resolved against the project root.
type Config struct {
	Graph           string `mapstructure:"graph" validate:"required"`
	Baseline        string `mapstructure:"baseline" validate:"required"`
	SchemaExtension string `mapstructure:"schema_extension"`

	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`

	HashWorkers     int  `mapstructure:"hash_workers" validate:"gte=1,lte=256"`
	MaxDepth        int  `mapstructure:"max_depth" validate:"gte=0"`
	IncludeUpstream bool `mapstructure:"include_upstream"`

	// Root is the project root Load was called with. Node file paths in the
	// graph are relative to it.
	Root string `mapstructure:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration for the project at root. configFile overrides the
// default .ipxgraph/config.yaml and, unlike the default, must exist.
func Load(root, configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load(filepath.Join(root, ".env"))

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("graph", filepath.Join(store.WorkspaceDirName, store.DefaultSnapshotFile))
	v.SetDefault("baseline", filepath.Join(store.WorkspaceDirName, store.DefaultBaselineFile))
	v.SetDefault("schema_extension", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("hash_workers", 8)
	v.SetDefault("max_depth", 0)
	v.SetDefault("include_upstream", false)

	if configFile == "" {
		def := filepath.Join(store.WorkspacePath(root), store.DefaultConfigFile)
		if _, err := os.Stat(def); err == nil {
			configFile = def
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c.Root = root
	c.Graph = resolve(root, c.Graph)
	c.Baseline = resolve(root, c.Baseline)
	if c.SchemaExtension != "" {
		c.SchemaExtension = resolve(root, c.SchemaExtension)
	}
	return &c, nil
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
