// Package config loads service configuration (defaults, optional YAML file,
// FARMREC_ environment overrides) and persists the small user settings file
// that remembers an installed model pack between runs.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// FARMREC_PORT, FARMREC_LOG_LEVEL.
const EnvPrefix = "FARMREC_"

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/farm-recommender/config.yaml",
}

// Config holds the application configuration.
type Config struct {
	Port      int    `koanf:"port"`
	ModelsDir string `koanf:"models_dir"`
	DataDir   string `koanf:"data_dir"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	Version   string `koanf:"-"`
}

func defaultConfig() *Config {
	return &Config{
		Port:      8080,
		ModelsDir: "./models",
		DataDir:   "./data",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load builds the configuration: struct defaults, then the first config file
// found (or configPath when given), then FARMREC_ environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("could not load defaults: %w", err)
	}

	paths := DefaultConfigPaths
	if configPath != "" {
		paths = []string{configPath}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if configPath != "" {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", path, err)
		}
		break
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("could not load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	return &cfg, nil
}
