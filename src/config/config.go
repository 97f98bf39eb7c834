// Package config loads dockpush settings from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFiles are tried in order when no config path is given.
var DefaultFiles = []string{".dockpush.yml", ".dockpush.yaml", ".dockpush.toml"}

// Config is the top-level dockpush configuration.
type Config struct {
	Version int          `yaml:"version" toml:"version"`
	Docker  DockerConfig `yaml:"docker" toml:"docker"`
	Retry   RetryConfig  `yaml:"retry" toml:"retry"`
	Log     LogConfig    `yaml:"log" toml:"log"`
	Output  OutputConfig `yaml:"output" toml:"output"`
}

// Load reads configuration from path. The format follows the extension:
// ".toml" is TOML, anything else YAML.
// If path is empty, the default files are tried and defaults are returned
// when none exists. An explicit path must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, name := range DefaultFiles {
			cfg, err := load(name)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cfg, err
		}
		return Defaults(), nil
	}
	return load(path)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Docker:  DefaultDockerConfig(),
		Retry:   DefaultRetryConfig(),
		Log:     DefaultLogConfig(),
	}
}
