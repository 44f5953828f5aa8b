package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

const configPath = "trextest.yaml"

type Config struct {
	Engine     string   `yaml:"engine"`
	EngineArgs []string `yaml:"engine_args"`
	Env        []string `yaml:"env"`
	WorkingDir string   `yaml:"working_dir"`
}

// Load reads trextest.yaml from the current directory. A missing file is
// not an error; every field has a harness default.
func Load() (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	bytes, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, configPath)
}

func SaveTo(cfg *Config, path string) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
