package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables read by LoadFromEnv.
const EnvPrefix = "PLAYFAB"

// Load reads a YAML config file and expands environment variables.
// An empty path yields an empty Config so the tool can run on flags and
// environment alone.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv overlays PLAYFAB_TITLE_ID, PLAYFAB_SECRET_KEY,
// PLAYFAB_API_URL and PLAYFAB_API_TIMEOUT onto c. Unset variables leave the
// current value alone.
func (c *Config) LoadFromEnv() error {
	if err := envconfig.Process(EnvPrefix, &c.PlayFab); err != nil {
		return fmt.Errorf("load %s_* environment: %w", EnvPrefix, err)
	}
	return nil
}

// Finalize applies defaults and validates.
func (c *Config) Finalize() error {
	c.applyDefaults()
	return c.Validate()
}

// LoadAndValidate loads the file, overlays the environment and the given
// overrides, applies defaults and validates.
func LoadAndValidate(path string, o Overrides) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}
