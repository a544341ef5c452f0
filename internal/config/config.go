// Package config holds the nfcard configuration file and its environment
// overrides. Precedence is flags over NFCARD_* environment variables over the
// file over defaults; the flag layer lives in cmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"nfcard/internal/env"
	"nfcard/internal/tag"
)

// envPrefix namespaces the override variables, e.g. NFCARD_READER_TAG.
const envPrefix = "nfcard"

// Config is the root of the configuration file.
type Config struct {
	Reader  ReaderConfig  `yaml:"reader"`
	Env     EnvConfig     `yaml:"env"`
	Logging LoggingConfig `yaml:"logging"`
}

// ReaderConfig selects the reader and tag geometry.
type ReaderConfig struct {
	// Name is a substring filter on PC/SC reader names; empty matches any.
	Name string `yaml:"name"`
	// Tag names the geometry written to, one of tag.Names().
	Tag string `yaml:"tag"`
	// WaitTimeout bounds how long commands wait for a card.
	WaitTimeout time.Duration `yaml:"wait_timeout" split_words:"true"`
}

// EnvConfig feeds the environment provisioner.
type EnvConfig struct {
	Platform string `yaml:"platform"`
	// LibDir overrides the middleware library directory; empty selects the
	// platform default.
	LibDir string `yaml:"lib_dir" split_words:"true"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			Name:        "ACR122",
			Tag:         "ntag216",
			WaitTimeout: 10 * time.Second,
		},
		Env: EnvConfig{
			Platform: env.DefaultPlatform,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "nfcard", "config.yaml"), nil
}

// Load reads the file at path and applies environment overrides. A missing
// file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fall through to env overrides.
	case err != nil:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: applying environment overrides: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the commands cannot work
// with.
func (c *Config) Validate() error {
	if _, err := tag.ByName(c.Reader.Tag); err != nil {
		return err
	}
	if c.Reader.WaitTimeout <= 0 {
		return errors.New("config: reader.wait_timeout must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	return nil
}
