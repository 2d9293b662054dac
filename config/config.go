// Package config holds the analyzer's tunables, loaded from yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pattyshack/elfscope/strscan"
)

var (
	ErrInvalidConfig = fmt.Errorf("invalid config")
)

type Config struct {
	// Shortest printable run reported by the string scan.
	MinStringLength int `yaml:"min_string_length"`

	// Names added to the well-known allocator / soft-float sets.
	ExtraAllocators []string `yaml:"extra_allocators,omitempty"`
	ExtraSoftFloat  []string `yaml:"extra_soft_float,omitempty"`

	// One of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		MinStringLength: strscan.DefaultMinLength,
		LogLevel:        "warn",
	}
}

// Parse decodes yaml content on top of the default config.  Unknown keys
// are rejected.
func Parse(content []byte) (*Config, error) {
	config := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)

	err := decoder.Decode(config)
	if err != nil && !errors.Is(err, io.EOF) { // empty document is fine
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	config, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

func (config *Config) Validate() error {
	if config.MinStringLength < 1 {
		return fmt.Errorf(
			"%w: min_string_length must be positive (%d)",
			ErrInvalidConfig,
			config.MinStringLength)
	}

	for _, name := range config.ExtraAllocators {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty extra_allocators entry", ErrInvalidConfig)
		}
	}

	for _, name := range config.ExtraSoftFloat {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty extra_soft_float entry", ErrInvalidConfig)
		}
	}

	_, err := config.Level()
	return err
}

func (config *Config) Level() (slog.Level, error) {
	var level slog.Level
	if config.LogLevel == "" {
		return slog.LevelWarn, nil
	}

	err := level.UnmarshalText([]byte(config.LogLevel))
	if err != nil {
		return 0, fmt.Errorf(
			"%w: unknown log_level %q",
			ErrInvalidConfig,
			config.LogLevel)
	}

	return level, nil
}

// NewLogger returns a text logger writing to output at the configured
// level.
func (config *Config) NewLogger(output io.Writer) (*slog.Logger, error) {
	level, err := config.Level()
	if err != nil {
		return nil, err
	}

	return slog.New(
		slog.NewTextHandler(
			output,
			&slog.HandlerOptions{Level: level})), nil
}

// Marshal encodes the config as yaml.
func (config *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(config)
}
