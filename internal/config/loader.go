package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Override mutates a loaded configuration, typically from command line flags.
type Override func(*Config)

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty), PIPEHUB_ environment variables and overrides, then
// validates it.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, nil); err != nil {
		return nil, err
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	loadMetrics.RecordLoadTimestamp()
	slog.Debug("configuration loaded",
		slog.String("file", path),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("addr", cfg.Server.Addr))

	return cfg, nil
}

// loadFile decodes the YAML file at path over cfg. Unknown keys are rejected
// so a misspelt setting does not silently keep its default.
func loadFile(path string, cfg *Config) error {
	// #nosec G304 -- path is provided by the operator via flag or environment
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return decodeYAML(data, cfg)
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// applyEnv overlays PIPEHUB_ variables onto cfg. Only variables that are set
// replace the current value. A nil environment means the process environment.
func applyEnv(cfg *Config, environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}
