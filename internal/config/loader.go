package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// fileName is the single configuration file read from configDir.
const fileName = "cladc.yaml"

// Initialize loads, validates, and returns a ready-to-use *Config. This is
// the primary entry point:
//  1. read cladc.yaml (if present) from configDir
//  2. expand environment variables
//  3. decode the YAML over the built-in defaults; keys present in the
//     file replace their defaults (including false/zero values), keys
//     absent from it keep them
//  4. validate
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg := defaults()
	cfg.configDir = configDir

	path := filepath.Join(configDir, fileName)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw = expandEnv(raw)
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewLoadError(fileName, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
	case os.IsNotExist(err):
		log.Warn("no config file found, using built-in defaults", "path", path)
	default:
		return nil, NewLoadError(fileName, err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration initialized",
		"max_events", cfg.MaxEvents,
		"max_buffer_size", cfg.MaxBufferSize,
		"max_concurrent_tasks", cfg.MaxConcurrentTasks)

	return cfg, nil
}

// Reconfigure builds a brand new immutable *Config by deep-merging patch
// onto the current one, and returns it without mutating cfg. Callers swap
// the returned value into whatever holds the live pointer (e.g. via
// atomic.Pointer) so a reconfigure is always a single atomic swap, never
// a partially-applied mutation.
func Reconfigure(cfg *Config, patch *Config) (*Config, error) {
	next := *cfg
	if err := mergo.Merge(&next, patch, mergo.WithOverride); err != nil {
		return nil, err
	}
	if err := validate(&next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return &next, nil
}
