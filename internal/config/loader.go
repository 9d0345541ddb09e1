package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validLogLevels are accepted server.log_level values.
var validLogLevels = []string{"debug", "info", "warn", "error"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file is a valid all-defaults config.
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !slices.Contains(validLogLevels, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Engine.WindowInterval < 0 {
		errs = append(errs, fmt.Errorf("engine.window_interval must not be negative"))
	}
	if cfg.Engine.DebounceInterval < 0 {
		errs = append(errs, fmt.Errorf("engine.debounce_interval must not be negative"))
	}
	if cfg.Engine.VisualThreshold < 0 || cfg.Engine.VisualThreshold > 1 {
		errs = append(errs, fmt.Errorf("engine.visual_threshold %.2f is out of range [0, 1]", cfg.Engine.VisualThreshold))
	}
	if cfg.Engine.AcousticThreshold < 0 || cfg.Engine.AcousticThreshold > 1 {
		errs = append(errs, fmt.Errorf("engine.acoustic_threshold %.2f is out of range [0, 1]", cfg.Engine.AcousticThreshold))
	}
	if cfg.Engine.TrustCapacity < 0 {
		errs = append(errs, fmt.Errorf("engine.trust_capacity must not be negative"))
	}
	if cfg.Engine.TrustDepth < 0 {
		errs = append(errs, fmt.Errorf("engine.trust_depth must not be negative"))
	}

	if cfg.DeepSight.MaxPerMin < 0 {
		errs = append(errs, fmt.Errorf("deepsight.max_per_minute must not be negative"))
	}
	if cfg.DeepSight.BaseURL == "" && cfg.DeepSight.APIKey != "" {
		errs = append(errs, fmt.Errorf("deepsight.api_key is set but deepsight.base_url is empty"))
	}

	return errors.Join(errs...)
}
