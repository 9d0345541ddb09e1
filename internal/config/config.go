// Package config provides configuration for whisker commands: a YAML file
// for the full engine setup, with environment variables for secrets and
// quick overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "1s"
// or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"1s\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	DeepSight DeepSightConfig `yaml:"deepsight"`
	Host      HostConfig      `yaml:"host"`
}

// ServerConfig configures the monitor server.
type ServerConfig struct {
	// ListenAddr is the monitor server bind address, e.g. ":8420".
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr is the Prometheus scrape endpoint bind address.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// EngineConfig tunes the fusion loop.
type EngineConfig struct {
	WindowInterval    Duration `yaml:"window_interval"`
	DebounceInterval  Duration `yaml:"debounce_interval"`
	VisualThreshold   float64  `yaml:"visual_threshold"`
	AcousticThreshold float64  `yaml:"acoustic_threshold"`
	TrustCapacity     int      `yaml:"trust_capacity"`
	TrustDepth        int      `yaml:"trust_depth"`
}

// DeepSightConfig configures the deep-analysis client.
type DeepSightConfig struct {
	// BaseURL of the deep-analysis service. Empty disables deep analysis.
	BaseURL string `yaml:"base_url"`

	// APIKey may be set here or via the WHISKER_DEEPSIGHT_KEY env var;
	// the env var wins.
	APIKey string `yaml:"api_key"`

	Timeout     Duration `yaml:"timeout"`
	MinInterval Duration `yaml:"min_interval"`
	MaxPerMin   int      `yaml:"max_per_minute"`
	LockTTL     Duration `yaml:"lock_ttl"`
	Prompt      string   `yaml:"prompt"`
}

// HostConfig configures the outbound host link.
type HostConfig struct {
	// URL is the host WebSocket endpoint. Empty means no host link.
	URL string `yaml:"url"`
}

// Defaults for the server section.
const (
	DefaultListenAddr  = ":8420"
	DefaultMetricsAddr = ":9090"
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = DefaultMetricsAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
}

// DeepSightKey returns the deep-analysis API key: the WHISKER_DEEPSIGHT_KEY
// env var when set, otherwise the config file value.
func (c *Config) DeepSightKey() string {
	if key := os.Getenv("WHISKER_DEEPSIGHT_KEY"); key != "" {
		return key
	}
	return c.DeepSight.APIKey
}

// HostURL returns the host link URL from WHISKER_HOST_URL env var.
// Falls back to the config file value if not set.
func HostURL(cfg *Config) string {
	if url := os.Getenv("WHISKER_HOST_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Host.URL
	}
	return ""
}
