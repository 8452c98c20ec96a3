// Package config loads the runtime configuration and per-service
// overrides from a YAML manifest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/service_runtime/pkg/logger"
	"github.com/R3E-Network/service_runtime/service"
)

// Duration decodes YAML strings like "30s" or "1m" into a duration.
// Bare integers are rejected so manifests stay unambiguous.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the top-level runtime configuration.
type Config struct {
	Runtime  RuntimeConfig              `yaml:"runtime"`
	Logging  logger.LoggingConfig       `yaml:"logging"`
	Services map[string]ServiceSettings `yaml:"services"`
}

// RuntimeConfig holds runtime-wide settings.
type RuntimeConfig struct {
	// ListenAddr is the status API bind address.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsNamespace prefixes all Prometheus metric names.
	MetricsNamespace string `yaml:"metrics_namespace"`

	// FailFast aborts initialization after the first failed wave.
	FailFast bool `yaml:"fail_fast"`

	// EventBufferSize bounds the in-memory event log.
	EventBufferSize int `yaml:"event_buffer_size"`

	// HealthInterval is the cadence of periodic health sweeps. Zero
	// disables the monitor.
	HealthInterval Duration `yaml:"health_interval"`
}

// ServiceSettings overrides one registration from the manifest.
type ServiceSettings struct {
	// Enabled excludes the service from registration when false.
	Enabled *bool `yaml:"enabled"`

	// Priority replaces the registration's priority when set.
	Priority *int `yaml:"priority"`

	InitTimeout     Duration `yaml:"init_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Requires and Optional replace the registration's dependency lists
	// when present in the manifest.
	Requires []string `yaml:"requires"`
	Optional []string `yaml:"optional"`
}

// IsEnabled reports whether the service should be registered. Absent
// settings default to enabled.
func (s ServiceSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			ListenAddr:       ":8080",
			MetricsNamespace: "runtime",
			EventBufferSize:  1000,
			HealthInterval:   Duration(30 * time.Second),
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Services: map[string]ServiceSettings{},
	}
}

// Load reads and validates the manifest at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the manifest from the conventional location,
// falling back to built-in defaults when the file does not exist.
func LoadOrDefault() *Config {
	cfg, err := Load(filepath.Join("config", "runtime.yaml"))
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects malformed settings before any service registers.
func (c *Config) Validate() error {
	if c.Runtime.EventBufferSize < 0 {
		return fmt.Errorf("runtime: event_buffer_size must be >= 0")
	}
	if c.Runtime.HealthInterval < 0 {
		return fmt.Errorf("runtime: health_interval must be >= 0")
	}
	for name, settings := range c.Services {
		if settings.Priority != nil && (*settings.Priority < 0 || *settings.Priority > 100) {
			return fmt.Errorf("service %s: priority must be in [0,100]", name)
		}
		if settings.InitTimeout < 0 {
			return fmt.Errorf("service %s: init_timeout must be >= 0", name)
		}
		if settings.ShutdownTimeout < 0 {
			return fmt.Errorf("service %s: shutdown_timeout must be >= 0", name)
		}
	}
	return nil
}

// ServiceFor returns the settings for one service type, zero value
// when the manifest has no entry.
func (c *Config) ServiceFor(serviceType string) ServiceSettings {
	return c.Services[serviceType]
}

// Apply overlays the manifest settings on a registration. The second
// return is false when the manifest disables the service.
func (s ServiceSettings) Apply(reg service.Registration) (service.Registration, bool) {
	if !s.IsEnabled() {
		return reg, false
	}
	if s.Priority != nil {
		reg.Priority = *s.Priority
	}
	if s.InitTimeout > 0 {
		reg.InitTimeout = s.InitTimeout.Std()
	}
	if s.ShutdownTimeout > 0 {
		reg.ShutdownTimeout = s.ShutdownTimeout.Std()
	}
	if s.Requires != nil {
		reg.Requires = append([]string(nil), s.Requires...)
	}
	if s.Optional != nil {
		reg.Optional = append([]string(nil), s.Optional...)
	}
	return reg, true
}
