package config

import (
	"os"
	"sort"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .hostwatch.yaml configuration file.
type Config struct {
	Version int             `yaml:"version" mapstructure:"version"`
	Default string          `yaml:"default,omitempty" mapstructure:"default"`
	Hosts   map[string]Host `yaml:"hosts" mapstructure:"hosts"`
	Monitor MonitorConfig   `yaml:"monitor" mapstructure:"monitor"`
}

// Host defines a machine exposing the monitoring API.
type Host struct {
	// URL is the API base, e.g. https://nas.lan:5001.
	URL string `yaml:"url" mapstructure:"url"`

	// APIKey is sent as a bearer token. Prefer APIKeyEnv so the key stays
	// out of the file.
	APIKey string `yaml:"api_key,omitempty" mapstructure:"api_key"`

	// APIKeyEnv names an environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env,omitempty" mapstructure:"api_key_env"`

	// Tunnel is an SSH alias to dial the API through, for hosts whose API
	// only listens on a private network.
	Tunnel string `yaml:"tunnel,omitempty" mapstructure:"tunnel"`

	// TunnelInsecure skips known_hosts verification for the tunnel.
	TunnelInsecure bool `yaml:"tunnel_insecure,omitempty" mapstructure:"tunnel_insecure"`

	// Timeout bounds a single API request. Zero uses the client default.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`

	// InsecureSkipVerify accepts self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty" mapstructure:"insecure_skip_verify"`
}

// MonitorConfig holds the initial view settings.
type MonitorConfig struct {
	// Window: 15min, 1hour, 6hour, 24hour or 7day.
	Window string `yaml:"window" mapstructure:"window"`

	// Resolution: low, medium, high or max.
	Resolution string `yaml:"resolution" mapstructure:"resolution"`

	// Refresh is the polling interval. 0 turns polling off.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Hosts:   make(map[string]Host),
		Monitor: MonitorConfig{
			Window:     "1hour",
			Resolution: "medium",
			Refresh:    30 * time.Second,
		},
	}
}

// HostNames returns the configured host names, sorted.
func (c *Config) HostNames() []string {
	names := make([]string, 0, len(c.Hosts))
	for name := range c.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveAPIKey returns the literal key, falling back to the named
// environment variable.
func (h Host) ResolveAPIKey() string {
	if h.APIKey != "" {
		return h.APIKey
	}
	if h.APIKeyEnv != "" {
		return os.Getenv(h.APIKeyEnv)
	}
	return ""
}
