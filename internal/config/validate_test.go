package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Hosts["nas"] = Host{URL: "https://nas.lan:5001", APIKeyEnv: "NAS_KEY"}
	cfg.Default = "nas"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no hosts is fine", func(c *Config) { c.Hosts = map[string]Host{}; c.Default = "" }, ""},
		{"future version", func(c *Config) { c.Version = CurrentConfigVersion + 1 }, "from the future"},
		{"missing url", func(c *Config) { c.Hosts["nas"] = Host{} }, "has no url"},
		{"relative url", func(c *Config) { c.Hosts["nas"] = Host{URL: "nas.lan"} }, "isn't a valid URL"},
		{"bad scheme", func(c *Config) { c.Hosts["nas"] = Host{URL: "ftp://nas.lan"} }, "http:// or https://"},
		{"both keys", func(c *Config) {
			c.Hosts["nas"] = Host{URL: "http://nas", APIKey: "k", APIKeyEnv: "E"}
		}, "pick one"},
		{"negative timeout", func(c *Config) { c.Hosts["nas"] = Host{URL: "http://nas", Timeout: -time.Second} }, "negative"},
		{"insecure tunnel without tunnel", func(c *Config) {
			c.Hosts["nas"] = Host{URL: "http://nas", TunnelInsecure: true}
		}, "without a tunnel"},
		{"bad host name", func(c *Config) { c.Hosts["my nas"] = Host{URL: "http://nas"} }, "can't contain"},
		{"unknown default", func(c *Config) { c.Default = "ghost" }, "isn't defined"},
		{"unknown window", func(c *Config) { c.Monitor.Window = "2hour" }, "monitor.window"},
		{"unknown resolution", func(c *Config) { c.Monitor.Resolution = "ultra" }, "monitor.resolution"},
		{"unsupported refresh", func(c *Config) { c.Monitor.Refresh = 7 * time.Second }, "monitor.refresh"},
		{"refresh off", func(c *Config) { c.Monitor.Refresh = 0 }, ""},
		{"case-insensitive window", func(c *Config) { c.Monitor.Window = "7DAY" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestValidate_ListsSupportedValues(t *testing.T) {
	cfg := validConfig()
	cfg.Monitor.Refresh = time.Minute + time.Second

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0s, 5s, 10s, 30s, 1m0s, 5m0s")
}
