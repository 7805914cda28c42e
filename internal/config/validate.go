package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but hostwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest hostwatch: https://github.com/rileyhilliard/hostwatch/releases")
	}

	for _, name := range cfg.HostNames() {
		if err := validateHost(name, cfg.Hosts[name]); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				fmt.Sprintf("Check hosts.%s in your %s.", name, ConfigFileName))
		}
	}

	if cfg.Default != "" {
		if _, ok := cfg.Hosts[cfg.Default]; !ok {
			known := "none"
			if names := cfg.HostNames(); len(names) > 0 {
				known = strings.Join(names, ", ")
			}
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Default host '%s' isn't defined under hosts", cfg.Default),
				"Known hosts: "+known)
		}
	}

	if err := validateMonitor(cfg.Monitor); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			fmt.Sprintf("Check the 'monitor' section in your %s.", ConfigFileName))
	}

	return nil
}

func validateHost(name string, host Host) error {
	if strings.ContainsAny(name, " /@") {
		return fmt.Errorf("host name '%s' can't contain spaces, '/' or '@'", name)
	}
	if host.URL == "" {
		return fmt.Errorf("host '%s' has no url", name)
	}
	u, err := url.Parse(host.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("host '%s' url '%s' isn't a valid URL - try something like https://nas.lan:5001", name, host.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("host '%s' url must start with http:// or https:// (got %s)", name, u.Scheme)
	}
	if host.APIKey != "" && host.APIKeyEnv != "" {
		return fmt.Errorf("host '%s' sets both api_key and api_key_env - pick one", name)
	}
	if host.Timeout < 0 {
		return fmt.Errorf("host '%s' timeout can't be negative", name)
	}
	if host.TunnelInsecure && host.Tunnel == "" {
		return fmt.Errorf("host '%s' sets tunnel_insecure without a tunnel", name)
	}
	return nil
}

func validateMonitor(m MonitorConfig) error {
	if _, err := monitor.ParseWindow(m.Window); err != nil {
		return fmt.Errorf("monitor.window '%s' isn't supported - use one of %s", m.Window, joinWindows())
	}
	if _, err := monitor.ParseResolution(m.Resolution); err != nil {
		return fmt.Errorf("monitor.resolution '%s' isn't supported - use one of %s", m.Resolution, joinResolutions())
	}
	if !monitor.ValidRefreshInterval(m.Refresh) {
		return fmt.Errorf("monitor.refresh %v isn't supported - use one of %s", m.Refresh, joinIntervals())
	}
	return nil
}

func joinWindows() string {
	parts := make([]string, len(monitor.Windows))
	for i, w := range monitor.Windows {
		parts[i] = string(w)
	}
	return strings.Join(parts, ", ")
}

func joinResolutions() string {
	parts := make([]string, len(monitor.Resolutions))
	for i, r := range monitor.Resolutions {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func joinIntervals() string {
	parts := make([]string, len(monitor.RefreshIntervals))
	for i, d := range monitor.RefreshIntervals {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
