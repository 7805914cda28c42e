package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".hostwatch.yaml"
	// GlobalConfigDir is the directory for global config, relative to home.
	GlobalConfigDir = ".config/hostwatch"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix namespaces environment overrides, e.g. HOSTWATCH_MONITOR_WINDOW.
	EnvPrefix = "HOSTWATCH"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'hostwatch init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .hostwatch.yaml in current directory
// 3. .hostwatch.yaml in parent directories (stops at git root or home)
// 4. ~/.config/hostwatch/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	home, _ := os.UserHomeDir()
	for dir := cwd; ; {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if isGitRoot(dir) || (home != "" && dir == home) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home != "" {
		global := GlobalPath(home)
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalPath returns the global config location under home.
func GlobalPath(home string) string {
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault loads config from the found path, or returns defaults if not
// found. The returned path is empty when defaults were used.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return applyEnv(DefaultConfig()), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}
	if cfg.Hosts == nil {
		cfg.Hosts = make(map[string]Host)
	}

	for name, host := range cfg.Hosts {
		host.URL = strings.TrimRight(os.ExpandEnv(host.URL), "/")
		cfg.Hosts[name] = host
	}

	return cfg, nil
}

// setDefaults registers every scalar key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("default", "")
	v.SetDefault("monitor.window", d.Monitor.Window)
	v.SetDefault("monitor.resolution", d.Monitor.Resolution)
	v.SetDefault("monitor.refresh", d.Monitor.Refresh.String())
}

// applyEnv runs defaults through viper so env overrides reach a config that
// has no backing file.
func applyEnv(cfg *Config) *Config {
	v := newViper()
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig()
	}
	if cfg.Hosts == nil {
		cfg.Hosts = make(map[string]Host)
	}
	return cfg
}

// ResolveHost picks the host to monitor: the explicit name, then the
// configured default, then the only host when there is exactly one.
func ResolveHost(cfg *Config, name string) (string, Host, error) {
	if name == "" {
		name = cfg.Default
	}
	if name == "" {
		names := cfg.HostNames()
		switch len(names) {
		case 0:
			return "", Host{}, errors.New(errors.ErrConfig,
				"No hosts configured",
				"Run 'hostwatch init' to add one")
		case 1:
			name = names[0]
		default:
			return "", Host{}, errors.New(errors.ErrConfig,
				"Several hosts configured and none picked",
				fmt.Sprintf("Pass --host (one of: %s) or set 'default' in %s",
					strings.Join(names, ", "), ConfigFileName))
		}
	}

	host, ok := cfg.Hosts[name]
	if !ok {
		return "", Host{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' isn't in your config", name),
			fmt.Sprintf("Known hosts: %s", strings.Join(cfg.HostNames(), ", ")))
	}
	return name, host, nil
}

func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}
