package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/rileyhilliard/hostwatch/internal/config"
)

// ConfigFileCheck verifies that a config file exists.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Error finding config: %s", shortError(err)),
			Suggestion: "Check the --config path and its permissions",
		}
	}

	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No config file found",
			Suggestion: "Run 'hostwatch init' to create " + config.ConfigFileName,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", path),
	}
}

// ConfigSchemaCheck verifies that the config file loads and validates.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil || path == "" {
		// ConfigFileCheck reports this
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: "Cannot validate schema: no config file",
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Failed to load config: %s", shortError(err)),
			Suggestion: "Check the YAML syntax in your config file",
		}
	}

	if err := config.Validate(cfg); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Schema error: %s", shortError(err)),
			Suggestion: suggestionOf(err),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Schema valid",
	}
}

// ConfigHostsCheck verifies a host can be picked without --host.
type ConfigHostsCheck struct {
	Config *config.Config
}

func (c *ConfigHostsCheck) Name() string     { return "config_hosts" }
func (c *ConfigHostsCheck) Category() string { return CategoryConfig }

func (c *ConfigHostsCheck) Run(context.Context) CheckResult {
	n := len(c.Config.Hosts)
	if n == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No hosts configured",
			Suggestion: "Run 'hostwatch init' to add one",
		}
	}

	name, _, err := config.ResolveHost(c.Config, "")
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%d hosts configured, no default", n),
			Suggestion: suggestionOf(err),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d host%s configured, default %s", n, pluralize(n), name),
	}
}

// APIKeyCheck verifies a host's API key source.
type APIKeyCheck struct {
	HostName string
	Host     config.Host
}

func (c *APIKeyCheck) Name() string     { return "api_key_" + c.HostName }
func (c *APIKeyCheck) Category() string { return CategoryConfig }

func (c *APIKeyCheck) Run(context.Context) CheckResult {
	switch {
	case c.Host.APIKey != "":
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s: API key stored in the config file", c.HostName),
			Suggestion: fmt.Sprintf("Move it to an environment variable and set hosts.%s.api_key_env", c.HostName),
		}
	case c.Host.APIKeyEnv != "" && os.Getenv(c.Host.APIKeyEnv) == "":
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s is not set", c.HostName, c.Host.APIKeyEnv),
			Suggestion: fmt.Sprintf("export %s=<key> before running hostwatch", c.Host.APIKeyEnv),
		}
	case c.Host.APIKeyEnv != "":
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("%s: API key from %s", c.HostName, c.Host.APIKeyEnv),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s: no API key", c.HostName),
	}
}

// NewConfigChecks creates the file checks, plus host checks when cfg loaded.
func NewConfigChecks(configPath string, cfg *config.Config) []Check {
	checks := []Check{
		&ConfigFileCheck{ConfigPath: configPath},
		&ConfigSchemaCheck{ConfigPath: configPath},
	}
	if cfg == nil {
		return checks
	}

	checks = append(checks, &ConfigHostsCheck{Config: cfg})
	for _, name := range cfg.HostNames() {
		checks = append(checks, &APIKeyCheck{HostName: name, Host: cfg.Hosts[name]})
	}
	return checks
}
