package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// TunnelAliasCheck verifies a host's tunnel alias resolves through the ssh
// config and that its host key can be verified.
type TunnelAliasCheck struct {
	HostName       string
	Host           config.Host
	SSHConfigPath  string // empty means ~/.ssh/config
	KnownHostsPath string // empty means ~/.ssh/known_hosts
}

func (c *TunnelAliasCheck) Name() string     { return "tunnel_" + c.HostName }
func (c *TunnelAliasCheck) Category() string { return CategoryTunnel }

func (c *TunnelAliasCheck) Run(context.Context) CheckResult {
	alias := c.Host.Tunnel

	cfgPath := c.SSHConfigPath
	if cfgPath == "" {
		cfgPath = sshutil.DefaultConfigPath()
	}
	entries, err := sshutil.ListHosts(cfgPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: can't read %s: %v", c.HostName, cfgPath, err),
			Suggestion: "Fix the syntax error in your ssh config",
		}
	}

	var entry *sshutil.HostEntry
	for i := range entries {
		if entries[i].Alias == alias {
			entry = &entries[i]
			break
		}
	}

	if !c.Host.TunnelInsecure {
		known := c.KnownHostsPath
		if known == "" {
			known = sshutil.DefaultKnownHostsPath()
		}
		if _, err := os.Stat(known); err != nil {
			return CheckResult{
				Name:       c.Name(),
				Status:     StatusFail,
				Message:    fmt.Sprintf("%s: no known_hosts file to verify %s", c.HostName, alias),
				Suggestion: fmt.Sprintf("Connect once with 'ssh %s' to record its host key", alias),
			}
		}
	}

	if entry == nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("%s: %s isn't in %s, dialing it as a hostname", c.HostName, alias, cfgPath),
			Suggestion: "Add a Host block for it if it needs a user, port or key",
		}
	}

	msg := fmt.Sprintf("%s: via %s (%s)", c.HostName, alias, entry.Description())
	if c.Host.TunnelInsecure {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    msg + ", host key not verified",
			Suggestion: fmt.Sprintf("Drop hosts.%s.tunnel_insecure once the key is in known_hosts", c.HostName),
		}
	}
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: msg}
}

// SSHAgentCheck verifies an ssh-agent with keys is available for tunnels.
type SSHAgentCheck struct{}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return CategoryTunnel }

func (c *SSHAgentCheck) Run(context.Context) CheckResult {
	n, err := sshutil.AgentKeys()
	if err != nil {
		// Key files still work without an agent.
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    shortError(err),
			Suggestion: suggestionOf(err),
		}
	}
	if n == 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent has %d key%s", n, pluralize(n)),
	}
}

// NewTunnelChecks creates checks for every host that uses a tunnel.
func NewTunnelChecks(cfg *config.Config) []Check {
	var checks []Check
	for _, name := range cfg.HostNames() {
		if h := cfg.Hosts[name]; h.Tunnel != "" {
			checks = append(checks, &TunnelAliasCheck{HostName: name, Host: h})
		}
	}
	if len(checks) > 0 {
		checks = append(checks, &SSHAgentCheck{})
	}
	return checks
}
