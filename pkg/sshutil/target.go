package sshutil

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// target holds the resolved connection parameters for a tunnel alias.
type target struct {
	alias        string
	hostname     string
	port         string
	user         string
	identityFile string
	// matchLine is the line of the first Match directive in the config, or 0.
	// Entries after it are invisible to the parser.
	matchLine int
	// found reports whether the alias matched a Host block.
	found bool
}

func (t *target) address() string {
	return net.JoinHostPort(t.hostname, t.port)
}

// resolveTarget turns an alias such as "nas", "admin@nas" or "10.0.0.5:2222"
// into a dial target, filling gaps from the ssh config at configPath. A
// missing or unreadable config leaves the defaults in place.
func resolveTarget(alias, configPath string) *target {
	t := &target{
		alias: alias,
		port:  "22",
		user:  currentUser(),
	}

	host := alias
	explicitUser := false
	if at := strings.Index(host, "@"); at != -1 {
		t.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}
	if !explicitUser {
		if u := os.Getenv(TestUserEnv); u != "" {
			t.user = u
		}
	}

	if h, p, err := net.SplitHostPort(host); err == nil {
		if _, convErr := strconv.Atoi(p); convErr == nil {
			host, t.port = h, p
		}
	}
	t.hostname = host

	content, matchLine, err := readSSHConfig(configPath)
	if err != nil {
		return t
	}
	t.matchLine = matchLine

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return t
	}

	if v, _ := cfg.Get(host, "HostName"); v != "" {
		t.hostname = v
		t.found = true
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		t.port = v
		t.found = true
	}
	if v, _ := cfg.Get(host, "User"); v != "" && !explicitUser {
		t.user = v
		t.found = true
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		t.identityFile = expandPath(v)
		t.found = true
	}
	return t
}

// readSSHConfig returns the config content up to the first Match directive,
// which ssh_config cannot parse, along with that directive's 1-based line.
func readSSHConfig(path string) ([]byte, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

// DefaultConfigPath returns ~/.ssh/config.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// DefaultKnownHostsPath returns ~/.ssh/known_hosts.
func DefaultKnownHostsPath() string {
	return filepath.Join(homeDir(), ".ssh", "known_hosts")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
