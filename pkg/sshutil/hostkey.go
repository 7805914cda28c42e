package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyMismatchError is returned when the tunnel host presents a key that
// known_hosts disagrees with.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that repair known_hosts.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	knownStr := "unknown"
	if len(known) > 0 {
		knownStr = strings.Join(known, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  Remove the old entry and reconnect once with ssh:\n"+
			"    ssh-keygen -R %s\n"+
			"    ssh %s",
		knownStr, e.ReceivedType, host, host)
}

// hostKeyCallback verifies against knownHostsPath, creating an empty file
// when none exists so the first connection fails with a clear unknown-host
// error instead of a missing-file one. insecure skips verification.
func hostKeyCallback(knownHostsPath string, insecure bool) (ssh.HostKeyCallback, error) {
	if insecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opted in per host via tunnel_insecure
	}

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
			return nil, fmt.Errorf("create ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, nil, 0o600); err != nil {
			return nil, fmt.Errorf("create known_hosts: %w", err)
		}
	}

	check, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := check(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is SSH running on the tunnel host? Try: ssh <tunnel>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the tunnel host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The tunnel host might be offline or firewalled."
	}
	return "Make sure the tunnel host is reachable: ssh <tunnel>"
}

func suggestionForHandshakeError(err error, encrypted []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encrypted) > 0 {
			return addKeysSuggestion(encrypted)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "key is unknown"):
		return "The tunnel host isn't in known_hosts yet. Connect once with: ssh <tunnel>"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Try connecting manually first: ssh <tunnel>"
	}
	return "Something went wrong during SSH setup. Try: ssh <tunnel>"
}
