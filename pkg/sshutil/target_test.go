package sshutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTarget(t *testing.T) {
	t.Setenv("USER", "local")
	t.Setenv(TestUserEnv, "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := writeConfig(t, `
Host nas
    HostName 192.168.1.20
    User admin
    Port 2222
    IdentityFile ~/.ssh/id_nas
`)

	tests := []struct {
		name     string
		alias    string
		hostname string
		port     string
		user     string
		identity string
		found    bool
	}{
		{"config alias", "nas", "192.168.1.20", "2222", "admin", filepath.Join(home, ".ssh", "id_nas"), true},
		{"explicit user wins", "root@nas", "192.168.1.20", "2222", "root", filepath.Join(home, ".ssh", "id_nas"), true},
		{"bare host", "10.0.0.5", "10.0.0.5", "22", "local", "", false},
		{"host and port", "10.0.0.5:2200", "10.0.0.5", "2200", "local", "", false},
		{"everything", "ops@10.0.0.5:2200", "10.0.0.5", "2200", "ops", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveTarget(tt.alias, cfg)
			assert.Equal(t, tt.hostname, got.hostname)
			assert.Equal(t, tt.port, got.port)
			assert.Equal(t, tt.user, got.user)
			assert.Equal(t, tt.identity, got.identityFile)
			assert.Equal(t, tt.found, got.found)
		})
	}
}

func TestResolveTarget_TestUserOverride(t *testing.T) {
	t.Setenv(TestUserEnv, "ci")

	got := resolveTarget("10.0.0.5", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, "ci", got.user)

	got = resolveTarget("me@10.0.0.5", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, "me", got.user)
}

func TestResolveTarget_MatchBlockHidesLaterHosts(t *testing.T) {
	t.Setenv(TestUserEnv, "")
	cfg := writeConfig(t, `
Host early
    HostName early.example.com

Match all
    User x

Host late
    HostName late.example.com
`)

	early := resolveTarget("early", cfg)
	assert.True(t, early.found)
	assert.Equal(t, 5, early.matchLine)

	late := resolveTarget("late", cfg)
	assert.False(t, late.found)
	assert.Equal(t, "late", late.hostname)
}

func TestReadSSHConfig_NoMatch(t *testing.T) {
	content := "Host a\n    HostName a.example.com\n"
	got, line, err := readSSHConfig(writeConfig(t, content))
	assert.NoError(t, err)
	assert.Equal(t, 0, line)
	assert.Equal(t, content, string(got))
}

func TestSuggestions(t *testing.T) {
	assert.Contains(t, suggestionForDialError(errString("dial tcp: connection refused")), "Is SSH running")
	assert.Contains(t, suggestionForDialError(errString("i/o timeout")), "timed out")
	assert.Contains(t, suggestionForHandshakeError(errString("ssh: unable to authenticate"), nil), "ssh-add -l")
	assert.Contains(t, suggestionForHandshakeError(errString("ssh: unable to authenticate"), []string{"/k"}), "ssh-add")
	assert.Contains(t, suggestionForHandshakeError(errString("knownhosts: key is unknown"), nil), "known_hosts")
}

type errString string

func (e errString) Error() string { return string(e) }
