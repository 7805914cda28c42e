package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestListHosts(t *testing.T) {
	path := writeConfig(t, `
Host nas
    HostName 192.168.1.20
    User admin
    Port 2222

Host jump bastion
    HostName jump.example.com

Host *
    ServerAliveInterval 60

Host lab-* !lab-secret
    User labuser

Host nas
    User ignored
`)

	hosts, err := ListHosts(path)
	require.NoError(t, err)
	require.Len(t, hosts, 3)

	assert.Equal(t, []string{"bastion", "jump", "nas"},
		[]string{hosts[0].Alias, hosts[1].Alias, hosts[2].Alias})
	assert.Equal(t, HostEntry{Alias: "nas", Hostname: "192.168.1.20", User: "admin", Port: "2222"}, hosts[2])
	assert.Equal(t, "jump.example.com", hosts[0].Hostname)
}

func TestListHosts_StopsAtMatch(t *testing.T) {
	path := writeConfig(t, `
Host before
    HostName before.example.com

Match host *.example.com
    User matchuser

Host after
    HostName after.example.com
`)

	hosts, err := ListHosts(path)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "before", hosts[0].Alias)
}

func TestListHosts_MissingOrEmpty(t *testing.T) {
	hosts, err := ListHosts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, hosts)

	hosts, err = ListHosts(writeConfig(t, "# only a comment\n"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestHostEntry_Description(t *testing.T) {
	tests := []struct {
		name  string
		entry HostEntry
		want  string
	}{
		{"alias only", HostEntry{Alias: "nas"}, "nas"},
		{"hostname same as alias", HostEntry{Alias: "nas", Hostname: "nas"}, "nas"},
		{"full", HostEntry{Alias: "nas", Hostname: "10.0.0.2", User: "admin", Port: "2222"}, "10.0.0.2, user: admin, port: 2222"},
		{"default port hidden", HostEntry{Alias: "nas", User: "admin", Port: "22"}, "user: admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Description())
		})
	}
}
