package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/api"
	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "nas", map[string]config.Host{"nas": {URL: "https://nas.lan:5001"}})

	cfg, got, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "nas", cfg.Default)

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	_, _, err = loadConfig("")
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigNotFound, ErrorToJSON(err).Code)
}

func TestConnector_Connect(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Hosts["nas"] = config.Host{URL: "https://nas.lan:5001", APIKeyEnv: "HOSTWATCH_TEST_KEY", Timeout: 5 * time.Second}
	t.Setenv("HOSTWATCH_TEST_KEY", "")

	log := logger.NewBufferLogger()
	conn := newConnector(cfg, log)
	defer conn.Close()

	f, err := conn.Connect("nas")
	require.NoError(t, err)
	client, ok := f.(*api.Client)
	require.True(t, ok)
	assert.Equal(t, "https://nas.lan:5001", client.BaseURL())
	assert.True(t, log.HasLevel("warn"))

	_, err = conn.Connect("backup")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestConnector_SharesTunnels(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Hosts["nas"] = config.Host{URL: "http://10.0.0.4:5001", Tunnel: "bastion"}
	cfg.Hosts["backup"] = config.Host{URL: "http://10.0.0.5:5001", Tunnel: "bastion"}
	cfg.Hosts["edge"] = config.Host{URL: "http://10.0.1.5:5001", Tunnel: "edge-gw"}

	conn := newConnector(cfg, nil)
	for _, name := range cfg.HostNames() {
		_, err := conn.Connect(name)
		require.NoError(t, err)
	}

	// Tunnels are lazy, so nothing has dialed yet.
	assert.Len(t, conn.tunnels, 2)
	assert.Equal(t, "bastion", conn.tunnels["bastion"].Alias())

	conn.Close()
	assert.Empty(t, conn.tunnels)
}
