package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/api"
	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// loadConfig finds, loads and validates the config. Unlike
// config.LoadOrDefault it fails when there is no file, since every caller
// needs at least one host.
func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return nil, "", errors.New(errors.ErrConfig,
			"Config file not found",
			fmt.Sprintf("Run 'hostwatch init' to create %s, or pass --config", config.ConfigFileName))
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// connector builds API clients for configured hosts. Tunnels are opened
// lazily, shared per SSH alias, and closed by Close.
type connector struct {
	cfg *config.Config
	log logger.Logger

	mu      sync.Mutex
	tunnels map[string]*sshutil.Tunnel
}

func newConnector(cfg *config.Config, log logger.Logger) *connector {
	if log == nil {
		log = logger.Noop()
	}
	return &connector{
		cfg:     cfg,
		log:     log,
		tunnels: make(map[string]*sshutil.Tunnel),
	}
}

// Connect returns a fetcher for the named host.
func (c *connector) Connect(name string) (monitor.Fetcher, error) {
	host, ok := c.cfg.Hosts[name]
	if !ok {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Host '%s' isn't in your config", name), "")
	}

	apiCfg := api.Config{
		BaseURL:            host.URL,
		APIKey:             host.ResolveAPIKey(),
		Timeout:            host.Timeout,
		InsecureSkipVerify: host.InsecureSkipVerify,
		UserAgent:          "hostwatch/" + version,
		Logger:             c.log,
	}
	if host.APIKeyEnv != "" && apiCfg.APIKey == "" {
		c.log.Warn("%s: api_key_env %s is empty; sending no API key", name, host.APIKeyEnv)
	}

	if host.Tunnel != "" {
		t, err := c.tunnel(host.Tunnel, host.TunnelInsecure)
		if err != nil {
			return nil, err
		}
		apiCfg.Dial = t.DialContext
		c.log.Debug("%s: dialing %s through tunnel %s", name, host.URL, host.Tunnel)
	}

	return api.NewClient(apiCfg)
}

func (c *connector) tunnel(alias string, insecure bool) (*sshutil.Tunnel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tunnels[alias]; ok {
		return t, nil
	}
	t, err := sshutil.NewTunnel(sshutil.TunnelOptions{
		Alias:                 alias,
		InsecureIgnoreHostKey: insecure,
		Logger:                c.log,
	})
	if err != nil {
		return nil, err
	}
	c.tunnels[alias] = t
	return t, nil
}

// Close shuts every tunnel the connector opened.
func (c *connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for alias, t := range c.tunnels {
		if err := t.Close(); err != nil {
			c.log.Debug("closing tunnel %s: %v", alias, err)
		}
		delete(c.tunnels, alias)
	}
}

// loadOnce runs one historical cycle for host and returns the engine holding
// the results. The caller runs the returned cleanup when done.
func loadOnce(cfg *config.Config, name string, view ViewFlags, timeout time.Duration, log logger.Logger) (*monitor.Engine, func(), error) {
	w, r, err := view.Resolve(cfg.Monitor)
	if err != nil {
		return nil, nil, err
	}

	engine, err := monitor.NewEngine(monitor.Options{
		Window:         w,
		Resolution:     r,
		DisableRefresh: true,
		FetchTimeout:   timeout,
		Logger:         log,
	})
	if err != nil {
		return nil, nil, err
	}

	conn := newConnector(cfg, log)
	cleanup := func() {
		engine.Close()
		conn.Close()
	}

	f, err := conn.Connect(name)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if err := engine.SelectHost(name, f); err != nil {
		cleanup()
		return nil, nil, err
	}
	engine.Wait()

	if st := engine.Status(); st.Banner != nil {
		// Report the first kind's cause rather than the generic banner.
		for _, k := range monitor.AllKinds {
			if kerr := st.KindErrors[k]; kerr != nil {
				cleanup()
				return nil, nil, kerr
			}
		}
		cleanup()
		return nil, nil, st.Banner
	}
	return engine, cleanup, nil
}
