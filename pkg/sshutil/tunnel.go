// Package sshutil forwards monitoring API traffic through an SSH host.
//
// A Tunnel resolves an alias the way ssh(1) would (from ~/.ssh/config,
// the agent and the default key files), verifies the host against
// known_hosts, and then hands out direct-tcpip connections through the
// session. Its DialContext plugs straight into an http.Transport.
package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
)

// DefaultTimeout bounds the TCP connect and SSH handshake.
const DefaultTimeout = 10 * time.Second

// TunnelOptions configures a Tunnel.
type TunnelOptions struct {
	// Alias is an ssh config Host, a hostname, user@host or host:port.
	Alias string
	// Timeout bounds connect plus handshake. Zero means DefaultTimeout.
	Timeout time.Duration
	// ConfigPath overrides ~/.ssh/config.
	ConfigPath string
	// KnownHostsPath overrides ~/.ssh/known_hosts.
	KnownHostsPath string
	// InsecureIgnoreHostKey disables known_hosts verification.
	InsecureIgnoreHostKey bool
	Logger                logger.Logger
}

// Tunnel is a lazily connected SSH session used as a dialer. It reconnects
// once when the session has gone away underneath it.
type Tunnel struct {
	opts TunnelOptions
	log  logger.Logger

	mu      sync.Mutex
	client  *ssh.Client
	address string
	closed  bool
}

// NewTunnel validates opts. No connection is made until the first dial.
func NewTunnel(opts TunnelOptions) (*Tunnel, error) {
	if opts.Alias == "" {
		return nil, errors.New(errors.ErrConfig,
			"Tunnel alias is empty",
			"Set hosts.<name>.tunnel to an entry from ~/.ssh/config")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath()
	}
	if opts.KnownHostsPath == "" {
		opts.KnownHostsPath = DefaultKnownHostsPath()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	return &Tunnel{opts: opts, log: log}, nil
}

// Alias returns the alias the tunnel was created for.
func (t *Tunnel) Alias() string {
	return t.opts.Alias
}

// Address returns the resolved host:port of the SSH server, or "" before
// the first successful connect.
func (t *Tunnel) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address
}

// DialContext opens a connection to addr from the far side of the tunnel.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := t.session(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := dialThrough(ctx, client, network, addr)
	if err == nil {
		return conn, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// The session may have died since the last request. Drop it and retry once
	// on a fresh one; a second failure is real.
	t.log.Debug("tunnel %s: dial %s failed (%v), reconnecting", t.opts.Alias, addr, err)
	t.drop(client)
	client, err = t.session(ctx)
	if err != nil {
		return nil, err
	}
	conn, err = dialThrough(ctx, client, network, addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Tunnel '%s' couldn't reach %s", t.opts.Alias, addr),
			"Check the API address is reachable from the tunnel host")
	}
	return conn, nil
}

// Close tears down the session. Later dials fail.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

func (t *Tunnel) session(ctx context.Context) (*ssh.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errors.New(errors.ErrTunnel,
			fmt.Sprintf("Tunnel '%s' is closed", t.opts.Alias), "")
	}
	if t.client != nil {
		return t.client, nil
	}

	client, address, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	t.client, t.address = client, address
	return client, nil
}

func (t *Tunnel) drop(stale *ssh.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == stale {
		t.client.Close()
		t.client = nil
	}
}

func (t *Tunnel) connect(ctx context.Context) (*ssh.Client, string, error) {
	tgt := resolveTarget(t.opts.Alias, t.opts.ConfigPath)
	if tgt.matchLine > 0 && !tgt.found {
		t.log.Warn("tunnel %s not found in %s before the Match block at line %d; entries after it are ignored",
			t.opts.Alias, t.opts.ConfigPath, tgt.matchLine)
	}

	auth, err := authMethods(tgt)
	if err != nil {
		return nil, "", err
	}
	hostKeys, err := hostKeyCallback(t.opts.KnownHostsPath, t.opts.InsecureIgnoreHostKey)
	if err != nil {
		return nil, "", errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't load known_hosts for tunnel '%s'", t.opts.Alias),
			fmt.Sprintf("Check %s is readable", t.opts.KnownHostsPath))
	}

	address := tgt.address()
	dialCtx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, "", errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Can't reach tunnel '%s' at %s", t.opts.Alias, address),
			suggestionForDialError(err))
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, &ssh.ClientConfig{
		User:            tgt.user,
		Auth:            auth.methods,
		HostKeyCallback: hostKeys,
		Timeout:         t.opts.Timeout,
	})
	if err != nil {
		conn.Close()
		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, "", errors.New(errors.ErrTunnel, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, "", errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("SSH handshake with tunnel '%s' didn't go through", t.opts.Alias),
			suggestionForHandshakeError(err, auth.encrypted))
	}
	_ = conn.SetDeadline(time.Time{})

	t.log.Debug("tunnel %s connected to %s as %s", t.opts.Alias, address, tgt.user)
	return ssh.NewClient(sshConn, chans, reqs), address, nil
}

// dialThrough runs client.Dial, which takes no context, and abandons it when
// ctx ends first.
func dialThrough(ctx context.Context, client *ssh.Client, network, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := client.Dial(network, addr)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
