package doctor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// DefaultAPITimeout bounds each endpoint probe.
const DefaultAPITimeout = 10 * time.Second

// Connector builds a fetcher for a configured host.
type Connector func(host string) (monitor.Fetcher, error)

// HostAPICheck asks every metric endpoint of a host for one record.
type HostAPICheck struct {
	HostName string
	Connect  Connector
	Timeout  time.Duration

	// KindErrors is populated by Run.
	KindErrors map[monitor.Kind]error
}

func (c *HostAPICheck) Name() string     { return "api_" + c.HostName }
func (c *HostAPICheck) Category() string { return CategoryAPI }

func (c *HostAPICheck) Run(ctx context.Context) CheckResult {
	f, err := c.Connect(c.HostName)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: %s", c.HostName, shortError(err)),
			Suggestion: suggestionOf(err),
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultAPITimeout
	}

	start := time.Now()
	var mu sync.Mutex
	c.KindErrors = make(map[monitor.Kind]error)

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range monitor.AllKinds {
		g.Go(func() error {
			kctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			_, err := f.Fetch(kctx, kind, monitor.Query{Limit: 1, PerEntity: kind.MultiEntity()})
			if err != nil {
				mu.Lock()
				c.KindErrors[kind] = err
				mu.Unlock()
			}
			// Endpoint failures are collected, not propagated, so one bad
			// kind doesn't cancel the rest.
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start).Round(time.Millisecond)

	ok := len(monitor.AllKinds) - len(c.KindErrors)
	switch {
	case len(c.KindErrors) == 0:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("%s: %d/%d endpoints answered in %s", c.HostName, ok, ok, elapsed),
		}
	case ok == 0:
		first := c.KindErrors[monitor.AllKinds[0]]
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s: no endpoint answered: %s", c.HostName, shortError(first)),
			Suggestion: suggestionOf(first),
		}
	}

	var failed []string
	for _, kind := range monitor.AllKinds {
		if err := c.KindErrors[kind]; err != nil {
			failed = append(failed, fmt.Sprintf("%s: %s", kind, shortError(err)))
		}
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    fmt.Sprintf("%s: %d/%d endpoints answered", c.HostName, ok, len(monitor.AllKinds)),
		Suggestion: strings.Join(failed, "\n"),
	}
}

// NewHostsChecks creates API checks for all configured hosts.
func NewHostsChecks(cfg *config.Config, connect Connector, timeout time.Duration) []Check {
	names := cfg.HostNames()
	checks := make([]Check, 0, len(names))
	for _, name := range names {
		checks = append(checks, &HostAPICheck{
			HostName: name,
			Connect:  connect,
			Timeout:  timeout,
		})
	}
	return checks
}
