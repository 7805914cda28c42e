package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// HostFlags holds the host selection flag shared by host-facing commands.
type HostFlags struct {
	Host string
}

// AddHostFlags registers --host on a command.
func AddHostFlags(cmd *cobra.Command, flags *HostFlags) {
	cmd.Flags().StringVar(&flags.Host, "host", "", "host name from your config (default: the configured default)")
}

// ViewFlags hold window and resolution overrides. Empty values fall back to
// the monitor section of the config.
type ViewFlags struct {
	Window     string
	Resolution string
}

// AddViewFlags registers --window and --resolution on a command.
func AddViewFlags(cmd *cobra.Command, flags *ViewFlags) {
	cmd.Flags().StringVarP(&flags.Window, "window", "w", "", "time window: 15min, 1hour, 6hour, 24hour, 7day")
	cmd.Flags().StringVarP(&flags.Resolution, "resolution", "r", "", "resolution: low, medium, high, max")
}

// Resolve merges the flags over the config's monitor settings.
func (f ViewFlags) Resolve(m config.MonitorConfig) (monitor.Window, monitor.Resolution, error) {
	windowName := m.Window
	if f.Window != "" {
		windowName = f.Window
	}
	resolutionName := m.Resolution
	if f.Resolution != "" {
		resolutionName = f.Resolution
	}

	w, err := monitor.ParseWindow(windowName)
	if err != nil {
		return "", "", err
	}
	r, err := monitor.ParseResolution(resolutionName)
	if err != nil {
		return "", "", err
	}
	return w, r, nil
}

// ParseRefresh parses a --refresh value. An empty flag keeps fallback;
// "off" and "0" turn polling off.
func ParseRefresh(flag string, fallback time.Duration) (time.Duration, error) {
	switch flag {
	case "":
		return fallback, nil
	case "off", "0":
		return 0, nil
	}

	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a refresh interval", flag),
			"Try 5s, 30s, 5m or off")
	}
	if !monitor.ValidRefreshInterval(d) {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh interval %s isn't supported", d),
			"Supported: off, 5s, 10s, 30s, 60s, 300s")
	}
	return d, nil
}

// ParseKinds turns --kind values into kinds, defaulting to all of them.
// Duplicates are dropped and order follows monitor.AllKinds.
func ParseKinds(names []string) ([]monitor.Kind, error) {
	if len(names) == 0 {
		return monitor.AllKinds, nil
	}

	want := make(map[monitor.Kind]bool, len(names))
	for _, name := range names {
		k, err := monitor.ParseKind(name)
		if err != nil {
			return nil, err
		}
		want[k] = true
	}

	kinds := make([]monitor.Kind, 0, len(want))
	for _, k := range monitor.AllKinds {
		if want[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
