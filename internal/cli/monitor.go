package cli

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/dashboard"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/telemetry"
)

type monitorOptions struct {
	HostFlags
	ViewFlags
	Refresh     string
	MetricsAddr string
}

func newMonitorCmd(g *GlobalOptions) *cobra.Command {
	opts := &monitorOptions{}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Open the live dashboard",
		Long: `Open a full-screen dashboard of network, pool I/O, ARC, CPU and memory
series for one host.

The dashboard backfills the selected window on start, then polls for new
samples every refresh interval. Keys: w window, s resolution, i interval,
h next host, r refresh now, tab focus, enter detail, ? help, q quit.

Examples:
  hostwatch monitor
  hostwatch monitor --host backup --window 6hour
  hostwatch monitor --refresh off
  hostwatch monitor --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(g, opts)
		},
	}

	AddHostFlags(cmd, &opts.HostFlags)
	AddViewFlags(cmd, &opts.ViewFlags)
	cmd.Flags().StringVar(&opts.Refresh, "refresh", "", "polling interval: 5s, 10s, 30s, 60s, 300s or off")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics about polling on this address")

	return cmd
}

func runMonitor(g *GlobalOptions, opts *monitorOptions) error {
	cfg, _, err := loadConfig(g.ConfigPath)
	if err != nil {
		return err
	}
	name, _, err := config.ResolveHost(cfg, opts.Host)
	if err != nil {
		return err
	}
	w, r, err := opts.Resolve(cfg.Monitor)
	if err != nil {
		return err
	}
	refresh, err := ParseRefresh(opts.Refresh, cfg.Monitor.Refresh)
	if err != nil {
		return err
	}

	// Log lines would tear the alt screen, so they go to --log-file or nowhere.
	if g.LogFile == "" {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}
	lg := logger.Default()

	engineOpts := monitor.Options{
		Window:          w,
		Resolution:      r,
		RefreshInterval: refresh,
		DisableRefresh:  refresh == 0,
		Logger:          lg,
	}

	if opts.MetricsAddr != "" {
		metrics := telemetry.NewMetrics()
		srv, err := telemetry.Start(opts.MetricsAddr, metrics, lg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		engineOpts.Observer = metrics
	}

	engine, err := monitor.NewEngine(engineOpts)
	if err != nil {
		return err
	}
	conn := newConnector(cfg, lg)

	model := dashboard.NewModel(engine, dashboard.Options{
		Hosts:   cfg.HostNames(),
		Initial: name,
		Connect: conn.Connect,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()

	// Graceful shutdown: stop polling before the tunnels go away.
	engine.Close()
	conn.Close()

	return err
}
