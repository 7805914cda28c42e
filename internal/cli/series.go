package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

type seriesOptions struct {
	HostFlags
	ViewFlags
	Kind    string
	Entity  string
	Channel string
	Timeout time.Duration
}

// SeriesReport is the JSON shape of 'hostwatch series'.
type SeriesReport struct {
	Host       string             `json:"host"`
	Kind       monitor.Kind       `json:"kind"`
	Entity     string             `json:"entity"`
	Channel    string             `json:"channel"`
	Window     monitor.Window     `json:"window"`
	Resolution monitor.Resolution `json:"resolution"`
	Points     []monitor.Point    `json:"points"`
}

func newSeriesCmd(g *GlobalOptions) *cobra.Command {
	opts := &seriesOptions{}

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print one channel's points as JSON",
		Long: `Load the window once and print a channel's points as [timestampMs, value]
pairs, oldest first.

Host-wide kinds (arc, cpu, memory) default to their single entity.

Examples:
  hostwatch series --kind network --entity eth0 --channel rx
  hostwatch series --kind cpu --channel utilization --window 24hour
  hostwatch series --kind cpu --entity cpu3 --channel utilization`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(cmd.OutOrStdout(), g, opts)
		},
	}

	AddHostFlags(cmd, &opts.HostFlags)
	AddViewFlags(cmd, &opts.ViewFlags)
	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", "", "metric kind: network, storageIO, arc, cpu, memory")
	cmd.Flags().StringVarP(&opts.Entity, "entity", "e", "", "link, pool or core name")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "channel name, e.g. rx, write, hitRatio, utilization")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", monitor.DefaultFetchTimeout, "per-request timeout")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func runSeries(out io.Writer, g *GlobalOptions, opts *seriesOptions) error {
	report, err := collectSeries(g, opts)
	if err != nil {
		_ = WriteJSONFromError(out, err)
		return err
	}
	return WriteJSONSuccess(out, report)
}

func collectSeries(g *GlobalOptions, opts *seriesOptions) (*SeriesReport, error) {
	kind, err := monitor.ParseKind(opts.Kind)
	if err != nil {
		return nil, err
	}
	entity := opts.Entity
	if entity == "" {
		if kind.MultiEntity() {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("%s has one stream per entity; pick one with --entity", kind), "")
		}
		entity = kind.SingletonEntity()
	}

	cfg, _, err := loadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	name, _, err := config.ResolveHost(cfg, opts.Host)
	if err != nil {
		return nil, err
	}

	engine, cleanup, err := loadOnce(cfg, name, opts.ViewFlags, opts.Timeout, logger.Default())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if kerr := engine.Status().KindErrors[kind]; kerr != nil {
		return nil, kerr
	}

	entities := engine.Entities(kind)
	if !slices.Contains(entities, entity) {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("No %s stream for entity '%s' on %s", kind, entity, name),
			"Entities in this window: "+listOrNone(entities))
	}
	channels := engine.Channels(kind, entity)
	if !slices.Contains(channels, opts.Channel) {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("%s/%s has no channel '%s'", kind, entity, opts.Channel),
			"Channels: "+listOrNone(channels))
	}

	st := engine.Status()
	points := engine.Series(kind, entity, opts.Channel)
	if points == nil {
		points = []monitor.Point{}
	}
	return &SeriesReport{
		Host:       name,
		Kind:       kind,
		Entity:     entity,
		Channel:    opts.Channel,
		Window:     st.Window,
		Resolution: st.Resolution,
		Points:     points,
	}, nil
}

func listOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}
