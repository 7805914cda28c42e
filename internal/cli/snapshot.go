package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/dashboard"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// Output formats for non-interactive commands.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

type snapshotOptions struct {
	HostFlags
	ViewFlags
	Kinds   []string
	Output  string
	Timeout time.Duration
}

// SnapshotReport is the JSON shape of 'hostwatch snapshot'.
type SnapshotReport struct {
	Host       string             `json:"host"`
	Window     monitor.Window     `json:"window"`
	Resolution monitor.Resolution `json:"resolution"`
	Kinds      []KindSnapshot     `json:"kinds"`
}

// KindSnapshot holds the newest readings of one kind.
type KindSnapshot struct {
	Kind     monitor.Kind     `json:"kind"`
	Error    string           `json:"error,omitempty"`
	Entities []EntitySnapshot `json:"entities"`
}

// EntitySnapshot holds one entity's channel values at its newest sample.
type EntitySnapshot struct {
	Entity    string             `json:"entity"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
	channels  []string
}

func newSnapshotCmd(g *GlobalOptions) *cobra.Command {
	opts := &snapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the latest value of every stream",
		Long: `Load the window once and print the newest reading per entity and channel.

Examples:
  hostwatch snapshot
  hostwatch snapshot --host backup --kind network --kind arc
  hostwatch snapshot -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.OutOrStdout(), g, opts)
		},
	}

	AddHostFlags(cmd, &opts.HostFlags)
	AddViewFlags(cmd, &opts.ViewFlags)
	cmd.Flags().StringArrayVarP(&opts.Kinds, "kind", "k", nil, "metric kind to show (repeatable; default all)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", OutputTable, "output format: table or json")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", monitor.DefaultFetchTimeout, "per-request timeout")

	return cmd
}

func runSnapshot(out io.Writer, g *GlobalOptions, opts *snapshotOptions) error {
	if err := checkOutput(opts.Output); err != nil {
		return err
	}
	asJSON := opts.Output == OutputJSON

	report, err := collectSnapshot(g, opts, !asJSON && isTerminalWriter(out))
	if err != nil {
		if asJSON {
			_ = WriteJSONFromError(out, err)
		}
		return err
	}

	if asJSON {
		return WriteJSONSuccess(out, report)
	}
	printSnapshot(out, report)
	return nil
}

func collectSnapshot(g *GlobalOptions, opts *snapshotOptions, progress bool) (*SnapshotReport, error) {
	kinds, err := ParseKinds(opts.Kinds)
	if err != nil {
		return nil, err
	}
	cfg, _, err := loadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	name, _, err := config.ResolveHost(cfg, opts.Host)
	if err != nil {
		return nil, err
	}

	var spinner *ui.Spinner
	if progress {
		spinner = ui.NewSpinner(fmt.Sprintf("Loading %s", name))
		spinner.SetOutput(func(s string) { fmt.Fprint(os.Stderr, s) })
		spinner.Start()
	}

	engine, cleanup, err := loadOnce(cfg, name, opts.ViewFlags, opts.Timeout, logger.Default())
	if spinner != nil {
		if err != nil {
			spinner.Fail()
		} else {
			spinner.Success()
		}
	}
	if err != nil {
		return nil, err
	}
	defer cleanup()

	st := engine.Status()
	report := &SnapshotReport{
		Host:       name,
		Window:     st.Window,
		Resolution: st.Resolution,
	}
	for _, kind := range kinds {
		report.Kinds = append(report.Kinds, snapshotKind(engine, kind, st.KindErrors[kind]))
	}
	return report, nil
}

func snapshotKind(engine *monitor.Engine, kind monitor.Kind, kindErr error) KindSnapshot {
	ks := KindSnapshot{Kind: kind, Entities: []EntitySnapshot{}}
	if kindErr != nil {
		ks.Error = errorLine(kindErr)
	}

	snap := engine.LatestSnapshot(kind)
	byEntity := make(map[string]int)
	for _, key := range engine.SnapshotEntities(kind) {
		sample := snap[key]
		for _, r := range monitor.Derive(kind, sample) {
			i, ok := byEntity[r.Entity]
			if !ok {
				i = len(ks.Entities)
				byEntity[r.Entity] = i
				ks.Entities = append(ks.Entities, EntitySnapshot{
					Entity:    r.Entity,
					Timestamp: sample.ScanTimestamp.UTC(),
					Values:    make(map[string]float64),
				})
			}
			ks.Entities[i].Values[r.Channel] = r.Value
			ks.Entities[i].channels = append(ks.Entities[i].channels, r.Channel)
		}
	}
	return ks
}

func printSnapshot(out io.Writer, report *SnapshotReport) {
	fmt.Fprintf(out, "%s  %s · %s\n\n", report.Host, report.Window, report.Resolution)

	var rows [][]string
	var failed []KindSnapshot
	for _, ks := range report.Kinds {
		if ks.Error != "" {
			failed = append(failed, ks)
		}
		for _, es := range ks.Entities {
			for _, ch := range es.channels {
				rows = append(rows, []string{
					string(ks.Kind),
					es.Entity,
					ch,
					dashboard.FormatValue(ks.Kind, ch, es.Values[ch]),
					es.Timestamp.Local().Format("15:04:05"),
				})
			}
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, ui.MutedStyle().Render("No samples in this window."))
	} else {
		fmt.Fprintln(out, ui.RenderTable([]string{"KIND", "ENTITY", "CHANNEL", "VALUE", "AT"}, rows))
	}

	for _, ks := range failed {
		fmt.Fprintf(out, "%s %s: %s\n", ui.ErrorStyle().Render(ui.SymbolWarning), ks.Kind, ks.Error)
	}
}

// errorLine renders err on one line.
func errorLine(err error) string {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		return hwErr.Short()
	}
	return err.Error()
}

func checkOutput(format string) error {
	switch format {
	case OutputTable, OutputJSON:
		return nil
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown output format '%s'", format),
		"Use -o table or -o json")
}
