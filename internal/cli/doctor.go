package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/doctor"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// doctorParallelism caps how many hosts are probed at once.
const doctorParallelism = 4

type doctorOptions struct {
	Output  string
	Timeout time.Duration
	SkipAPI bool
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func newDoctorCmd(g *GlobalOptions) *cobra.Command {
	opts := &doctorOptions{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose config, tunnels and API access",
		Long: `Check the config file, each host's API key and SSH tunnel, and ask every
metric endpoint of every host for one record.

Examples:
  hostwatch doctor
  hostwatch doctor --skip-api
  hostwatch doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", OutputTable, "output format: table or json")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", doctor.DefaultAPITimeout, "per-endpoint timeout")
	cmd.Flags().BoolVar(&opts.SkipAPI, "skip-api", false, "don't contact the hosts")

	return cmd
}

func runDoctor(ctx context.Context, out io.Writer, g *GlobalOptions, opts *doctorOptions) error {
	if err := checkOutput(opts.Output); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Load problems are reported by the config checks themselves.
	var cfg *config.Config
	if path, err := config.Find(g.ConfigPath); err == nil && path != "" {
		if loaded, err := config.Load(path); err == nil && config.Validate(loaded) == nil {
			cfg = loaded
		}
	}

	checks := doctor.NewConfigChecks(g.ConfigPath, cfg)
	if cfg != nil {
		checks = append(checks, doctor.NewTunnelChecks(cfg)...)
		if !opts.SkipAPI {
			conn := newConnector(cfg, logger.Default())
			defer conn.Close()
			checks = append(checks, doctor.NewHostsChecks(cfg, conn.Connect, opts.Timeout)...)
		}
	}

	results := doctor.RunAllParallel(ctx, checks, doctorParallelism)

	if opts.Output == OutputJSON {
		return WriteJSONSuccess(out, doctorOutput(checks, results))
	}
	printDoctor(out, checks, results)
	return nil
}

func doctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := groupResults(checks, results)

	output := DoctorOutput{Categories: []CategoryOutput{}}
	for _, cat := range doctor.CategoryOrder {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func groupResults(checks []doctor.Check, results []doctor.CheckResult) map[string][]doctor.CheckResult {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}
	return grouped
}

func printDoctor(out io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("hostwatch diagnostic report"))
	fmt.Fprintln(out)

	grouped := groupResults(checks, results)
	for _, cat := range doctor.CategoryOrder {
		rs, ok := grouped[cat]
		if !ok {
			continue
		}
		fmt.Fprintln(out, headerStyle.Render(cat))
		for _, r := range rs {
			printCheckResult(out, r)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, strings.Repeat("━", 60))
	fmt.Fprintln(out)
	if doctor.HasIssues(results) {
		fmt.Fprintf(out, "%s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(out, "%s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), doctor.Summary(results))
	}
	fmt.Fprintln(out)
}

func printCheckResult(out io.Writer, r doctor.CheckResult) {
	symbol, style := ui.SymbolComplete, ui.SuccessStyle()
	switch r.Status {
	case doctor.StatusWarn:
		symbol, style = ui.SymbolWarning, lipgloss.NewStyle().Foreground(ui.ColorWarning)
	case doctor.StatusFail:
		symbol, style = ui.SymbolFail, ui.ErrorStyle()
	}

	fmt.Fprintf(out, "  %s %s\n", style.Render(symbol), r.Message)
	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(out, "    %s\n", ui.MutedStyle().Render(line))
		}
	}
}
