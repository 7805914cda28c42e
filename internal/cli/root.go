package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// GlobalOptions are the flags every command sees.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	LogFile    string
	NoColor    bool

	logCloser  io.Closer
	prevLogger logger.Logger
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	g := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   "hostwatch",
		Short: "Live performance dashboard for virtualization hosts",
		Long: `hostwatch keeps live network, pool I/O, ARC, CPU and memory series for
your virtualization hosts by polling each host's monitoring API.

Quick start:
  hostwatch init                 # Add a host to .hostwatch.yaml
  hostwatch monitor              # Open the dashboard
  hostwatch snapshot -o json     # Latest values, machine readable`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd.OutOrStdout(), cmd.Name())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			g.teardown()
		},
	}

	cmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "config file (default: search for .hostwatch.yaml)")
	cmd.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "log debug output")
	cmd.PersistentFlags().StringVar(&g.LogFile, "log-file", "", "append logs to this file")
	cmd.PersistentFlags().BoolVar(&g.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newMonitorCmd(g))
	cmd.AddCommand(newSnapshotCmd(g))
	cmd.AddCommand(newSeriesCmd(g))
	cmd.AddCommand(newHostsCmd(g))
	cmd.AddCommand(newInitCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup applies the global flags before a command runs and installs the
// command's logger as the default.
func (g *GlobalOptions) setup(out io.Writer, command string) error {
	if g.NoColor || !isTerminalWriter(out) {
		ui.DisableColors()
	}
	if g.Verbose {
		if err := os.Setenv(logger.DebugEnv, "1"); err != nil {
			return err
		}
	}
	if g.LogFile != "" {
		f, err := os.OpenFile(g.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Can't open log file %s", g.LogFile),
				"Check the directory exists and is writable")
		}
		log.SetOutput(f)
		g.logCloser = f
	}
	g.prevLogger = logger.Default()
	logger.SetDefault(logger.NewEnvLogger("[" + command + "]"))
	return nil
}

func (g *GlobalOptions) teardown() {
	if g.prevLogger != nil {
		logger.SetDefault(g.prevLogger)
		g.prevLogger = nil
	}
	if g.logCloser != nil {
		log.SetOutput(os.Stderr)
		_ = g.logCloser.Close()
		g.logCloser = nil
	}
}

// isTerminalWriter reports whether w is a terminal file.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.IsTerminal(f)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		printError(os.Stderr, err)
		if isUnknownCommandError(err) {
			fmt.Fprintln(os.Stderr, "Run 'hostwatch --help' for usage.")
		}
		os.Exit(1)
	}
}

// printError writes err in its structured form when it has one.
func printError(w io.Writer, err error) {
	var hwErr *errors.Error
	if stderrors.As(err, &hwErr) {
		fmt.Fprint(w, hwErr.Error())
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.SymbolFail, err)
}

// isUnknownCommandError matches Cobra's usage errors.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}
