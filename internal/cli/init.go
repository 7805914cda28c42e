package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/ui"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
)

// probeTimeout bounds the connection check before saving a host.
const probeTimeout = 10 * time.Second

// noTunnel is the picker value for dialing the API directly.
const noTunnel = ""

// InitOptions holds options for the init command.
type InitOptions struct {
	Name           string
	URL            string
	APIKeyEnv      string
	Tunnel         string
	MakeDefault    bool
	Global         bool
	SkipCheck      bool
	NonInteractive bool
}

func newInitCmd(g *GlobalOptions) *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Add a host to your config",
		Long: `Add a monitored host, creating the config file if it doesn't exist yet.

Without flags, init asks for each value. Tunnels are picked from the aliases
in ~/.ssh/config.

Examples:
  hostwatch init
  hostwatch init --name nas --url https://nas.lan:5001 --api-key-env NAS_API_KEY --non-interactive
  hostwatch init --global --name backup --url http://10.0.0.5 --tunnel bastion`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := initPath(g.ConfigPath, opts.Global)
			if err != nil {
				return err
			}
			return Init(cmd.OutOrStdout(), path, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "name for the host in your config")
	cmd.Flags().StringVar(&opts.URL, "url", "", "monitoring API base URL, e.g. https://nas.lan:5001")
	cmd.Flags().StringVar(&opts.APIKeyEnv, "api-key-env", "", "environment variable holding the API key")
	cmd.Flags().StringVar(&opts.Tunnel, "tunnel", "", "SSH alias to reach the API through")
	cmd.Flags().BoolVar(&opts.MakeDefault, "default", false, "make this the default host")
	cmd.Flags().BoolVar(&opts.Global, "global", false, "write to the global config instead of ./"+config.ConfigFileName)
	cmd.Flags().BoolVar(&opts.SkipCheck, "skip-check", false, "save without testing the connection")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "don't prompt; take values from flags")

	return cmd
}

// initPath picks the file init writes to.
func initPath(explicit string, global bool) (string, error) {
	if global {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot determine home directory", "Pass --config instead of --global")
		}
		return config.GlobalPath(home), nil
	}
	if explicit != "" {
		return explicit, nil
	}
	return filepath.Join(".", config.ConfigFileName), nil
}

// Init adds a host to the config at path, creating the file when needed.
func Init(out io.Writer, path string, opts InitOptions) error {
	existing, err := existingConfig(path)
	if err != nil {
		return err
	}

	interactive := !opts.NonInteractive && ui.IsTerminal(os.Stdin)
	if interactive {
		if err := promptHost(&opts, existing); err != nil {
			return err
		}
	}

	opts.Name = strings.TrimSpace(opts.Name)
	opts.URL = strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if opts.Name == "" || opts.URL == "" {
		return errors.New(errors.ErrConfig,
			"A host name and URL are required",
			"Pass --name and --url, or run without --non-interactive")
	}
	if existing != nil {
		if _, ok := existing.Hosts[opts.Name]; ok {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' is already in %s", opts.Name, path),
				"Pick another --name or edit the file directly")
		}
	}

	host := config.Host{
		URL:       opts.URL,
		APIKeyEnv: opts.APIKeyEnv,
		Tunnel:    opts.Tunnel,
	}
	check := config.DefaultConfig()
	check.Hosts[opts.Name] = host
	if err := config.Validate(check); err != nil {
		return err
	}

	if !opts.SkipCheck {
		if err := probeHost(out, check, opts.Name, interactive); err != nil {
			return err
		}
	}

	if existing == nil {
		cfg := config.DefaultConfig()
		cfg.Hosts[opts.Name] = host
		cfg.Default = opts.Name
		if err := config.Write(path, cfg); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Failed to write config file: %s", path),
				"Check directory permissions")
		}
		fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, path)
	} else {
		makeDefault := opts.MakeDefault || existing.Default == ""
		if err := config.AddHost(path, opts.Name, host, makeDefault); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Failed to update config file: %s", path),
				"Check the file is valid YAML and writable")
		}
		fmt.Fprintf(out, "%s Added %s to %s\n\n", ui.SymbolSuccess, opts.Name, path)
	}

	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  hostwatch monitor    - Open the dashboard")
	fmt.Fprintln(out, "  hostwatch snapshot   - Print the latest values")
	fmt.Fprintln(out, "  hostwatch hosts      - List configured hosts")
	return nil
}

// existingConfig loads the config at path, or returns nil when there is none.
func existingConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return config.Load(path)
}

func promptHost(opts *InitOptions, existing *config.Config) error {
	var groups []*huh.Group

	groups = append(groups, huh.NewGroup(
		huh.NewInput().
			Title("Host name").
			Description("A friendly name for this host in your config").
			Placeholder("nas").
			Value(&opts.Name).
			Validate(func(s string) error {
				s = strings.TrimSpace(s)
				if s == "" {
					return fmt.Errorf("host name is required")
				}
				if strings.ContainsAny(s, " /@") {
					return fmt.Errorf("host name can't contain spaces, '/' or '@'")
				}
				if existing != nil {
					if _, ok := existing.Hosts[s]; ok {
						return fmt.Errorf("'%s' is already configured", s)
					}
				}
				return nil
			}),
		huh.NewInput().
			Title("Monitoring API URL").
			Description("Base URL the host serves its API on").
			Placeholder("https://nas.lan:5001").
			Value(&opts.URL).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("URL is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("API key environment variable (optional)").
			Description("The key is read from this variable at startup").
			Placeholder("NAS_API_KEY").
			Value(&opts.APIKeyEnv),
	))

	if tunnel := tunnelField(&opts.Tunnel); tunnel != nil {
		groups = append(groups, huh.NewGroup(tunnel))
	}

	if existing != nil && existing.Default != "" {
		groups = append(groups, huh.NewGroup(
			huh.NewConfirm().
				Title("Make this the default host?").
				Value(&opts.MakeDefault),
		))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}
	return nil
}

// tunnelField offers the ssh config's aliases, or nil when there are none.
func tunnelField(value *string) huh.Field {
	entries, err := sshutil.ListHosts(sshutil.DefaultConfigPath())
	if err != nil || len(entries) == 0 {
		return nil
	}

	options := []huh.Option[string]{huh.NewOption("None - connect directly", noTunnel)}
	for _, e := range entries {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", e.Alias, e.Description()), e.Alias))
	}
	return huh.NewSelect[string]().
		Title("Reach the API through an SSH tunnel?").
		Options(options...).
		Value(value)
}

// probeHost fetches one memory sample to check the host answers. Interactive
// sessions may save anyway after a failure.
func probeHost(out io.Writer, cfg *config.Config, name string, interactive bool) error {
	conn := newConnector(cfg, logger.Default())
	defer conn.Close()

	spinner := ui.NewSpinner("Testing connection to " + name)
	spinner.SetOutput(func(s string) { fmt.Fprint(out, s) })
	spinner.Start()

	err := func() error {
		f, err := conn.Connect(name)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		_, err = f.Fetch(ctx, monitor.KindMemory, monitor.Query{Limit: 1})
		return err
	}()
	if err == nil {
		spinner.Success()
		fmt.Fprintln(out)
		return nil
	}
	spinner.Fail()

	if !interactive {
		return err
	}

	fmt.Fprintf(out, "\n%s Connection to '%s' failed: %s\n\n", ui.SymbolFail, name, errorLine(err))
	var saveAnyway bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Save config anyway? (You can fix the connection later)").
			Value(&saveAnyway),
	))
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return err
	}
	return nil
}
