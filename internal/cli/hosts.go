package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hostwatch/internal/ui"
)

// HostInfo is the JSON shape of one configured host.
type HostInfo struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Tunnel  string `json:"tunnel,omitempty"`
	Default bool   `json:"default"`
}

func newHostsCmd(g *GlobalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List configured hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHosts(cmd.OutOrStdout(), g, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "output format: table or json")

	return cmd
}

func runHosts(out io.Writer, g *GlobalOptions, output string) error {
	if err := checkOutput(output); err != nil {
		return err
	}

	cfg, path, err := loadConfig(g.ConfigPath)
	if err != nil {
		if output == OutputJSON {
			_ = WriteJSONFromError(out, err)
		}
		return err
	}

	hosts := make([]HostInfo, 0, len(cfg.Hosts))
	for _, name := range cfg.HostNames() {
		h := cfg.Hosts[name]
		hosts = append(hosts, HostInfo{
			Name:    name,
			URL:     h.URL,
			Tunnel:  h.Tunnel,
			Default: name == cfg.Default,
		})
	}

	if output == OutputJSON {
		return WriteJSONSuccess(out, hosts)
	}

	if len(hosts) == 0 {
		fmt.Fprintf(out, "No hosts in %s. Run 'hostwatch init' to add one.\n", path)
		return nil
	}

	rows := make([][]string, len(hosts))
	for i, h := range hosts {
		name := h.Name
		if h.Default {
			name += " " + ui.SymbolComplete
		}
		tunnel := h.Tunnel
		if tunnel == "" {
			tunnel = "-"
		}
		rows[i] = []string{name, h.URL, tunnel}
	}
	fmt.Fprintln(out, ui.RenderTable([]string{"NAME", "URL", "TUNNEL"}, rows))
	fmt.Fprintln(out, ui.MutedStyle().Render(fmt.Sprintf("%s default · from %s", ui.SymbolComplete, path)))
	return nil
}
