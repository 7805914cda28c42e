// Package cli implements the hostwatch command-line interface.
//
// Each Cobra command delegates to a run function that takes its options
// struct and output writer, so commands can be exercised in tests without
// going through os.Args.
//
// # Command Structure
//
//	hostwatch monitor              - Live dashboard for configured hosts
//	hostwatch snapshot             - Latest sample per entity, as a table or JSON
//	hostwatch series               - One stream as [[tsMs, value], ...] JSON
//	hostwatch hosts                - List configured hosts
//	hostwatch init                 - Create or extend .hostwatch.yaml
//	hostwatch doctor               - Check config, tunnels and API access
//	hostwatch version              - Print build information
//
// # Sessions
//
// Every command that talks to a host goes through a session: config is
// found, loaded and validated, and a connector turns host names into API
// clients, opening an SSH tunnel first when the host has one configured.
// The connector owns those tunnels and closes them when the command ends.
//
// One-shot commands (snapshot, series) run the same engine as the dashboard
// with polling disabled: one historical cycle, then read the results.
//
// # Flag Handling
//
// Global flags (--config, --verbose, --log-file, --no-color) live on the
// root command. HostFlags and ViewFlags add the --host and
// --window/--resolution flags shared by the host-facing commands.
package cli
