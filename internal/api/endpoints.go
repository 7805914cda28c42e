package api

import "github.com/rileyhilliard/hostwatch/internal/monitor"

// endpoint describes where a metric kind lives on the monitoring API and how
// its records are keyed.
type endpoint struct {
	// path is appended to the host's base URL.
	path string

	// dataKey is the field under "data" holding the record array.
	dataKey string

	// entityFields are tried in order to find the record's entity key.
	// Empty for host-wide kinds.
	entityFields []string
}

var endpoints = map[monitor.Kind]endpoint{
	monitor.KindNetwork: {
		path:         "/monitoring/network/usage",
		dataKey:      "usage",
		entityFields: []string{"link", "interface", "device_name"},
	},
	monitor.KindStorageIO: {
		path:         "/monitoring/storage/pool-io",
		dataKey:      "poolio",
		entityFields: []string{"pool", "pool_name", "name"},
	},
	monitor.KindARC: {
		path:    "/monitoring/storage/arc",
		dataKey: "arc",
	},
	monitor.KindCPU: {
		path:    "/monitoring/system/cpu",
		dataKey: "cpu",
	},
	monitor.KindMemory: {
		path:    "/monitoring/system/memory",
		dataKey: "memory",
	},
}

// Path returns the API path for kind, or "" for an unknown kind.
func Path(kind monitor.Kind) string {
	return endpoints[kind].path
}
