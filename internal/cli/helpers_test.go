package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/ui"
)

func init() {
	ui.DisableColors()
}

const gib = 1 << 30

// fakeAPI serves one recent record per endpoint. Paths in failing answer 500.
type fakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	failing map[string]bool
	paths   []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{failing: make(map[string]bool)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) fail(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = true
}

func (f *fakeAPI) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	failing := f.failing[r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "boom"})
		return
	}

	ts := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	var key string
	var records []map[string]any
	switch r.URL.Path {
	case "/monitoring/network/usage":
		key = "usage"
		records = []map[string]any{
			{"scan_timestamp": ts, "link": "eth0", "rbytes_delta": 1250000, "obytes_delta": 250000, "time_delta_seconds": 1},
		}
	case "/monitoring/storage/pool-io":
		key = "poolio"
		records = []map[string]any{
			{"scan_timestamp": ts, "pool": "tank", "read_bandwidth_bytes": 2 << 20, "write_bandwidth_bytes": 1 << 20},
		}
	case "/monitoring/storage/arc":
		key = "arc"
		records = []map[string]any{
			{"scan_timestamp": ts, "arc_size": 8 * gib, "arc_target_size": 16 * gib, "hits": 90, "misses": 10},
		}
	case "/monitoring/system/cpu":
		key = "cpu"
		records = []map[string]any{
			{"scan_timestamp": ts, "cpu_utilization_pct": 42, "load_avg_1min": 0.5, "load_avg_5min": 0.4, "load_avg_15min": 0.3},
		}
	case "/monitoring/system/memory":
		key = "memory"
		records = []map[string]any{
			{"scan_timestamp": ts, "total_memory_bytes": 32 * gib, "used_memory_bytes": 24 * gib, "free_memory_bytes": 8 * gib},
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "no such endpoint"})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    map[string]any{key: records},
	})
}

// writeConfig writes a config with the given hosts and returns its path.
func writeConfig(t *testing.T, defaultHost string, hosts map[string]config.Host) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Default = defaultHost
	for name, h := range hosts {
		cfg.Hosts[name] = h
	}
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, config.Write(path, cfg))
	return path
}

// runCLI executes the root command and returns everything it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// jsonEnvelope is the decoded form of -o json output.
type jsonEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *JSONError      `json:"error"`
}

func decodeEnvelope(t *testing.T, out string) jsonEnvelope {
	t.Helper()
	var env jsonEnvelope
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(&env), out)
	return env
}
