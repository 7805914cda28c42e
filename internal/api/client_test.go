package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// successEnvelope wraps records under key the way the monitoring API does.
func successEnvelope(key string, records ...map[string]any) map[string]any {
	if records == nil {
		records = []map[string]any{}
	}
	return map[string]any{
		"success": true,
		"data":    map[string]any{key: records},
	}
}

func serveJSON(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, APIKey: "wh_test", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "hv1.example.net"},
		{"bad scheme", "ftp://hv1.example.net"},
		{"unparseable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(Config{BaseURL: tt.url})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}

	c, err := NewClient(Config{BaseURL: "https://hv1.example.net:5001/api"})
	require.NoError(t, err)
	assert.Equal(t, "https://hv1.example.net:5001/api", c.BaseURL())
}

func TestClient_RequestShape(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = json.NewEncoder(w).Encode(successEnvelope("usage"))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/api", APIKey: "wh_secret", UserAgent: "hostwatch/test"})
	require.NoError(t, err)

	since := time.Date(2026, 4, 2, 10, 30, 0, 0, time.FixedZone("EST", -5*3600))
	_, err = c.Fetch(context.Background(), monitor.KindNetwork, monitor.Query{Since: since, Limit: 10, PerEntity: true})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/monitoring/network/usage", got.URL.Path)
	assert.Equal(t, "2026-04-02T15:30:00Z", got.URL.Query().Get("since"))
	assert.Equal(t, "10", got.URL.Query().Get("limit"))
	assert.Equal(t, "true", got.URL.Query().Get("per_entity"))
	assert.Equal(t, "Bearer wh_secret", got.Header.Get("Authorization"))
	assert.Equal(t, "hostwatch/test", got.Header.Get("User-Agent"))
}

func TestClient_SinceKeepsSubSecondPrecision(t *testing.T) {
	var since string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		since = r.URL.Query().Get("since")
		_ = json.NewEncoder(w).Encode(successEnvelope("arc"))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	mark := time.Date(2026, 4, 2, 15, 30, 0, 987_654_321, time.UTC)
	_, err = c.Fetch(context.Background(), monitor.KindARC, monitor.Query{Since: mark, Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, "2026-04-02T15:30:00.987654321Z", since)
	parsed, err := time.Parse(time.RFC3339Nano, since)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(mark))
}

func TestClient_OmitsEmptyQueryParams(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(successEnvelope("cpu"))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), monitor.KindCPU, monitor.Query{})
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}

func TestClient_EndpointPerKind(t *testing.T) {
	paths := make(map[string]bool)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths[r.URL.Path] = true
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for _, kind := range monitor.AllKinds {
		samples, err := c.Fetch(context.Background(), kind, monitor.Query{})
		require.NoError(t, err, "%s", kind)
		assert.Empty(t, samples)
	}

	assert.Equal(t, map[string]bool{
		"/monitoring/network/usage":   true,
		"/monitoring/storage/pool-io": true,
		"/monitoring/storage/arc":     true,
		"/monitoring/system/cpu":      true,
		"/monitoring/system/memory":   true,
	}, paths)
}

func TestClient_DecodesSamples(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, successEnvelope("usage",
		map[string]any{
			"link":               "ixgbe0",
			"scan_timestamp":     "2026-04-02T10:00:01Z",
			"rbytes_delta":       1250000,
			"obytes_delta":       "625000",
			"time_delta_seconds": 1,
		},
		map[string]any{
			"device_name":    "em0",
			"scan_timestamp": "2026-04-02 10:00:02.5",
			"rbytes_delta":   uint64(18446744073709551615),
		},
		map[string]any{"link": "lagg0", "scan_timestamp": "yesterday"},
		map[string]any{"link": "lagg0"},
	))

	log := logger.NewBufferLogger()
	c, err := NewClient(Config{BaseURL: srv.URL, Logger: log})
	require.NoError(t, err)

	samples, err := c.Fetch(context.Background(), monitor.KindNetwork, monitor.Query{})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, "ixgbe0", samples[0].Entity)
	assert.Equal(t, time.Date(2026, 4, 2, 10, 0, 1, 0, time.UTC), samples[0].ScanTimestamp)
	assert.IsType(t, json.Number(""), samples[0].Fields["rbytes_delta"])

	readings := monitor.Derive(monitor.KindNetwork, samples[0])
	assert.Equal(t, 10.0, readings[0].Value)
	assert.Equal(t, 5.0, readings[1].Value)

	assert.Equal(t, "em0", samples[1].Entity)
	assert.Equal(t, time.Date(2026, 4, 2, 10, 0, 2, 500_000_000, time.UTC), samples[1].ScanTimestamp)

	assert.True(t, log.HasLevel("debug"), "skipped records are logged")
}

func TestClient_SingletonKindsHaveNoEntity(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, successEnvelope("arc",
		map[string]any{"scan_timestamp": "2026-04-02T10:00:00Z", "arc_size": 1073741824},
	))

	samples, err := newTestClient(t, srv.URL).Fetch(context.Background(), monitor.KindARC, monitor.Query{})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Empty(t, samples[0].Entity)
	assert.Equal(t, 1.0, monitor.BytesToGiB(samples[0].Float("arc_size")))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantSubstr string
		suggestion string
	}{
		{
			name:       "success false",
			status:     http.StatusOK,
			body:       map[string]any{"success": false, "message": "pool not imported"},
			wantSubstr: "pool not imported",
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       map[string]any{"success": false, "message": "invalid key"},
			wantSubstr: "HTTP 401: invalid key",
			suggestion: "api_key",
		},
		{
			name:       "server error without envelope",
			status:     http.StatusBadGateway,
			body:       "upstream down",
			wantSubstr: "HTTP 502: Bad Gateway",
		},
		{
			name:       "malformed records",
			status:     http.StatusOK,
			body:       map[string]any{"success": true, "data": map[string]any{"poolio": "nope"}},
			wantSubstr: "Malformed storageIO records",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveJSON(t, tt.status, tt.body)
			_, err := newTestClient(t, srv.URL).Fetch(context.Background(), monitor.KindStorageIO, monitor.Query{})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrAPI))
			assert.Contains(t, err.Error(), tt.wantSubstr)
			if tt.suggestion != "" {
				assert.Contains(t, err.Error(), tt.suggestion)
			}
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Fetch(context.Background(), monitor.KindCPU, monitor.Query{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAPI))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Fetch(context.Background(), monitor.KindCPU, monitor.Query{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAPI))
	assert.Contains(t, err.Error(), "Cannot reach monitoring API")
}

func TestClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv.URL).Fetch(ctx, monitor.KindMemory, monitor.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timed out fetching memory metrics")
}

func TestClient_CustomDialer(t *testing.T) {
	srv := serveJSON(t, http.StatusOK, successEnvelope("memory"))

	var dials atomic.Int32
	c, err := NewClient(Config{
		// The hostname is never resolved; the dialer routes to the test server.
		BaseURL: "http://hv1.internal:5001",
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			dials.Add(1)
			var d net.Dialer
			return d.DialContext(ctx, network, srv.Listener.Addr().String())
		},
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), monitor.KindMemory, monitor.Query{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), dials.Load())
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   any
		want time.Time
		ok   bool
	}{
		{"2026-04-02T10:00:00Z", time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC), true},
		{"2026-04-02T12:00:00+02:00", time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC), true},
		{"2026-04-02T10:00:00.123456", time.Date(2026, 4, 2, 10, 0, 0, 123456000, time.UTC), true},
		{"2026-04-02 10:00:00", time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"04/02/2026", time.Time{}, false},
		{json.Number("1712052000"), time.Time{}, false},
		{nil, time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := parseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.True(t, tt.want.Equal(got), "%v: got %v", tt.in, got)
	}
}
